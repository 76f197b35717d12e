package catalog

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-manzano/internal/pricing"
)

// DefaultCategory groups services that carry no category.
const DefaultCategory = "Otros"

// Servicio is a bookable offering published in the catalog document.
type Servicio struct {
	ID                    string          `json:"id"`
	Nombre                string          `json:"nombre"`
	PrecioPorPersonaNoche decimal.Decimal `json:"precio_por_persona_noche"`
	UnidadCobro           string          `json:"unidad_cobro"`
	Categoria             string          `json:"categoria"`
	Imagenes              []string        `json:"imagenes"`
	Descripcion           string          `json:"descripcion"`
	DescripcionCorta      string          `json:"descripcion_corta,omitempty"`
}

// Document is the top-level catalog payload.
type Document struct {
	Servicios []Servicio `json:"servicios"`
}

// UnmarshalJSON decodes a catalog entry, treating an unreadable price as 0.
func (s *Servicio) UnmarshalJSON(data []byte) error {
	type alias Servicio
	var raw struct {
		alias
		Precio json.RawMessage `json:"precio_por_persona_noche"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Servicio(raw.alias)
	s.PrecioPorPersonaNoche = pricing.ParsePrice(raw.Precio)
	return nil
}

// Unidad returns the normalised billing unit of the service.
func (s Servicio) Unidad() pricing.Unit {
	return pricing.NormalizeUnit(s.UnidadCobro)
}

// Portada returns the cover image, the first listed one.
func (s Servicio) Portada() string {
	for _, img := range s.Imagenes {
		if trimmed := strings.TrimSpace(img); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// CategoryName returns the trimmed category or DefaultCategory.
func (s Servicio) CategoryName() string {
	if c := strings.TrimSpace(s.Categoria); c != "" {
		return c
	}
	return DefaultCategory
}

// Line builds the cart line for this service with the requested dimensions.
func (s Servicio) Line(d pricing.Dimensions) pricing.Line {
	return pricing.Shape(pricing.Line{
		ID:        s.ID,
		Nombre:    s.Nombre,
		Precio:    s.PrecioPorPersonaNoche,
		Unidad:    s.Unidad(),
		Imagen:    s.Portada(),
		Categoria: strings.TrimSpace(s.Categoria),
	}, d)
}

// Group is a category bucket in catalog order.
type Group struct {
	Categoria string
	Slug      string
	Servicios []Servicio
}
