package catalog

import (
	"encoding/json"

	"github.com/noah-isme/backend-manzano/internal/display"
	"github.com/noah-isme/backend-manzano/internal/pricing"
)

// InputView describes one dimension the storefront should ask for.
type InputView struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Default int    `json:"default"`
}

// ServicioView is the public representation of a service.
type ServicioView struct {
	ID               string       `json:"id"`
	Nombre           string       `json:"nombre"`
	Precio           json.Number  `json:"precio"`
	PrecioDisplay    string       `json:"precioDisplay"`
	Unidad           pricing.Unit `json:"unidad_cobro"`
	UnitLabel        string       `json:"unitLabel"`
	Legend           string       `json:"legend"`
	Formula          string       `json:"formula"`
	Categoria        string       `json:"categoria"`
	Imagenes         []string     `json:"imagenes"`
	Descripcion      string       `json:"descripcion"`
	DescripcionCorta string       `json:"descripcion_corta,omitempty"`
	Inputs           []InputView  `json:"inputs"`
}

// GroupView is the public representation of a category bucket.
type GroupView struct {
	Categoria string         `json:"categoria"`
	Slug      string         `json:"slug"`
	Servicios []ServicioView `json:"servicios"`
}

// ViewOf renders s for the storefront.
func ViewOf(s Servicio) ServicioView {
	u := s.Unidad()
	imgs := s.Imagenes
	if imgs == nil {
		imgs = []string{}
	}
	return ServicioView{
		ID:               s.ID,
		Nombre:           s.Nombre,
		Precio:           pricing.Number(s.PrecioPorPersonaNoche),
		PrecioDisplay:    display.CLP(s.PrecioPorPersonaNoche),
		Unidad:           u,
		UnitLabel:        pricing.ShortLabel(u),
		Legend:           pricing.LegendLabel(u),
		Formula:          pricing.FormulaLabel(u),
		Categoria:        s.CategoryName(),
		Imagenes:         imgs,
		Descripcion:      s.Descripcion,
		DescripcionCorta: s.DescripcionCorta,
		Inputs:           inputsFor(u),
	}
}

func inputsFor(u pricing.Unit) []InputView {
	inputs := make([]InputView, 0, 2)
	if u.UsesPersonas() {
		inputs = append(inputs, InputView{Name: "personas", Label: pricing.QuantityLabel(u), Min: 1, Max: pricing.MaxPersonas, Default: 2})
	}
	if u.UsesNoches() {
		inputs = append(inputs, InputView{Name: "noches", Label: "Noches", Min: 1, Max: pricing.MaxDuration, Default: 1})
	}
	if u.UsesDias() {
		inputs = append(inputs, InputView{Name: "dias", Label: "Días", Min: 1, Max: pricing.MaxDuration, Default: 1})
	}
	return inputs
}

func groupViews(groups []Group) []GroupView {
	out := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		views := make([]ServicioView, 0, len(g.Servicios))
		for _, s := range g.Servicios {
			views = append(views, ViewOf(s))
		}
		out = append(out, GroupView{Categoria: g.Categoria, Slug: g.Slug, Servicios: views})
	}
	return out
}
