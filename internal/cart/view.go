package cart

import (
	"encoding/json"

	"github.com/noah-isme/backend-manzano/internal/display"
	"github.com/noah-isme/backend-manzano/internal/pricing"
)

// LineView is the public representation of a cart line.
type LineView struct {
	Key             string       `json:"key"`
	ID              string       `json:"id"`
	Nombre          string       `json:"nombre"`
	Precio          json.Number  `json:"precio"`
	PrecioDisplay   string       `json:"precioDisplay"`
	Unidad          pricing.Unit `json:"unidad_cobro"`
	UnitLabel       string       `json:"unitLabel"`
	Personas        int          `json:"personas"`
	Noches          int          `json:"noches"`
	Dias            int          `json:"dias"`
	Quantity        int          `json:"quantity"`
	QuantityLabel   string       `json:"quantityLabel"`
	Imagen          string       `json:"imagen"`
	Categoria       string       `json:"categoria"`
	Subtotal        json.Number  `json:"subtotal"`
	SubtotalDisplay string       `json:"subtotalDisplay"`
}

// View is the public representation of a cart.
type View struct {
	Items        []LineView  `json:"items"`
	Count        int         `json:"count"`
	Total        json.Number `json:"total"`
	TotalDisplay string      `json:"totalDisplay"`
	Currency     string      `json:"currency"`
}

// ViewOf renders c for the storefront.
func ViewOf(c Cart) View {
	items := make([]LineView, 0, len(c))
	for _, l := range c {
		sub := pricing.Subtotal(l)
		items = append(items, LineView{
			Key:             pricing.Key(l),
			ID:              l.ID,
			Nombre:          l.Nombre,
			Precio:          pricing.Number(l.Precio),
			PrecioDisplay:   display.CLP(l.Precio),
			Unidad:          l.Unidad,
			UnitLabel:       pricing.ShortLabel(l.Unidad),
			Personas:        int(l.Personas),
			Noches:          int(l.Noches),
			Dias:            int(l.Dias),
			Quantity:        pricing.QuantityOf(l),
			QuantityLabel:   pricing.QuantityLabel(l.Unidad),
			Imagen:          l.Imagen,
			Categoria:       l.Categoria,
			Subtotal:        pricing.Number(sub),
			SubtotalDisplay: display.CLP(sub),
		})
	}
	total := c.Total()
	return View{
		Items:        items,
		Count:        c.Count(),
		Total:        pricing.Number(total),
		TotalDisplay: display.CLP(total),
		Currency:     display.Currency,
	}
}
