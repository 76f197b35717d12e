package pricing

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents an amount in Chilean pesos.
type Money = decimal.Decimal

// Line is a priced cart entry. Price, name, image and category are copied from
// the catalog when the line is created so later catalog edits do not reprice it.
type Line struct {
	ID        string   `json:"id"`
	Nombre    string   `json:"nombre"`
	Precio    Money    `json:"precio"`
	Unidad    Unit     `json:"unidad_cobro"`
	Personas  Quantity `json:"personas"`
	Noches    Quantity `json:"noches"`
	Dias      Quantity `json:"dias"`
	Imagen    string   `json:"imagen"`
	Categoria string   `json:"categoria"`
}

// Dimensions carries the requested personas/noches/dias for a line.
type Dimensions struct {
	Personas Quantity `json:"personas"`
	Noches   Quantity `json:"noches"`
	Dias     Quantity `json:"dias"`
}

// Shape applies d to l: dimensions relevant to the unit are clamped, the rest are forced to 1.
func Shape(l Line, d Dimensions) Line {
	l.Unidad = l.Unidad.normalized()
	l.Personas, l.Noches, l.Dias = 1, 1, 1
	if l.Unidad.UsesPersonas() {
		l.Personas = ClampPersonas(d.Personas)
	}
	if l.Unidad.UsesNoches() {
		l.Noches = ClampDuration(d.Noches)
	}
	if l.Unidad.UsesDias() {
		l.Dias = ClampDuration(d.Dias)
	}
	return l
}

// MarshalJSON encodes the price as a plain JSON number.
func (l Line) MarshalJSON() ([]byte, error) {
	type alias Line
	return json.Marshal(struct {
		alias
		Precio json.Number `json:"precio"`
	}{alias: alias(l), Precio: Number(l.Precio)})
}

// Number renders m as a JSON number.
func Number(m Money) json.Number {
	return json.Number(m.String())
}

// UnmarshalJSON decodes a stored line, treating an unreadable price as 0.
func (l *Line) UnmarshalJSON(data []byte) error {
	type alias Line
	var raw struct {
		alias
		Precio json.RawMessage `json:"precio"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = Line(raw.alias)
	l.Precio = ParsePrice(raw.Precio)
	return nil
}

// ParsePrice reads a JSON number or numeric string. Missing or unreadable
// prices are 0.
func ParsePrice(data json.RawMessage) Money {
	s := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	if s == "" || s == "null" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
