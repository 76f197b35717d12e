package pricing

import (
	"encoding/json"
	"strings"
)

// Unit is the billing unit of a service. The zero value is PersonaNoche.
type Unit int

const (
	// PersonaNoche bills price × personas × noches.
	PersonaNoche Unit = iota
	// PersonaDia bills price × personas × dias.
	PersonaDia
	// Persona bills price × personas.
	Persona
	// Dia bills price × dias.
	Dia
)

// Units lists every billing unit in declaration order.
var Units = [...]Unit{PersonaNoche, PersonaDia, Persona, Dia}

// NormalizeUnit maps a raw tag to a known unit. Unknown or empty tags fall back to PersonaNoche.
func NormalizeUnit(raw string) Unit {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "persona_dia":
		return PersonaDia
	case "persona":
		return Persona
	case "dia":
		return Dia
	default:
		return PersonaNoche
	}
}

func (u Unit) normalized() Unit {
	switch u {
	case PersonaNoche, PersonaDia, Persona, Dia:
		return u
	default:
		return PersonaNoche
	}
}

func (u Unit) String() string {
	switch u.normalized() {
	case PersonaDia:
		return "persona_dia"
	case Persona:
		return "persona"
	case Dia:
		return "dia"
	default:
		return "persona_noche"
	}
}

// UsesPersonas reports whether personas scales the price.
func (u Unit) UsesPersonas() bool { return u.normalized() != Dia }

// UsesNoches reports whether noches scales the price and takes part in line identity.
func (u Unit) UsesNoches() bool { return u.normalized() == PersonaNoche }

// UsesDias reports whether dias scales the price and takes part in line identity.
func (u Unit) UsesDias() bool {
	n := u.normalized()
	return n == PersonaDia || n == Dia
}

// MarshalJSON encodes the unit as its tag.
func (u Unit) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON never fails: non-string or unknown values become PersonaNoche.
func (u *Unit) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*u = PersonaNoche
		return nil
	}
	*u = NormalizeUnit(raw)
	return nil
}

// ShortLabel is the compact unit label shown next to prices in the cart.
func ShortLabel(u Unit) string {
	switch u.normalized() {
	case Dia:
		return "POR DÍA"
	case Persona:
		return "POR PERSONA"
	case PersonaDia:
		return "POR PERSONA POR DÍA"
	default:
		return "POR PERSONA POR NOCHE"
	}
}

// LegendLabel is the catalog legend printed under a service price.
func LegendLabel(u Unit) string {
	return "IVA incluido " + ShortLabel(u)
}

// QuantityLabel names the quantity dimension of the unit.
func QuantityLabel(u Unit) string {
	if u.normalized() == Dia {
		return "Cantidad"
	}
	return "Personas"
}

// FormulaLabel describes how the subtotal of the unit is computed.
func FormulaLabel(u Unit) string {
	switch u.normalized() {
	case Dia:
		return "precio × días"
	case Persona:
		return "precio × personas"
	case PersonaDia:
		return "precio × personas × días"
	default:
		return "precio × personas × noches"
	}
}
