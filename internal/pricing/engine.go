package pricing

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
)

// Subtotal computes the billed amount of a line. Every dimension is floored at 1
// and a negative price counts as 0, so a subtotal is never negative or collapsed by bad input.
func Subtotal(l Line) Money {
	price := l.Precio
	if price.IsNegative() {
		price = decimal.Zero
	}
	personas := decimal.NewFromInt(int64(atLeastOne(l.Personas)))
	noches := decimal.NewFromInt(int64(atLeastOne(l.Noches)))
	dias := decimal.NewFromInt(int64(atLeastOne(l.Dias)))

	switch l.Unidad.normalized() {
	case Dia:
		return price.Mul(dias)
	case Persona:
		return price.Mul(personas)
	case PersonaDia:
		return price.Mul(personas).Mul(dias)
	default:
		return price.Mul(personas).Mul(noches)
	}
}

// Key returns the identity of a line: service id, unit and, for units billed by
// time, the duration. Lines sharing a key are the same line.
func Key(l Line) string {
	id := url.PathEscape(l.ID)
	u := l.Unidad.normalized()
	switch {
	case u.UsesNoches():
		return fmt.Sprintf("%s|%s|n%d", id, u, orOne(l.Noches))
	case u.UsesDias():
		return fmt.Sprintf("%s|%s|d%d", id, u, orOne(l.Dias))
	default:
		return id + "|" + u.String()
	}
}

// QuantityOf returns the display quantity of a line: dias for Dia, personas otherwise.
func QuantityOf(l Line) int {
	if l.Unidad.normalized() == Dia {
		return int(atLeastOne(l.Dias))
	}
	return int(atLeastOne(l.Personas))
}

// Count sums the display quantity of every line. It is not weighted by duration.
func Count(lines []Line) int {
	total := 0
	for _, l := range lines {
		total += QuantityOf(l)
	}
	return total
}

// Total sums the subtotals of every line.
func Total(lines []Line) Money {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(Subtotal(l))
	}
	return sum
}
