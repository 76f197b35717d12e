package cart

import (
	"github.com/noah-isme/backend-manzano/internal/pricing"
)

// Cart is an ordered snapshot of cart lines.
type Cart []pricing.Line

// Count returns the display quantity of the cart.
func (c Cart) Count() int { return pricing.Count(c) }

// Total returns the sum of every line subtotal.
func (c Cart) Total() pricing.Money { return pricing.Total(c) }

// Find returns the line addressed by t.
func (c Cart) Find(t pricing.Target) (pricing.Line, bool) {
	if i := c.index(t.Key()); i >= 0 {
		return c[i], true
	}
	return pricing.Line{}, false
}

func (c Cart) index(key string) int {
	for i, l := range c {
		if pricing.Key(l) == key {
			return i
		}
	}
	return -1
}

func (c Cart) clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// without returns a copy of c minus the line at i.
func (c Cart) without(i int) Cart {
	out := make(Cart, 0, len(c))
	out = append(out, c[:i]...)
	return append(out, c[i+1:]...)
}

// insert merges l into the line sharing its key or appends it. Merging a Dia
// line changes its key, so the merged line is re-inserted until it no longer
// collides with another line.
func (c Cart) insert(l pricing.Line) Cart {
	i := c.index(pricing.Key(l))
	if i < 0 {
		return append(c, l)
	}
	merged := absorb(c[i], l)
	if pricing.Key(merged) == pricing.Key(c[i]) || c.index(pricing.Key(merged)) < 0 {
		c[i] = merged
		return c
	}
	return c.without(i).insert(merged)
}

// rekey replaces the line at i with updated, which carries a different key.
// The updated line folds into any line already holding that key, otherwise it
// moves to the end.
func (c Cart) rekey(i int, updated pricing.Line) Cart {
	return c.without(i).insert(updated)
}

// absorb folds incoming into existing: dias add up for Dia lines, personas
// for everything else. Sums are not clamped.
func absorb(existing, incoming pricing.Line) pricing.Line {
	if existing.Unidad.UsesPersonas() {
		existing.Personas = floorOne(existing.Personas) + floorOne(incoming.Personas)
		return existing
	}
	existing.Dias = floorOne(existing.Dias) + floorOne(incoming.Dias)
	return existing
}

func floorOne(q pricing.Quantity) pricing.Quantity {
	if q < 1 {
		return 1
	}
	return q
}
