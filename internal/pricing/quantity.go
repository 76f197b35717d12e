package pricing

import (
	"math"
	"strconv"
	"strings"
)

// Limits applied to requested dimensions.
const (
	MaxPersonas = 99
	MaxDuration = 30
)

// Quantity is a personas/noches/dias dimension. It decodes leniently from JSON:
// numbers and numeric strings are truncated, anything else decodes as 0.
type Quantity int

// UnmarshalJSON implements json.Unmarshaler and never fails.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	*q = ParseQuantity(string(data))
	return nil
}

// ParseQuantity converts free-form input into a Quantity. Invalid input yields 0.
func ParseQuantity(raw string) Quantity {
	raw = strings.TrimSpace(raw)
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	if raw == "" || raw == "null" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}
	return Quantity(math.Trunc(f))
}

// ClampPersonas bounds personas to 1..MaxPersonas.
func ClampPersonas(q Quantity) Quantity { return clamp(q, 1, MaxPersonas) }

// ClampDuration bounds noches or dias to 1..MaxDuration.
func ClampDuration(q Quantity) Quantity { return clamp(q, 1, MaxDuration) }

func clamp(q Quantity, lo, hi Quantity) Quantity {
	if q < lo {
		return lo
	}
	if q > hi {
		return hi
	}
	return q
}

func atLeastOne(q Quantity) Quantity {
	if q < 1 {
		return 1
	}
	return q
}

// orOne treats an unset dimension as 1 without touching other values.
func orOne(q Quantity) Quantity {
	if q == 0 {
		return 1
	}
	return q
}
