package pricing

// Target addresses an existing cart line by its identity fields.
type Target struct {
	ID     string   `json:"id" validate:"required"`
	Unidad Unit     `json:"unidad_cobro"`
	Noches Quantity `json:"noches"`
	Dias   Quantity `json:"dias"`
}

// TargetOf builds the target that addresses l.
func TargetOf(l Line) Target {
	return Target{ID: l.ID, Unidad: l.Unidad, Noches: l.Noches, Dias: l.Dias}
}

// Key returns the identity key the target resolves to.
func (t Target) Key() string {
	return Key(Line{ID: t.ID, Unidad: t.Unidad, Noches: t.Noches, Dias: t.Dias})
}

// Matches reports whether l is the line addressed by t. Only the duration that
// belongs to the unit is compared; an unset duration means 1.
func (t Target) Matches(l Line) bool {
	return Key(l) == t.Key()
}
