package wizard

// Form is the accumulating mapping of field name to answer produced by
// a wizard run. A field is unset until assigned; the completed form
// has every applicable field set exactly once.
type Form map[string]any

// IsSet reports whether the field has been answered.
func (f Form) IsSet(field string) bool {
	_, ok := f[field]
	return ok
}

// Clone returns a shallow copy. Snapshots taken for back navigation
// rely on step factories treating the form as read-only.
func (f Form) Clone() Form {
	out := make(Form, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
