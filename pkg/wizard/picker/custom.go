package picker

import "github.com/launchkit/launchkit/pkg/wizard"

// CustomInput extends a picker with a synthetic "use the typed text as
// the answer" item. The item appears while the input line is
// non-empty; Validate failures mark it invalid (still visible,
// rejected on commit, message shown inline).
type CustomInput[T any] struct {
	// Label of the synthetic item, for example "Use custom domain".
	Label string

	// Parse converts the committed text into the answer. It may veto
	// the commit by returning a non-none signal.
	Parse func(text string) (T, wizard.Signal)

	// Validate returns an error message for the current text, or ""
	// when it is acceptable. Optional.
	Validate func(text string) string
}

// row builds the synthetic choice for the current text.
func (c *CustomInput[T]) row(text string) Choice {
	ch := Choice{
		Label:       c.Label,
		Description: text,
	}
	if c.Validate != nil {
		if msg := c.Validate(text); msg != "" {
			ch.Invalid = true
			ch.Message = msg
		}
	}
	return ch
}
