package picker

// Choice is the display-only projection of an item handed to the
// Surface. The picker owns the mapping back from row index to item.
type Choice struct {
	Label       string
	Description string
	Detail      string
	Invalid     bool
	Message     string
}

// Button is an auxiliary affordance rendered by the surface (for
// example a back arrow or a refresh toggle). Triggering one is
// reported through OnButton with the button's ID.
type Button struct {
	ID    string
	Label string
}

// ShowOptions configures the surface at creation time.
type ShowOptions struct {
	Title string

	// EnableInput turns on the free-text input line (used by the
	// custom-input extension and filtering).
	EnableInput bool

	// InputPlaceholder is shown while the input line is empty.
	InputPlaceholder string

	Buttons []Button

	Rows      []Choice
	Highlight int
	Busy      bool

	// Step indicator baseline; 0/0 hides it.
	StepCurrent int
	StepTotal   int
}

// Surface is the abstract display the picker drives. Implemented by
// the host UI layer (pkg/tui ships a bubbletea one) and by test
// fakes; the picker never depends on a concrete widget toolkit.
//
// Handler registration must happen before Show. Handlers are invoked
// from the surface's own event loop; implementations must tolerate
// Dispose being called more than once.
type Surface interface {
	Show(opts ShowOptions) error
	SetItems(rows []Choice, highlight int)
	SetBusy(busy bool)
	SetSteps(current, total int)

	// OnCommit reports the labels of the committed rows and the
	// current text of the input line. Labels rather than indices: a
	// page merge can re-sort rows between the user's keypress and the
	// picker observing it, and labels survive that.
	OnCommit(fn func(labels []string, text string))
	// OnDismiss reports the surface being closed without a selection.
	OnDismiss(fn func())
	// OnHighlight reports the highlighted row changing.
	OnHighlight(fn func(index int))
	// OnInput reports the input line text changing.
	OnInput(fn func(text string))
	// OnButton reports an auxiliary button being triggered.
	OnButton(fn func(id string))

	Dispose()
}
