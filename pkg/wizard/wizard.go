package wizard

import "context"

// Step is the engine-facing, untyped face of a Prompter. Feature code
// builds typed Prompters and binds them with NewField; the engine only
// needs this much.
type Step interface {
	Prompt(ctx context.Context) Result[any]
	SetSteps(current, total int)
	SetStepEstimator(est Estimator[any])
	SetLastResponse(v any)
}

// Field binds a form field name to a step factory. The factory is
// invoked with a snapshot of the current partial form each time the
// cursor reaches the field; returning nil means "this step is not
// applicable given the current answers, skip it". Factories must be
// pure: they are re-invoked on back navigation and during step
// estimation.
type Field struct {
	Name string
	New  func(form Form) Step
}

// NewField binds a typed prompter factory to a field name.
func NewField[T any](name string, fn func(form Form) Prompter[T]) Field {
	return Field{
		Name: name,
		New: func(form Form) Step {
			p := fn(form)
			if p == nil {
				return nil
			}
			return adaptedStep[T]{p}
		},
	}
}

type adaptedStep[T any] struct {
	inner Prompter[T]
}

func (s adaptedStep[T]) Prompt(ctx context.Context) Result[any] {
	res := s.inner.Prompt(ctx)
	if v, ok := res.Value(); ok {
		return Answer[any](v)
	}
	return Result[any]{signal: res.Signal()}
}

func (s adaptedStep[T]) SetSteps(current, total int) {
	s.inner.SetSteps(current, total)
}

func (s adaptedStep[T]) SetStepEstimator(est Estimator[any]) {
	if est == nil {
		s.inner.SetStepEstimator(nil)
		return
	}
	s.inner.SetStepEstimator(func(candidate T) int {
		return est(candidate)
	})
}

func (s adaptedStep[T]) SetLastResponse(v any) {
	if tv, ok := v.(T); ok {
		s.inner.SetLastResponse(tv)
	}
}

type historyEntry struct {
	field    string
	snapshot Form
}

// Wizard orchestrates an ordered, data-dependent sequence of Prompters
// against a partially filled form. Steps later in the order may depend
// on earlier answers; applicability is re-evaluated from the current
// form after every answer.
type Wizard struct {
	fields  []Field
	form    Form
	history []historyEntry
	answers map[string]any
}

// New creates a wizard over the given fields. initial may pre-seed
// answers; pre-seeded fields are never prompted.
func New(initial Form, fields []Field) *Wizard {
	form := initial.Clone()
	if form == nil {
		form = Form{}
	}
	return &Wizard{
		fields:  fields,
		form:    form,
		answers: map[string]any{},
	}
}

// Run drives the wizard to completion. It returns the completed form,
// or nil if the user exited, dismissed a step, or ctx was cancelled.
// The engine never returns a partially filled form: any non-nil result
// has every applicable field set.
func (w *Wizard) Run(ctx context.Context) Form {
	i := 0
	for i < len(w.fields) {
		if ctx.Err() != nil {
			return nil
		}
		field := w.fields[i]
		if w.form.IsSet(field.Name) {
			i++
			continue
		}
		step := field.New(w.form.Clone())
		if step == nil {
			i++
			continue
		}

		current := len(w.history) + 1
		step.SetSteps(current, current+w.remainingAfter(i, w.form))
		step.SetStepEstimator(w.estimatorFor(i))
		if prev, ok := w.answers[field.Name]; ok {
			step.SetLastResponse(prev)
		}

		res := step.Prompt(ctx)
		switch {
		case res.Answered():
			v, _ := res.Value()
			w.history = append(w.history, historyEntry{field: field.Name, snapshot: w.form.Clone()})
			w.form[field.Name] = v
			w.answers[field.Name] = v
			i++
		case res.Signal() == SignalBack:
			if len(w.history) == 0 {
				// Back on the first step stays on the first step.
				continue
			}
			top := w.history[len(w.history)-1]
			w.history = w.history[:len(w.history)-1]
			w.form = top.snapshot.Clone()
			i = w.fieldIndex(top.field)
		case res.Signal() == SignalRetry:
			// Redo the same step from the unchanged form.
			continue
		default:
			// Exit, dismissal or cancellation: discard everything.
			return nil
		}
	}
	return w.form
}

// Completed reports how many steps have been answered since the last
// cancellation. Always equal to the history length.
func (w *Wizard) Completed() int {
	return len(w.history)
}

func (w *Wizard) fieldIndex(name string) int {
	for i, f := range w.fields {
		if f.Name == name {
			return i
		}
	}
	return 0
}

// remainingAfter counts the steps after index i that would prompt
// given the form as it stands. Factories are pure, so probing them
// here is safe.
func (w *Wizard) remainingAfter(i int, form Form) int {
	n := 0
	for j := i + 1; j < len(w.fields); j++ {
		f := w.fields[j]
		if form.IsSet(f.Name) {
			continue
		}
		if f.New(form.Clone()) != nil {
			n++
		}
	}
	return n
}

// estimatorFor builds the live estimator for the step at index i: how
// many additional steps the wizard would take if the candidate answer
// were chosen. A terminal answer estimates 0.
func (w *Wizard) estimatorFor(i int) Estimator[any] {
	field := w.fields[i]
	return func(candidate any) int {
		hypothetical := w.form.Clone()
		hypothetical[field.Name] = candidate
		return w.remainingAfter(i, hypothetical)
	}
}
