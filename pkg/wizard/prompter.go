package wizard

import "context"

// Estimator predicts how many additional steps a wizard would take if
// the given answer were chosen. Used purely for the "step X of Y"
// progress display, never for flow decisions.
type Estimator[T any] func(candidate T) int

// Prompter asks the user a single question.
//
// A Prompter is created per step invocation, shown exactly once by
// Prompt, and disposed when Prompt returns. Prompt blocks until the
// user commits an answer, emits a signal, or dismisses the surface
// (which yields a cancelled result). Implementations must settle when
// ctx is cancelled rather than block.
type Prompter[T any] interface {
	Prompt(ctx context.Context) Result[T]

	// SetSteps sets the "step current of total" indicator baseline.
	SetSteps(current, total int)

	// SetStepEstimator wires the live remaining-step prediction shown
	// while the user changes the highlighted candidate answer.
	SetStepEstimator(est Estimator[T])

	// LastResponse returns the previously given answer, if any.
	LastResponse() (T, bool)

	// SetLastResponse pre-seeds the prompter with an earlier answer so
	// the corresponding option is highlighted on re-entry via back
	// navigation, without the user having to re-browse.
	SetLastResponse(v T)
}

// Transform wraps p in a Prompter that applies fn to the resolved
// value. fn runs only for real answers: signals and cancellations pass
// through unchanged. fn may itself veto the answer by returning a
// non-none signal.
func Transform[T, U any](p Prompter[T], fn func(T) (U, Signal)) Prompter[U] {
	return &transformPrompter[T, U]{inner: p, fn: fn}
}

type transformPrompter[T, U any] struct {
	inner Prompter[T]
	fn    func(T) (U, Signal)
	last  *U
}

func (t *transformPrompter[T, U]) Prompt(ctx context.Context) Result[U] {
	res := t.inner.Prompt(ctx)
	v, ok := res.Value()
	if !ok {
		return Result[U]{signal: res.Signal()}
	}
	u, sig := t.fn(v)
	if sig != SignalNone {
		return Signalled[U](sig)
	}
	t.last = &u
	return Answer(u)
}

func (t *transformPrompter[T, U]) SetSteps(current, total int) {
	t.inner.SetSteps(current, total)
}

func (t *transformPrompter[T, U]) SetStepEstimator(est Estimator[U]) {
	if est == nil {
		t.inner.SetStepEstimator(nil)
		return
	}
	// Estimate through the transform: candidates the transform rejects
	// add no steps.
	t.inner.SetStepEstimator(func(candidate T) int {
		u, sig := t.fn(candidate)
		if sig != SignalNone {
			return 0
		}
		return est(u)
	})
}

func (t *transformPrompter[T, U]) LastResponse() (U, bool) {
	if t.last == nil {
		var zero U
		return zero, false
	}
	return *t.last, true
}

// SetLastResponse records the transformed value locally; the inverse
// of fn is unknown, so the inner prompter keeps its own memory.
func (t *transformPrompter[T, U]) SetLastResponse(v U) {
	t.last = &v
}
