// Package wizard is a generic interactive multi-step prompt engine.
//
// A Wizard sequences Prompters against a partially filled Form. Each
// Prompter asks one question and resolves to either a typed answer or
// a navigation Signal (back, exit, retry). Signals are values, never
// errors: they flow through combinators like Transform untouched, and
// every consumer is expected to check for them before using the value.
package wizard

// Signal is a navigation control value returned in place of an answer.
type Signal int

const (
	// SignalNone means the result carries a real answer (or nothing).
	SignalNone Signal = iota
	// SignalBack unwinds one step.
	SignalBack
	// SignalExit aborts the whole wizard, discarding the form.
	SignalExit
	// SignalRetry redoes the current step. Used by toggle-style
	// affordances that must re-render before accepting further input.
	SignalRetry
)

func (s Signal) String() string {
	switch s {
	case SignalBack:
		return "back"
	case SignalExit:
		return "exit"
	case SignalRetry:
		return "retry"
	default:
		return "none"
	}
}

// Result is the outcome of a single prompt: exactly one of a concrete
// answer, a control Signal, or nothing (the user dismissed the surface
// without answering, treated as a cancellation).
type Result[T any] struct {
	value    T
	signal   Signal
	answered bool
}

// Answer wraps a concrete value.
func Answer[T any](v T) Result[T] {
	return Result[T]{value: v, answered: true}
}

// Signalled wraps a control signal.
func Signalled[T any](s Signal) Result[T] {
	return Result[T]{signal: s}
}

// Cancelled is the "no answer" result.
func Cancelled[T any]() Result[T] {
	return Result[T]{}
}

// Value returns the answer and whether one was given.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.answered
}

// Signal returns the control signal, or SignalNone.
func (r Result[T]) Signal() Signal {
	return r.signal
}

// Answered reports whether the result carries a real answer.
func (r Result[T]) Answered() bool {
	return r.answered
}

// Cancelled reports whether the user gave neither an answer nor a signal.
func (r Result[T]) Cancelled() bool {
	return !r.answered && r.signal == SignalNone
}
