// Package tui is the host UI layer: a bubbletea implementation of the
// picker.Surface contract. One Surface owns one tea.Program for the
// lifetime of a single prompt.
package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/launchkit/launchkit/pkg/wizard/picker"
)

// Surface renders a selection list in the terminal. Engine-side calls
// (SetItems, SetBusy, SetSteps) are delivered to the running program
// as messages; user events come back through the registered handlers,
// invoked from the program's update loop.
type Surface struct {
	prog *tea.Program
	done chan struct{}

	disposeOnce sync.Once

	onCommit    func(labels []string, text string)
	onDismiss   func()
	onHighlight func(index int)
	onInput     func(text string)
	onButton    func(id string)
}

// NewSurface returns an unshown surface. Register handlers, then Show.
func NewSurface() *Surface {
	return &Surface{done: make(chan struct{})}
}

func (s *Surface) Show(opts picker.ShowOptions) error {
	s.prog = tea.NewProgram(newModel(s, opts), tea.WithAltScreen())
	go func() {
		defer close(s.done)
		// Run errors surface as a dismissal: the prompt loop treats a
		// dead surface the same as the user closing it.
		if _, err := s.prog.Run(); err != nil {
			s.fireDismiss()
		}
	}()
	return nil
}

func (s *Surface) SetItems(rows []picker.Choice, highlight int) {
	if s.prog != nil {
		s.prog.Send(setItemsMsg{rows: rows, highlight: highlight})
	}
}

func (s *Surface) SetBusy(busy bool) {
	if s.prog != nil {
		s.prog.Send(setBusyMsg{busy: busy})
	}
}

func (s *Surface) SetSteps(current, total int) {
	if s.prog != nil {
		s.prog.Send(setStepsMsg{current: current, total: total})
	}
}

func (s *Surface) OnCommit(fn func(labels []string, text string)) { s.onCommit = fn }
func (s *Surface) OnDismiss(fn func())                          { s.onDismiss = fn }
func (s *Surface) OnHighlight(fn func(index int))               { s.onHighlight = fn }
func (s *Surface) OnInput(fn func(text string))                 { s.onInput = fn }
func (s *Surface) OnButton(fn func(id string))                  { s.onButton = fn }

// Dispose quits the program and waits for it to release the terminal.
// Safe to call more than once.
func (s *Surface) Dispose() {
	s.disposeOnce.Do(func() {
		if s.prog == nil {
			return
		}
		s.prog.Quit()
		<-s.done
	})
}

func (s *Surface) fireCommit(labels []string, text string) {
	if s.onCommit != nil {
		s.onCommit(labels, text)
	}
}

func (s *Surface) fireDismiss() {
	if s.onDismiss != nil {
		s.onDismiss()
	}
}

func (s *Surface) fireHighlight(index int) {
	if s.onHighlight != nil {
		s.onHighlight(index)
	}
}

func (s *Surface) fireInput(text string) {
	if s.onInput != nil {
		s.onInput(text)
	}
}

func (s *Surface) fireButton(id string) {
	if s.onButton != nil {
		s.onButton(id)
	}
}
