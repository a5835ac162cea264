package picker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/launchkit/launchkit/pkg/wizard"
)

// fakeSurface records engine-side calls and lets the test script fire
// user events from its own goroutine.
type fakeSurface struct {
	mu        sync.Mutex
	shown     *ShowOptions
	rows      []Choice
	highlight int
	busy      bool
	steps     [][2]int
	disposed  int

	onCommit    func([]string, string)
	onDismiss   func()
	onHighlight func(int)
	onInput     func(string)
	onButton    func(string)

	script func(s *fakeSurface)
}

func (s *fakeSurface) Show(opts ShowOptions) error {
	s.mu.Lock()
	s.shown = &opts
	s.rows = opts.Rows
	s.highlight = opts.Highlight
	s.busy = opts.Busy
	s.mu.Unlock()
	if s.script != nil {
		go s.script(s)
	}
	return nil
}

func (s *fakeSurface) SetItems(rows []Choice, highlight int) {
	s.mu.Lock()
	s.rows = rows
	s.highlight = highlight
	s.mu.Unlock()
}

func (s *fakeSurface) SetBusy(busy bool) {
	s.mu.Lock()
	s.busy = busy
	s.mu.Unlock()
}

func (s *fakeSurface) SetSteps(current, total int) {
	s.mu.Lock()
	s.steps = append(s.steps, [2]int{current, total})
	s.mu.Unlock()
}

func (s *fakeSurface) OnCommit(fn func([]string, string)) { s.onCommit = fn }
func (s *fakeSurface) OnDismiss(fn func())                { s.onDismiss = fn }
func (s *fakeSurface) OnHighlight(fn func(int))           { s.onHighlight = fn }
func (s *fakeSurface) OnInput(fn func(string))            { s.onInput = fn }
func (s *fakeSurface) OnButton(fn func(string))           { s.onButton = fn }

func (s *fakeSurface) Dispose() {
	s.mu.Lock()
	s.disposed++
	s.mu.Unlock()
}

// waitFor polls until pred holds under the surface lock. Runs on the
// script goroutine, so it reports instead of failing fatally.
func (s *fakeSurface) waitFor(t *testing.T, what string, pred func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		ok := pred()
		s.mu.Unlock()
		if ok {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Errorf("timed out waiting for %s", what)
	return false
}

// highlightedLabel reads the label of the currently highlighted row.
func (s *fakeSurface) highlightedLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.highlight < 0 || s.highlight >= len(s.rows) {
		return ""
	}
	return s.rows[s.highlight].Label
}

func fixedItems(labels ...string) []Item[string] {
	out := make([]Item[string], 0, len(labels))
	for _, l := range labels {
		out = append(out, Item[string]{Label: l, Value: l})
	}
	return out
}

func TestFixedSourceCommit(t *testing.T) {
	s := &fakeSurface{script: func(s *fakeSurface) {
		s.onCommit([]string{"beta"}, "")
	}}
	p := New(s, Fixed(fixedItems("alpha", "beta")...), Config[string]{Title: "pick"})

	res := p.Prompt(context.Background())
	v, ok := res.Value()
	if !ok || v != "beta" {
		t.Fatalf("expected answer beta, got %v (ok=%v)", v, ok)
	}
	if s.disposed != 1 {
		t.Fatalf("surface should be disposed exactly once, got %d", s.disposed)
	}
}

func TestDismissCancels(t *testing.T) {
	s := &fakeSurface{script: func(s *fakeSurface) {
		s.onDismiss()
	}}
	p := New(s, Fixed(fixedItems("alpha")...), Config[string]{})

	res := p.Prompt(context.Background())
	if res.Answered() || res.Signal() != wizard.SignalNone {
		t.Fatalf("dismissal should cancel, got %+v", res)
	}
}

func TestContextCancelSettles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &fakeSurface{script: func(s *fakeSurface) {
		cancel()
	}}
	p := New(s, Deferred(func(ctx context.Context) ([]Item[string], error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), Config[string]{})

	done := make(chan wizard.Result[string], 1)
	go func() { done <- p.Prompt(ctx) }()
	select {
	case res := <-done:
		if res.Answered() {
			t.Fatalf("cancelled prompt must not answer, got %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("prompt did not settle on context cancellation")
	}
	if s.disposed != 1 {
		t.Fatalf("surface should be disposed exactly once, got %d", s.disposed)
	}
}

func TestPagedLoadKeepsHighlightByLabel(t *testing.T) {
	release := make(chan struct{})
	s := &fakeSurface{script: func(s *fakeSurface) {
		if !s.waitFor(t, "first page", func() bool { return len(s.rows) == 1 }) {
			return
		}
		close(release)
		if !s.waitFor(t, "second page", func() bool { return len(s.rows) == 2 }) {
			return
		}
		s.onCommit([]string{s.highlightedLabel()}, "")
	}}

	pages := func() PageFunc[string] {
		n := 0
		return func(ctx context.Context) ([]Item[string], error) {
			n++
			switch n {
			case 1:
				return fixedItems("mango"), nil
			case 2:
				<-release
				return fixedItems("apple"), io.EOF
			default:
				return nil, io.EOF
			}
		}
	}

	p := New(s, Paged(pages), Config[string]{
		Less: func(a, b Item[string]) bool { return a.Label < b.Label },
	})

	res := p.Prompt(context.Background())
	v, ok := res.Value()
	if !ok || v != "mango" {
		t.Fatalf("highlight should stick to mango across the re-sort, got %v (ok=%v)", v, ok)
	}
	// apple sorted in front, so mango ended up at index 1.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows[0].Label != "apple" || s.rows[1].Label != "mango" {
		t.Fatalf("unexpected row order: %+v", s.rows)
	}
}

func TestCommitResolvesByLabelAfterMerge(t *testing.T) {
	release := make(chan struct{})
	s := &fakeSurface{script: func(s *fakeSurface) {
		if !s.waitFor(t, "first page", func() bool { return len(s.rows) == 1 }) {
			return
		}
		s.mu.Lock()
		picked := s.rows[0].Label
		s.mu.Unlock()
		close(release)
		if !s.waitFor(t, "second page", func() bool { return len(s.rows) == 2 }) {
			return
		}
		// mango moved from index 0 to 1 under the re-sort; the commit
		// still lands on it.
		s.onCommit([]string{picked}, "")
	}}

	pages := func() PageFunc[string] {
		n := 0
		return func(ctx context.Context) ([]Item[string], error) {
			n++
			switch n {
			case 1:
				return fixedItems("mango"), nil
			case 2:
				<-release
				return fixedItems("apple"), io.EOF
			default:
				return nil, io.EOF
			}
		}
	}

	p := New(s, Paged(pages), Config[string]{
		Less: func(a, b Item[string]) bool { return a.Label < b.Label },
	})

	res := p.Prompt(context.Background())
	v, ok := res.Value()
	if !ok || v != "mango" {
		t.Fatalf("expected mango despite the index shift, got %v (ok=%v)", v, ok)
	}
}

func TestPagedSourceRestartsPerPrompt(t *testing.T) {
	starts := 0
	pages := func() PageFunc[string] {
		starts++
		done := false
		return func(ctx context.Context) ([]Item[string], error) {
			if done {
				return nil, io.EOF
			}
			done = true
			return fixedItems("only"), io.EOF
		}
	}

	for i := 0; i < 2; i++ {
		s := &fakeSurface{script: func(s *fakeSurface) {
			if s.waitFor(t, "page", func() bool { return len(s.rows) == 1 }) {
				s.onCommit([]string{"only"}, "")
			}
		}}
		p := New(s, Paged(pages), Config[string]{})
		if _, ok := p.Prompt(context.Background()).Value(); !ok {
			t.Fatalf("prompt %d did not answer", i)
		}
	}
	if starts != 2 {
		t.Fatalf("expected a fresh iterator per prompt, got %d starts", starts)
	}
}

func TestEmptySettledShowsPlaceholder(t *testing.T) {
	s := &fakeSurface{script: func(s *fakeSurface) {
		if !s.waitFor(t, "placeholder", func() bool {
			return !s.busy && len(s.rows) == 1 && s.rows[0].Invalid
		}) {
			return
		}
		// Committing the placeholder must be ignored.
		s.onCommit([]string{"No items found"}, "")
		time.Sleep(20 * time.Millisecond)
		s.onDismiss()
	}}

	p := New(s, Deferred(func(ctx context.Context) ([]Item[string], error) {
		return nil, nil
	}), Config[string]{})

	res := p.Prompt(context.Background())
	if res.Answered() {
		t.Fatal("placeholder must not be committable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows[0].Label != "No items found" {
		t.Fatalf("unexpected placeholder row: %+v", s.rows[0])
	}
}

func TestLoadFailureShowsErrorItem(t *testing.T) {
	s := &fakeSurface{script: func(s *fakeSurface) {
		if !s.waitFor(t, "error item", func() bool {
			return !s.busy && len(s.rows) == 1
		}) {
			return
		}
		s.onCommit([]string{"Could not load"}, "")
		time.Sleep(20 * time.Millisecond)
		s.onDismiss()
	}}

	p := New(s, Deferred(func(ctx context.Context) ([]Item[string], error) {
		return nil, errors.New("api unreachable")
	}), Config[string]{
		ErrorItem: func(err error) Item[string] {
			return Item[string]{Label: "Could not load", Message: err.Error(), Invalid: true}
		},
	})

	res := p.Prompt(context.Background())
	if res.Answered() {
		t.Fatal("error item must not be committable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows[0].Label != "Could not load" || s.rows[0].Message != "api unreachable" {
		t.Fatalf("unexpected error row: %+v", s.rows[0])
	}
}

func TestCustomInputRowFollowsText(t *testing.T) {
	s := &fakeSurface{script: func(s *fakeSurface) {
		s.onInput("bad")
		if !s.waitFor(t, "invalid custom row", func() bool {
			return len(s.rows) == 2 && s.rows[1].Invalid
		}) {
			return
		}
		// Invalid text: commit ignored.
		s.onCommit([]string{"Use typed value"}, "bad")

		s.onInput("good.example.com")
		if !s.waitFor(t, "valid custom row", func() bool {
			return len(s.rows) == 2 && !s.rows[1].Invalid
		}) {
			return
		}
		s.onCommit([]string{"Use typed value"}, "good.example.com")
	}}

	p := New(s, Fixed(fixedItems("none")...), Config[string]{
		Custom: &CustomInput[string]{
			Label: "Use typed value",
			Parse: func(text string) (string, wizard.Signal) { return text, wizard.SignalNone },
			Validate: func(text string) string {
				if text == "bad" {
					return "nope"
				}
				return ""
			},
		},
	})

	res := p.Prompt(context.Background())
	v, ok := res.Value()
	if !ok || v != "good.example.com" {
		t.Fatalf("expected parsed custom answer, got %v (ok=%v)", v, ok)
	}
}

func TestCustomParseCanVeto(t *testing.T) {
	// An empty settled source renders the placeholder next to the
	// custom row.
	s := &fakeSurface{script: func(s *fakeSurface) {
		s.onInput("back please")
		if s.waitFor(t, "custom row", func() bool { return len(s.rows) == 2 }) {
			s.onCommit([]string{"Use typed value"}, "back please")
		}
	}}

	p := New(s, Fixed[string](), Config[string]{
		Custom: &CustomInput[string]{
			Label: "Use typed value",
			Parse: func(text string) (string, wizard.Signal) {
				return "", wizard.SignalBack
			},
		},
	})

	res := p.Prompt(context.Background())
	if res.Signal() != wizard.SignalBack {
		t.Fatalf("expected back signal from parse veto, got %+v", res)
	}
}

func TestOnClickFiresBeforeValidity(t *testing.T) {
	clicked := 0
	s := &fakeSurface{script: func(s *fakeSurface) {
		s.onCommit([]string{"broken"}, "")
		time.Sleep(20 * time.Millisecond)
		s.onDismiss()
	}}

	p := New(s, Fixed(Item[string]{
		Label:   "broken",
		Invalid: true,
		OnClick: func() { clicked++ },
	}), Config[string]{})

	res := p.Prompt(context.Background())
	if res.Answered() {
		t.Fatal("invalid item must not commit")
	}
	if clicked != 1 {
		t.Fatalf("OnClick should fire before the validity check, got %d", clicked)
	}
}

func TestResolveFailureMarksItemInvalid(t *testing.T) {
	s := &fakeSurface{script: func(s *fakeSurface) {
		s.onCommit([]string{"flaky"}, "")
		if !s.waitFor(t, "item marked invalid", func() bool {
			return len(s.rows) == 1 && s.rows[0].Invalid
		}) {
			return
		}
		// Now invalid, so this commit is ignored too.
		s.onCommit([]string{"flaky"}, "")
		time.Sleep(20 * time.Millisecond)
		s.onDismiss()
	}}

	p := New(s, Fixed(Item[string]{
		Label: "flaky",
		Resolve: func(ctx context.Context) (string, error) {
			return "", errors.New("resolve blew up")
		},
	}), Config[string]{})

	res := p.Prompt(context.Background())
	if res.Answered() {
		t.Fatal("failed resolve must not commit")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows[0].Message != "resolve blew up" {
		t.Fatalf("expected resolver error surfaced on the row, got %+v", s.rows[0])
	}
}

func TestResolveSuccessAnswersWithResolvedValue(t *testing.T) {
	calls := 0
	s := &fakeSurface{script: func(s *fakeSurface) {
		s.onCommit([]string{"lazy"}, "")
	}}

	p := New(s, Fixed(Item[string]{
		Label: "lazy",
		Resolve: func(ctx context.Context) (string, error) {
			calls++
			return "resolved", nil
		},
	}), Config[string]{})

	res := p.Prompt(context.Background())
	v, ok := res.Value()
	if !ok || v != "resolved" {
		t.Fatalf("expected resolved value, got %v (ok=%v)", v, ok)
	}
	if calls != 1 {
		t.Fatalf("resolver should run once, got %d", calls)
	}
}

func TestButtonSignalEndsPrompt(t *testing.T) {
	s := &fakeSurface{script: func(s *fakeSurface) {
		s.onButton("ignored")
		s.onButton("back")
	}}

	p := New(s, Fixed(fixedItems("a")...), Config[string]{
		Buttons: []Button{{ID: "back", Label: "Back"}},
		OnButton: func(id string) wizard.Signal {
			if id == "back" {
				return wizard.SignalBack
			}
			return wizard.SignalNone
		},
	})

	res := p.Prompt(context.Background())
	if res.Signal() != wizard.SignalBack {
		t.Fatalf("expected back signal, got %+v", res)
	}
}

func TestLastResponseSeedsHighlight(t *testing.T) {
	s := &fakeSurface{script: func(s *fakeSurface) {
		s.onCommit([]string{s.highlightedLabel()}, "")
	}}

	p := New(s, Fixed(fixedItems("alpha", "beta", "gamma")...), Config[string]{})
	p.SetLastResponse("beta")

	res := p.Prompt(context.Background())
	v, ok := res.Value()
	if !ok || v != "beta" {
		t.Fatalf("expected seeded highlight on beta, got %v (ok=%v)", v, ok)
	}
	if s.shown.Highlight != 1 {
		t.Fatalf("expected initial highlight 1, got %d", s.shown.Highlight)
	}
}

func TestLastResponseSeedsDeferredHighlight(t *testing.T) {
	s := &fakeSurface{script: func(s *fakeSurface) {
		if !s.waitFor(t, "loaded items", func() bool {
			return !s.busy && len(s.rows) == 3
		}) {
			return
		}
		if !s.waitFor(t, "seeded highlight", func() bool { return s.highlight == 1 }) {
			return
		}
		s.onCommit([]string{s.highlightedLabel()}, "")
	}}

	p := New(s, Deferred(func(ctx context.Context) ([]Item[string], error) {
		return fixedItems("alpha", "beta", "gamma"), nil
	}), Config[string]{})
	p.SetLastResponse("beta")

	res := p.Prompt(context.Background())
	v, ok := res.Value()
	if !ok || v != "beta" {
		t.Fatalf("expected seeded highlight on beta, got %v (ok=%v)", v, ok)
	}
}

func TestLastResponseSeedsLateArrivingPage(t *testing.T) {
	s := &fakeSurface{script: func(s *fakeSurface) {
		if !s.waitFor(t, "seeded item in second page", func() bool {
			return len(s.rows) == 2 && s.highlight == 1
		}) {
			return
		}
		s.onCommit([]string{s.highlightedLabel()}, "")
	}}

	pages := func() PageFunc[string] {
		n := 0
		return func(ctx context.Context) ([]Item[string], error) {
			n++
			switch n {
			case 1:
				return fixedItems("alpha"), nil
			case 2:
				return fixedItems("beta"), io.EOF
			default:
				return nil, io.EOF
			}
		}
	}

	p := New(s, Paged(pages), Config[string]{})
	p.SetLastResponse("beta")

	res := p.Prompt(context.Background())
	v, ok := res.Value()
	if !ok || v != "beta" {
		t.Fatalf("seed should land when its item arrives late, got %v (ok=%v)", v, ok)
	}
}

func TestEstimateForcedBeforeFirstRender(t *testing.T) {
	s := &fakeSurface{script: func(s *fakeSurface) {
		s.onCommit([]string{"alpha"}, "")
	}}

	p := New(s, Fixed(fixedItems("alpha", "beta")...), Config[string]{})
	p.SetSteps(2, 3)
	p.SetStepEstimator(func(v string) int {
		if v == "alpha" {
			return 4
		}
		return 1
	})

	if _, ok := p.Prompt(context.Background()).Value(); !ok {
		t.Fatal("prompt did not answer")
	}
	// The initial total reflects the first item's estimate, not the
	// engine baseline.
	if s.shown.StepTotal != 6 {
		t.Fatalf("expected forced initial total 6 (2+4), got %d", s.shown.StepTotal)
	}
}

func TestStepTotalTracksHighlightedEstimate(t *testing.T) {
	s := &fakeSurface{script: func(s *fakeSurface) {
		s.onHighlight(1)
		s.onHighlight(0)
		s.onCommit([]string{"alpha"}, "")
	}}

	p := New(s, Fixed(fixedItems("alpha", "beta")...), Config[string]{})
	p.SetSteps(2, 3)
	p.SetStepEstimator(func(v string) int {
		if v == "alpha" {
			return 3
		}
		return 1
	})

	if _, ok := p.Prompt(context.Background()).Value(); !ok {
		t.Fatal("prompt did not answer")
	}
	// alpha's estimate is forced into the initial render, then the
	// displayed total follows the highlight: beta drops it to 3,
	// moving back to alpha restores 5 from the memo.
	if s.shown.StepTotal != 5 {
		t.Fatalf("expected forced initial total 5 (2+3), got %d", s.shown.StepTotal)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	want := [][2]int{{2, 3}, {2, 5}}
	if len(s.steps) != len(want) {
		t.Fatalf("unexpected step pushes: %v", s.steps)
	}
	for i, w := range want {
		if s.steps[i] != w {
			t.Fatalf("step push %d: got %v, want %v", i, s.steps[i], w)
		}
	}
}

func TestEstimatesAreMemoized(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}

	s := &fakeSurface{script: func(s *fakeSurface) {
		s.onHighlight(1)
		s.onHighlight(0)
		s.onHighlight(1)
		s.onCommit([]string{"beta"}, "")
	}}

	p := New(s, Fixed(fixedItems("alpha", "beta")...), Config[string]{})
	p.SetStepEstimator(func(v string) int {
		mu.Lock()
		calls[v]++
		mu.Unlock()
		return 1
	})

	if _, ok := p.Prompt(context.Background()).Value(); !ok {
		t.Fatal("prompt did not answer")
	}
	for v, n := range calls {
		if n != 1 {
			t.Fatalf("estimator for %q ran %d times, want 1", v, n)
		}
	}
}

func TestDeferredValueItemsEstimateZero(t *testing.T) {
	s := &fakeSurface{script: func(s *fakeSurface) {
		s.onCommit([]string{"lazy"}, "")
	}}

	p := New(s, Fixed(Item[string]{
		Label: "lazy",
		Resolve: func(ctx context.Context) (string, error) {
			return "x", nil
		},
	}), Config[string]{})
	p.SetSteps(1, 5)
	p.SetStepEstimator(func(string) int {
		t.Error("estimator must not run for deferred-value items")
		return 9
	})

	if _, ok := p.Prompt(context.Background()).Value(); !ok {
		t.Fatal("prompt did not answer")
	}
	if s.shown.StepTotal != 1 {
		t.Fatalf("deferred-value item should estimate 0 (total 1+0), got %d", s.shown.StepTotal)
	}
}

func TestItemHashDistinguishesFields(t *testing.T) {
	a := Item[string]{Label: "a", Description: "b", Detail: "c"}
	b := Item[string]{Label: "a", Description: "bc", Detail: ""}
	if a.hash() == b.hash() {
		t.Fatal("hash must separate label/description/detail boundaries")
	}
	if a.hash() != a.hash() {
		t.Fatal("hash must be stable")
	}
}

func TestCommitUnknownLabelIgnored(t *testing.T) {
	s := &fakeSurface{script: func(s *fakeSurface) {
		s.onCommit([]string{"ghost"}, "")
		s.onCommit(nil, "")
		time.Sleep(20 * time.Millisecond)
		s.onCommit([]string{"alpha"}, "")
	}}

	p := New(s, Fixed(fixedItems("alpha")...), Config[string]{})
	res := p.Prompt(context.Background())
	if v, ok := res.Value(); !ok || v != "alpha" {
		t.Fatalf("expected alpha after bogus commits ignored, got %v (ok=%v)", v, ok)
	}
}

func TestDismissLandsUnderEventBurst(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := &fakeSurface{}
	s.script = func(s *fakeSurface) {
		s.onCommit([]string{"flaky"}, "")
		<-started
		// Flood the event buffer while the loop is stuck resolving.
		for i := 0; i < 32; i++ {
			s.onInput("x")
		}
		go s.onDismiss()
		close(release)
	}

	p := New(s, Fixed(Item[string]{
		Label: "flaky",
		Resolve: func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "", errors.New("nope")
		},
	}), Config[string]{})

	done := make(chan wizard.Result[string], 1)
	go func() { done <- p.Prompt(context.Background()) }()
	select {
	case res := <-done:
		if res.Answered() {
			t.Fatalf("dismissal should cancel, got %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dismissal was lost under the event burst")
	}
}

func TestBusyClearsWhenPagesSettle(t *testing.T) {
	s := &fakeSurface{script: func(s *fakeSurface) {
		if s.waitFor(t, "settled", func() bool { return !s.busy && len(s.rows) == 1 }) {
			s.onCommit([]string{"late"}, "")
		}
	}}

	p := New(s, Deferred(func(ctx context.Context) ([]Item[string], error) {
		return fixedItems("late"), nil
	}), Config[string]{})

	res := p.Prompt(context.Background())
	if v, ok := res.Value(); !ok || v != "late" {
		t.Fatalf("expected late answer, got %v (ok=%v)", v, ok)
	}
	if s.shown == nil || !s.shown.Busy {
		t.Fatal("deferred source should show busy initially")
	}
}
