package picker

import (
	"context"
	"reflect"
	"sort"

	"github.com/launchkit/launchkit/pkg/wizard"
)

// Config tunes a picker beyond its item source.
type Config[T any] struct {
	Title string

	// Less orders merged items. Nil keeps arrival order.
	Less func(a, b Item[T]) bool

	// Placeholder is shown instead of an empty list once all pages
	// have settled. Nil uses an unselectable default.
	Placeholder *Item[T]

	// ErrorItem converts a load failure into the designated error
	// item. Nil uses an unselectable default carrying the error text.
	ErrorItem func(err error) Item[T]

	// Custom enables the free-text extension.
	Custom *CustomInput[T]

	// InputPlaceholder is the input line hint when Custom is set.
	InputPlaceholder string

	// Buttons are auxiliary affordances; OnButton maps a triggered
	// button to a control signal (SignalNone keeps the prompt open,
	// SignalRetry re-renders the step).
	Buttons  []Button
	OnButton func(id string) wizard.Signal
}

// Picker is the selection-list Prompter. One instance serves exactly
// one Prompt call; the wizard engine creates a fresh one per step
// invocation.
type Picker[T any] struct {
	surface Surface
	source  Source[T]
	cfg     Config[T]

	items     []Item[T]
	loadErr   *Item[T]
	loading   bool
	text      string
	highlight int
	hlLabel   string
	hlPinned  bool

	est       wizard.Estimator[T]
	estimates map[string]int
	current   int
	total     int

	last      *T
	lastLabel string

	disposed bool
}

// New builds a picker over the given surface and item source.
func New[T any](surface Surface, source Source[T], cfg Config[T]) *Picker[T] {
	return &Picker[T]{
		surface:   surface,
		source:    source,
		cfg:       cfg,
		estimates: map[string]int{},
	}
}

func (p *Picker[T]) SetSteps(current, total int) {
	p.current = current
	p.total = total
}

func (p *Picker[T]) SetStepEstimator(est wizard.Estimator[T]) {
	p.est = est
}

func (p *Picker[T]) LastResponse() (T, bool) {
	if p.last == nil {
		var zero T
		return zero, false
	}
	return *p.last, true
}

func (p *Picker[T]) SetLastResponse(v T) {
	p.last = &v
}

type eventKind int

const (
	evCommit eventKind = iota
	evDismiss
	evHighlight
	evInput
	evButton
)

type surfaceEvent struct {
	kind   eventKind
	labels []string
	text   string
	index  int
	id     string
}

// Prompt runs the prompt loop: show the surface, stream item pages in
// while staying responsive, and settle on a committed answer, a
// control signal, or a cancellation. The surface is disposed exactly
// once on the way out.
func (p *Picker[T]) Prompt(ctx context.Context) wizard.Result[T] {
	events := make(chan surfaceEvent, 32)
	loopDone := make(chan struct{})
	enqueue := func(ev surfaceEvent) {
		// Highlight and input events coalesce: losing one under a
		// burst is harmless. Commits, dismissals and buttons must
		// land, so they wait for buffer space (bailing out once the
		// prompt loop is gone).
		if ev.kind == evHighlight || ev.kind == evInput {
			select {
			case events <- ev:
			default:
			}
			return
		}
		select {
		case events <- ev:
		case <-loopDone:
		}
	}
	p.surface.OnCommit(func(labels []string, text string) {
		enqueue(surfaceEvent{kind: evCommit, labels: labels, text: text})
	})
	p.surface.OnDismiss(func() { enqueue(surfaceEvent{kind: evDismiss}) })
	p.surface.OnHighlight(func(index int) { enqueue(surfaceEvent{kind: evHighlight, index: index}) })
	p.surface.OnInput(func(text string) { enqueue(surfaceEvent{kind: evInput, text: text}) })
	p.surface.OnButton(func(id string) { enqueue(surfaceEvent{kind: evButton, id: id}) })

	loadCtx, cancelLoad := context.WithCancel(ctx)
	defer cancelLoad()
	defer p.dispose()
	defer close(loopDone)

	var pages chan page[T]
	if p.source.immediate() {
		p.items = p.merge(nil, p.source.fixed)
	} else {
		p.loading = true
		pages = make(chan page[T], 4)
		go p.source.run(loadCtx, pages)
	}

	rows := p.rows()
	p.highlight = p.initialHighlight(rows)
	if p.highlight < len(rows) {
		p.hlLabel = rows[p.highlight].Label
	}

	opts := ShowOptions{
		Title:            p.cfg.Title,
		EnableInput:      p.cfg.Custom != nil,
		InputPlaceholder: p.cfg.InputPlaceholder,
		Buttons:          p.cfg.Buttons,
		Rows:             rows,
		Highlight:        p.highlight,
		Busy:             p.loading,
		StepCurrent:      p.current,
		StepTotal:        p.total,
	}
	// Force the initial highlight's estimate before first render so
	// the displayed total does not stutter once shown.
	if e, ok := p.highlightEstimate(rows); ok {
		opts.StepTotal = p.current + e
	}
	if err := p.surface.Show(opts); err != nil {
		return wizard.Cancelled[T]()
	}

	for {
		select {
		case <-ctx.Done():
			return wizard.Cancelled[T]()
		case pg, ok := <-pages:
			if !ok {
				pages = nil
				p.loading = false
				p.surface.SetBusy(false)
				p.refresh()
				continue
			}
			if pg.err != nil {
				it := p.errorItem(pg.err)
				p.loadErr = &it
				p.loading = false
				p.surface.SetBusy(false)
				p.refresh()
				continue
			}
			p.items = p.merge(p.items, pg.items)
			p.refresh()
		case ev := <-events:
			switch ev.kind {
			case evDismiss:
				return wizard.Cancelled[T]()
			case evHighlight:
				p.highlight = ev.index
				p.hlPinned = true
				if rows := p.rows(); ev.index >= 0 && ev.index < len(rows) {
					p.hlLabel = rows[ev.index].Label
				}
				p.pushEstimate()
			case evInput:
				p.text = ev.text
				p.refresh()
			case evButton:
				if p.cfg.OnButton == nil {
					continue
				}
				if sig := p.cfg.OnButton(ev.id); sig != wizard.SignalNone {
					return wizard.Signalled[T](sig)
				}
			case evCommit:
				if res, done := p.commit(ctx, ev.labels, ev.text); done {
					return res
				}
			}
		}
	}
}

func (p *Picker[T]) dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	p.surface.Dispose()
}

type rowKind int

const (
	rowItem rowKind = iota
	rowPlaceholder
	rowError
	rowCustom
)

// rowRef maps a rendered row back to what it stands for.
type rowRef struct {
	kind    rowKind
	itemIdx int // index into p.items for rowItem
}

func (p *Picker[T]) refs() []rowRef {
	var refs []rowRef
	for i := range p.items {
		refs = append(refs, rowRef{kind: rowItem, itemIdx: i})
	}
	if p.loadErr != nil {
		refs = append(refs, rowRef{kind: rowError})
	} else if len(p.items) == 0 && !p.loading {
		// Never an empty, un-selectable list once loading settles.
		refs = append(refs, rowRef{kind: rowPlaceholder})
	}
	if p.cfg.Custom != nil && p.text != "" {
		refs = append(refs, rowRef{kind: rowCustom})
	}
	return refs
}

func (p *Picker[T]) rows() []Choice {
	refs := p.refs()
	rows := make([]Choice, 0, len(refs))
	for _, ref := range refs {
		switch ref.kind {
		case rowCustom:
			rows = append(rows, p.cfg.Custom.row(p.text))
		case rowError:
			rows = append(rows, choiceOf(*p.loadErr))
		case rowPlaceholder:
			rows = append(rows, choiceOf(p.placeholder()))
		default:
			rows = append(rows, choiceOf(p.items[ref.itemIdx]))
		}
	}
	return rows
}

func choiceOf[T any](it Item[T]) Choice {
	return Choice{
		Label:       it.Label,
		Description: it.Description,
		Detail:      it.Detail,
		Invalid:     it.Invalid,
		Message:     it.Message,
	}
}

func (p *Picker[T]) placeholder() Item[T] {
	if p.cfg.Placeholder != nil {
		return *p.cfg.Placeholder
	}
	return Item[T]{Label: "No items found", Invalid: true}
}

func (p *Picker[T]) errorItem(err error) Item[T] {
	if p.cfg.ErrorItem != nil {
		return p.cfg.ErrorItem(err)
	}
	return Item[T]{Label: "Failed to load items", Description: err.Error(), Invalid: true}
}

// merge appends a page, re-sorts when a comparator is configured, and
// keeps the highlighted row pinned to the same label.
func (p *Picker[T]) merge(existing, incoming []Item[T]) []Item[T] {
	out := append(existing, incoming...)
	if p.cfg.Less != nil {
		sort.SliceStable(out, func(i, j int) bool { return p.cfg.Less(out[i], out[j]) })
	}
	return out
}

// refresh pushes the current rows to the surface, preserving the
// highlighted selection by label identity. Until the highlight has
// been pinned (by the user or by a seed match), every merge re-tries
// the previous-answer seed, so the match still lands when the seeded
// item arrives in a late page.
func (p *Picker[T]) refresh() {
	rows := p.rows()
	next := -1
	if !p.hlPinned {
		if i := p.lastResponseIndex(rows); i >= 0 {
			next = i
			p.hlPinned = true
		}
	}
	if next == -1 && p.hlLabel != "" {
		for i, r := range rows {
			if r.Label == p.hlLabel {
				next = i
				break
			}
		}
	}
	if next == -1 {
		next = 0
	}
	p.highlight = next
	if next < len(rows) {
		p.hlLabel = rows[next].Label
	}
	p.surface.SetItems(rows, next)
	p.pushEstimate()
}

// initialHighlight seeds the selection from a previous answer, so back
// navigation lands on what the user chose before.
func (p *Picker[T]) initialHighlight(rows []Choice) int {
	if i := p.lastResponseIndex(rows); i >= 0 {
		p.hlPinned = true
		return i
	}
	return 0
}

// lastResponseIndex finds the row matching the seeded previous answer,
// by value equality first and label as a fallback. Returns -1 when
// nothing matches.
func (p *Picker[T]) lastResponseIndex(rows []Choice) int {
	if p.last == nil {
		return -1
	}
	for i, ref := range p.refs() {
		if ref.kind != rowItem {
			continue
		}
		it := p.items[ref.itemIdx]
		if it.Resolve == nil && reflect.DeepEqual(it.Value, *p.last) {
			return i
		}
	}
	if p.lastLabel != "" {
		for i, r := range rows {
			if r.Label == p.lastLabel {
				return i
			}
		}
	}
	return -1
}

// estimateFor memoizes per-item step estimates by the item's stable
// hash. Items with deferred values or the skip flag estimate 0.
func (p *Picker[T]) estimateFor(it Item[T]) int {
	if p.est == nil || it.SkipEstimate || it.Resolve != nil {
		return 0
	}
	key := it.hash()
	if e, ok := p.estimates[key]; ok {
		return e
	}
	e := p.est(it.Value)
	p.estimates[key] = e
	return e
}

func (p *Picker[T]) highlightEstimate(rows []Choice) (int, bool) {
	if p.est == nil || len(rows) == 0 {
		return 0, false
	}
	refs := p.refs()
	if p.highlight < 0 || p.highlight >= len(refs) {
		return 0, false
	}
	ref := refs[p.highlight]
	if ref.kind != rowItem {
		return 0, true
	}
	return p.estimateFor(p.items[ref.itemIdx]), true
}

func (p *Picker[T]) pushEstimate() {
	if e, ok := p.highlightEstimate(p.rows()); ok {
		p.surface.SetSteps(p.current, p.current+e)
	}
}

// commit resolves a committed selection, identified by row labels so a
// commit racing a page merge still lands on the rows the user saw.
// done is false when the commit is ignored (empty or unknown
// selection, invalid rows, resolver failure) and the prompt loop keeps
// running.
func (p *Picker[T]) commit(ctx context.Context, labels []string, text string) (wizard.Result[T], bool) {
	if len(labels) == 0 {
		return wizard.Result[T]{}, false
	}
	refs := p.refs()
	rows := p.rows()

	indices := make([]int, 0, len(labels))
	for _, label := range labels {
		found := -1
		for i, r := range rows {
			if r.Label == label {
				found = i
				break
			}
		}
		if found == -1 {
			return wizard.Result[T]{}, false
		}
		indices = append(indices, found)
	}

	// Item side effects fire before validity is checked.
	for _, i := range indices {
		if ref := refs[i]; ref.kind == rowItem && p.items[ref.itemIdx].OnClick != nil {
			p.items[ref.itemIdx].OnClick()
		}
	}
	for _, i := range indices {
		if rows[i].Invalid {
			return wizard.Result[T]{}, false
		}
	}

	ref := refs[indices[0]]
	switch ref.kind {
	case rowCustom:
		v, sig := p.cfg.Custom.Parse(text)
		if sig != wizard.SignalNone {
			return wizard.Signalled[T](sig), true
		}
		p.last = &v
		p.lastLabel = p.cfg.Custom.Label
		return wizard.Answer(v), true
	case rowPlaceholder, rowError:
		return wizard.Result[T]{}, false
	default:
		it := &p.items[ref.itemIdx]
		if it.Resolve != nil {
			v, err := it.Resolve(ctx)
			if err != nil {
				it.Invalid = true
				it.Message = err.Error()
				p.refresh()
				return wizard.Result[T]{}, false
			}
			// Memoize so re-selecting does not re-run the resolver.
			it.Value = v
			it.Resolve = nil
		}
		v := it.Value
		p.last = &v
		p.lastLabel = it.Label
		return wizard.Answer(v), true
	}
}
