package picker

import (
	"context"
	"io"
)

// PageFunc yields the next page of items. It returns io.EOF when the
// sequence is exhausted (a final non-empty page may accompany it).
type PageFunc[T any] func(ctx context.Context) ([]Item[T], error)

// Source supplies the picker's items in one of three modes: a fixed
// collection, a single deferred collection, or a restartable lazy
// sequence of pages. Each Prompt call restarts a paged source from the
// beginning.
type Source[T any] struct {
	fixed    []Item[T]
	deferred func(ctx context.Context) ([]Item[T], error)
	pages    func() PageFunc[T]
}

// Fixed supplies a ready-made collection.
func Fixed[T any](items ...Item[T]) Source[T] {
	return Source[T]{fixed: items}
}

// Deferred supplies the whole collection from a single asynchronous
// load.
func Deferred[T any](fn func(ctx context.Context) ([]Item[T], error)) Source[T] {
	return Source[T]{deferred: fn}
}

// Paged supplies items as a lazy, possibly unbounded page sequence.
// next is called once per Prompt to obtain a fresh iterator.
func Paged[T any](next func() PageFunc[T]) Source[T] {
	return Source[T]{pages: next}
}

type page[T any] struct {
	items []Item[T]
	err   error
}

// immediate reports whether the source needs no loading at all.
func (s Source[T]) immediate() bool {
	return s.deferred == nil && s.pages == nil
}

// run streams pages into out until the source is exhausted, fails, or
// ctx is cancelled, then closes out. Runs on its own goroutine; the
// picker loop is the only consumer.
func (s Source[T]) run(ctx context.Context, out chan<- page[T]) {
	defer close(out)
	send := func(p page[T]) bool {
		select {
		case out <- p:
			return true
		case <-ctx.Done():
			return false
		}
	}
	// Fixed sources never reach run: the picker inlines them.
	switch {
	case s.deferred != nil:
		items, err := s.deferred(ctx)
		send(page[T]{items: items, err: err})
	case s.pages != nil:
		next := s.pages()
		for {
			items, err := next(ctx)
			if len(items) > 0 {
				if !send(page[T]{items: items}) {
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				send(page[T]{err: err})
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}
}
