// Package picker implements the selection-list Prompter: a list of
// choices supplied synchronously, as a single deferred collection, or
// as an incrementally loaded page sequence, with live step estimation
// and an optional free-text "custom input" extension.
//
// The package renders nothing itself. It drives the host-provided
// Surface contract and keeps all state mutation on the goroutine
// running Prompt; surface callbacks only enqueue events.
package picker

import (
	"context"
	"fmt"
	"hash/fnv"
)

// Item is one selectable entry.
type Item[T any] struct {
	Label       string
	Description string
	Detail      string

	// Value is the answer this item resolves to. If Resolve is set it
	// takes precedence: the value is produced on first selection and
	// memoized, so re-selecting the item does not re-run it.
	Value   T
	Resolve func(ctx context.Context) (T, error)

	// SkipEstimate excludes the item from step estimation; its
	// estimate is reported as 0.
	SkipEstimate bool

	// Invalid marks the item selectable but rejected on commit, with
	// Message shown inline.
	Invalid bool
	Message string

	// OnClick fires when the item is part of a committed selection,
	// before validity is checked.
	OnClick func()
}

// hash is the stable identity used to memoize step estimates.
func (it Item[T]) hash() string {
	h := fnv.New64a()
	h.Write([]byte(it.Label))
	h.Write([]byte{0})
	h.Write([]byte(it.Description))
	h.Write([]byte{0})
	h.Write([]byte(it.Detail))
	return fmt.Sprintf("%x", h.Sum64())
}
