// Package filter implements the immutable and mutable predicate
// projections (spec §4.B, component E): a derived change stream that
// contains exactly the upstream items matching a predicate, with
// change minimisation so unaffected items never re-trigger the
// predicate.
package filter

import (
	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/stream"
)

// entry tracks one upstream item and whether it currently matches, so
// a later upstream change only re-evaluates the items it actually
// touches.
type entry[T any] struct {
	item    T
	matched bool
}

// Immutable derives a stream whose emitted list contains exactly the
// upstream items for which predicate holds, preserving upstream
// order. predicate is fixed for the lifetime of the subscription; see
// Mutable for a stream of changing predicates.
func Immutable[T any](upstream stream.ChangeStream[T], predicate func(T) bool) stream.ChangeStream[T] {
	return stream.New(func(o stream.Observer[T]) stream.Cancel {
		f := &state[T]{predicate: predicate}
		return upstream.Subscribe(stream.Observer[T]{
			OnNext:     func(cs *change.Set[T]) { f.apply(cs, o) },
			OnError:    o.OnError,
			OnComplete: o.OnComplete,
			OnLoaded:   o.OnLoaded,
		})
	})
}

// state is the auxiliary (item, matched) mirror of the upstream list,
// shared by Immutable and Mutable.
type state[T any] struct {
	entries   []entry[T]
	predicate func(T) bool
}

// filteredIndexBefore converts an upstream index into the index it
// would occupy in the filtered (matched-only) projection: the number of
// matched entries before it. Whether index itself matches is not
// checked.
func (f *state[T]) filteredIndexBefore(upstreamIndex int) int {
	count := 0
	for i := 0; i < upstreamIndex && i < len(f.entries); i++ {
		if f.entries[i].matched {
			count++
		}
	}
	return count
}

func (f *state[T]) apply(cs *change.Set[T], o stream.Observer[T]) {
	out := change.NewSet[T](cs.Count())

	for _, c := range cs.Changes() {
		switch c.Reason {
		case change.Add:
			f.insertEntry(c.CurrentIndex, entry[T]{item: c.Current, matched: f.predicate(c.Current)})
			if f.entries[c.CurrentIndex].matched {
				out.Append(change.NewAdd(c.Current, f.filteredIndexBefore(c.CurrentIndex)))
			}

		case change.AddRange:
			for i, item := range c.Items {
				idx := c.StartingIndex + i
				f.insertEntry(idx, entry[T]{item: item, matched: f.predicate(item)})
			}
			var matched []T
			start := -1
			for i, item := range c.Items {
				idx := c.StartingIndex + i
				if f.entries[idx].matched {
					if start == -1 {
						start = f.filteredIndexBefore(idx)
					}
					matched = append(matched, item)
				}
			}
			if len(matched) > 0 {
				out.Append(change.NewAddRange(matched, start))
			}

		case change.Remove:
			e := f.entries[c.CurrentIndex]
			filteredIdx := f.filteredIndexBefore(c.CurrentIndex)
			f.removeEntry(c.CurrentIndex)
			if e.matched {
				out.Append(change.NewRemove(c.Current, filteredIdx))
			}

		case change.RemoveRange:
			var removedMatched []T
			start := -1
			for i := range c.Items {
				idx := c.StartingIndex + i
				if f.entries[idx].matched {
					if start == -1 {
						start = f.filteredIndexBefore(idx)
					}
					removedMatched = append(removedMatched, c.Items[i])
				}
			}
			f.removeRange(c.StartingIndex, len(c.Items))
			if len(removedMatched) > 0 {
				out.Append(change.NewRemoveRange(removedMatched, start))
			}

		case change.Replace:
			wasMatch := f.entries[c.CurrentIndex].matched
			isMatch := f.predicate(c.Current)
			filteredIdxBefore := f.filteredIndexBefore(c.CurrentIndex)
			f.entries[c.CurrentIndex] = entry[T]{item: c.Current, matched: isMatch}

			switch {
			case wasMatch && isMatch:
				out.Append(change.NewReplace(c.Current, c.Previous, filteredIdxBefore))
			case wasMatch && !isMatch:
				out.Append(change.NewRemove(c.Previous, filteredIdxBefore))
			case !wasMatch && isMatch:
				out.Append(change.NewAdd(c.Current, filteredIdxBefore))
			}

		case change.Refresh:
			wasMatch := f.entries[c.CurrentIndex].matched
			isMatch := f.predicate(c.Current)
			filteredIdxBefore := f.filteredIndexBefore(c.CurrentIndex)
			f.entries[c.CurrentIndex] = entry[T]{item: c.Current, matched: isMatch}

			switch {
			case wasMatch && isMatch:
				out.Append(change.NewRefresh(c.Current, filteredIdxBefore))
			case wasMatch && !isMatch:
				out.Append(change.NewRemove(c.Current, filteredIdxBefore))
			case !wasMatch && isMatch:
				out.Append(change.NewAdd(c.Current, filteredIdxBefore))
			}

		case change.Moved:
			e := f.entries[c.PreviousIndex]
			wasFilteredIdx := f.filteredIndexBefore(c.PreviousIndex)
			f.removeEntry(c.PreviousIndex)
			f.insertEntry(c.CurrentIndex, e)
			if e.matched {
				newFilteredIdx := f.filteredIndexBefore(c.CurrentIndex)
				if newFilteredIdx != wasFilteredIdx {
					out.Append(change.NewMoved(e.item, newFilteredIdx, wasFilteredIdx))
				}
			}

		case change.Clear:
			var removed []T
			for _, e := range f.entries {
				if e.matched {
					removed = append(removed, e.item)
				}
			}
			f.entries = f.entries[:0]
			if len(removed) > 0 {
				out.Append(change.NewClear(removed))
			}
		}
	}

	if !out.IsEmpty() {
		o.OnNext(out)
	}
}

func (f *state[T]) insertEntry(i int, e entry[T]) {
	f.entries = append(f.entries, entry[T]{})
	copy(f.entries[i+1:], f.entries[i:])
	f.entries[i] = e
}

func (f *state[T]) removeEntry(i int) {
	f.entries = append(f.entries[:i], f.entries[i+1:]...)
}

func (f *state[T]) removeRange(i, n int) {
	f.entries = append(f.entries[:i], f.entries[i+n:]...)
}
