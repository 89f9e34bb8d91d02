// Package collection implements the change-propagation primitive
// (spec §4.A, component B) and the user-facing mutable root built on
// top of it (component C, SourceList).
package collection

import (
	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/ddserr"
)

// ChangeAwareList is an ordered sequence of T that records every
// mutation since the last CaptureChanges call as a coalesced change
// batch. It is the propagation primitive every operator and SourceList
// is built on.
type ChangeAwareList[T any] struct {
	items   []T
	pending *change.Set[T]
}

// NewChangeAwareList creates an empty list, optionally pre-sizing its
// backing slice with capacityHint.
func NewChangeAwareList[T any](capacityHint int) *ChangeAwareList[T] {
	return &ChangeAwareList[T]{
		items:   make([]T, 0, capacityHint),
		pending: change.NewSet[T](0),
	}
}

// Count returns the current number of items.
func (l *ChangeAwareList[T]) Count() int { return len(l.items) }

// At returns the item at index i.
func (l *ChangeAwareList[T]) At(i int) T { return l.items[i] }

// Items returns a snapshot copy of the current contents.
func (l *ChangeAwareList[T]) Items() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Add appends x to the end of the list.
func (l *ChangeAwareList[T]) Add(x T) {
	l.insert(len(l.items), x)
}

// Insert inserts x at index i, shifting subsequent items right.
func (l *ChangeAwareList[T]) Insert(i int, x T) error {
	if i < 0 || i > len(l.items) {
		return ddserr.ErrIndexOutOfRange
	}
	l.insert(i, x)
	return nil
}

func (l *ChangeAwareList[T]) insert(i int, x T) {
	l.items = append(l.items, x)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = x
	l.recordAdd(i, x)
}

// AddRange appends xs to the end of the list as one batch.
func (l *ChangeAwareList[T]) AddRange(xs []T) {
	l.InsertRange(xs, len(l.items))
}

// InsertRange inserts xs starting at index i as one batch.
func (l *ChangeAwareList[T]) InsertRange(xs []T, i int) error {
	if i < 0 || i > len(l.items) {
		return ddserr.ErrIndexOutOfRange
	}
	if len(xs) == 0 {
		return nil
	}
	out := make([]T, 0, len(l.items)+len(xs))
	out = append(out, l.items[:i]...)
	out = append(out, xs...)
	out = append(out, l.items[i:]...)
	l.items = out
	l.recordAddRange(i, xs)
	return nil
}

// RemoveAt removes the item at index i.
func (l *ChangeAwareList[T]) RemoveAt(i int) error {
	if i < 0 || i >= len(l.items) {
		return ddserr.ErrIndexOutOfRange
	}
	removed := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.recordRemove(i, removed)
	return nil
}

// RemoveRange removes n items starting at index i as one batch.
func (l *ChangeAwareList[T]) RemoveRange(i, n int) error {
	if i < 0 || n < 0 || i+n > len(l.items) {
		return ddserr.ErrIndexOutOfRange
	}
	if n == 0 {
		return nil
	}
	removed := make([]T, n)
	copy(removed, l.items[i:i+n])
	l.items = append(l.items[:i], l.items[i+n:]...)
	l.recordRemoveRange(i, removed)
	return nil
}

// Set replaces the item at index i with x, recording a Replace.
func (l *ChangeAwareList[T]) Set(i int, x T) error {
	if i < 0 || i >= len(l.items) {
		return ddserr.ErrIndexOutOfRange
	}
	previous := l.items[i]
	l.items[i] = x
	l.pending.Append(change.NewReplace(x, previous, i))
	return nil
}

// Move relocates the item at index from to index to. Moving an item
// onto its own position is a no-op and is not recorded.
func (l *ChangeAwareList[T]) Move(from, to int) error {
	if from < 0 || from >= len(l.items) || to < 0 || to >= len(l.items) {
		return ddserr.ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}
	item := l.items[from]
	l.items = append(l.items[:from], l.items[from+1:]...)
	l.items = append(l.items, item)
	copy(l.items[to+1:], l.items[to:len(l.items)-1])
	l.items[to] = item
	l.pending.Append(change.NewMoved(item, to, from))
	return nil
}

// Refresh records a Refresh of the item at index i without modifying
// it structurally (the caller has already mutated the item in place
// or is signalling an external attribute change).
func (l *ChangeAwareList[T]) Refresh(i int) error {
	if i < 0 || i >= len(l.items) {
		return ddserr.ErrIndexOutOfRange
	}
	l.pending.Append(change.NewRefresh(l.items[i], i))
	return nil
}

// RefreshItem locates x by equals and records a Refresh. It reports
// whether x was found.
func (l *ChangeAwareList[T]) RefreshItem(x T, equals func(a, b T) bool) bool {
	for i, item := range l.items {
		if equals(item, x) {
			l.pending.Append(change.NewRefresh(l.items[i], i))
			return true
		}
	}
	return false
}

// Clear empties the list, recording a Clear of everything that was
// present.
func (l *ChangeAwareList[T]) Clear() {
	if len(l.items) == 0 {
		return
	}
	removed := l.items
	l.items = make([]T, 0, cap(l.items))
	l.pending.Append(change.NewClear(removed))
}

// CaptureChanges returns the batch of changes recorded since the last
// capture and resets the pending batch. Calling it twice in a row with
// no intervening mutation returns an empty set both times (spec §8
// invariant 2).
//
// Clear inference (spec §4.A): if the list is now empty, every
// recorded entry was a removal, and more than one item was removed in
// total, the batch is rewritten as a single Clear carrying all removed items.
func (l *ChangeAwareList[T]) CaptureChanges() *change.Set[T] {
	captured := l.pending
	l.pending = change.NewSet[T](0)

	if len(l.items) == 0 && captured.TotalChanges() > 1 && captured.Removes() == captured.TotalChanges() {
		rewritten := change.NewSet[T](1)
		rewritten.Append(change.NewClear(captured.RemovedItems()))
		return rewritten
	}
	return captured
}

// IndexOf returns the index of the first item for which equals
// reports true against x, or -1 if none matches.
func (l *ChangeAwareList[T]) IndexOf(x T, equals func(a, b T) bool) int {
	for i, item := range l.items {
		if equals(item, x) {
			return i
		}
	}
	return -1
}

// restoreSnapshot resets the list to items and discards any pending
// batch, used to roll back a failed scoped Edit (spec §7).
func (l *ChangeAwareList[T]) restoreSnapshot(items []T) {
	l.items = append([]T(nil), items...)
	l.pending = change.NewSet[T](0)
}

func (l *ChangeAwareList[T]) recordAdd(i int, x T) {
	if last, ok := l.pending.Last(); ok {
		switch last.Reason {
		case change.Add:
			if i == last.CurrentIndex+1 || i == last.CurrentIndex-1 {
				l.pending.PopLast()
				start := last.CurrentIndex
				var items []T
				if i < start {
					items = []T{x, last.Current}
					start = i
				} else {
					items = []T{last.Current, x}
				}
				l.pending.Append(change.NewAddRange(items, start))
				return
			}
		case change.AddRange:
			if i >= last.StartingIndex-1 && i <= last.StartingIndex+len(last.Items) {
				l.pending.PopLast()
				items := extendAt(last.Items, last.StartingIndex, i, x)
				start := last.StartingIndex
				if i < start {
					start = i
				}
				l.pending.Append(change.NewAddRange(items, start))
				return
			}
		}
	}
	l.pending.Append(change.NewAdd(x, i))
}

func (l *ChangeAwareList[T]) recordAddRange(i int, xs []T) {
	if last, ok := l.pending.Last(); ok && last.Reason == change.AddRange &&
		i >= last.StartingIndex-len(xs) && i <= last.StartingIndex+len(last.Items) {
		l.pending.PopLast()
		start := last.StartingIndex
		var items []T
		if i <= start {
			items = append(append([]T{}, xs...), last.Items...)
			start = i
		} else {
			items = append(append([]T{}, last.Items...), xs...)
		}
		l.pending.Append(change.NewAddRange(items, start))
		return
	}
	l.pending.Append(change.NewAddRange(xs, i))
}

func (l *ChangeAwareList[T]) recordRemove(i int, removed T) {
	if last, ok := l.pending.Last(); ok {
		switch last.Reason {
		case change.Remove:
			if i == last.CurrentIndex || i == last.CurrentIndex-1 {
				l.pending.PopLast()
				start := last.CurrentIndex
				var items []T
				if i < start {
					items = []T{removed, last.Current}
					start = i
				} else {
					items = []T{last.Current, removed}
				}
				l.pending.Append(change.NewRemoveRange(items, start))
				return
			}
		case change.RemoveRange:
			if i >= last.StartingIndex-1 && i <= last.StartingIndex+len(last.Items) {
				l.pending.PopLast()
				items := extendAt(last.Items, last.StartingIndex, i, removed)
				start := last.StartingIndex
				if i < start {
					start = i
				}
				l.pending.Append(change.NewRemoveRange(items, start))
				return
			}
		}
	}
	l.pending.Append(change.NewRemove(removed, i))
}

func (l *ChangeAwareList[T]) recordRemoveRange(i int, removed []T) {
	if last, ok := l.pending.Last(); ok && last.Reason == change.RemoveRange &&
		i >= last.StartingIndex-len(removed) && i <= last.StartingIndex+len(last.Items) {
		l.pending.PopLast()
		start := last.StartingIndex
		var items []T
		if i <= start {
			items = append(append([]T{}, removed...), last.Items...)
			start = i
		} else {
			items = append(append([]T{}, last.Items...), removed...)
		}
		l.pending.Append(change.NewRemoveRange(items, start))
		return
	}
	l.pending.Append(change.NewRemoveRange(removed, i))
}

// extendAt inserts x into items (currently starting at start) at
// absolute index i, which the caller has already verified falls
// within [start-1, start+len(items)].
func extendAt[T any](items []T, start, i int, x T) []T {
	pos := i - start
	if pos < 0 {
		return append([]T{x}, items...)
	}
	if pos >= len(items) {
		return append(items, x)
	}
	out := make([]T, 0, len(items)+1)
	out = append(out, items[:pos]...)
	out = append(out, x)
	out = append(out, items[pos:]...)
	return out
}
