package collection

import (
	"sync"

	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/concurrent"
	"github.com/mnohosten/flowset/pkg/ddserr"
	"github.com/mnohosten/flowset/pkg/filter"
	"github.com/mnohosten/flowset/pkg/stream"
)

// SourceList is the user-facing mutable root of a pipeline (spec §2,
// component C). It exclusively owns its contents, exposes a Connect
// operation that produces a change stream, and supports scoped batch
// edits that emit one change set. Dropping every subscription does
// not clear the list; dropping the SourceList itself (simply letting
// it become unreachable) is what ends the stream, per spec §3's
// ownership lifecycle.
type SourceList[T any] struct {
	mu        sync.Mutex
	list      *ChangeAwareList[T]
	undo      *concurrent.LockFreeStack[[]T]
	observers map[int]stream.Observer[T]
	nextID    int
}

// NewSourceList creates an empty source list.
func NewSourceList[T any]() *SourceList[T] {
	return &SourceList[T]{
		list:      NewChangeAwareList[T](0),
		undo:      concurrent.NewLockFreeStack[[]T](),
		observers: make(map[int]stream.Observer[T]),
	}
}

// Edit runs fn against the list inside one atomic scope and emits
// exactly one change set on success. If fn returns an error, the list
// is rolled back to its pre-edit state and the error is returned
// without emitting anything (spec §7).
func (s *SourceList[T]) Edit(fn func(l *ChangeAwareList[T]) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.undo.Push(s.list.Items())
	if err := fn(s.list); err != nil {
		if snapshot, ok := s.undo.Pop(); ok {
			s.list.restoreSnapshot(snapshot)
		}
		return err
	}
	s.undo.Pop()

	cs := s.list.CaptureChanges()
	s.emitLocked(cs)
	return nil
}

func (s *SourceList[T]) emitLocked(cs *change.Set[T]) {
	if cs.IsEmpty() {
		return
	}
	for _, o := range s.observers {
		o.OnNext(cs)
	}
}

// Add appends x.
func (s *SourceList[T]) Add(x T) { s.Edit(func(l *ChangeAwareList[T]) error { l.Add(x); return nil }) }

// AddRange appends xs as one batch.
func (s *SourceList[T]) AddRange(xs []T) {
	s.Edit(func(l *ChangeAwareList[T]) error { l.AddRange(xs); return nil })
}

// Insert inserts x at index i.
func (s *SourceList[T]) Insert(i int, x T) error {
	return s.Edit(func(l *ChangeAwareList[T]) error { return l.Insert(i, x) })
}

// InsertRange inserts xs starting at index i as one batch.
func (s *SourceList[T]) InsertRange(xs []T, i int) error {
	return s.Edit(func(l *ChangeAwareList[T]) error { return l.InsertRange(xs, i) })
}

// RemoveAt removes the item at index i.
func (s *SourceList[T]) RemoveAt(i int) error {
	return s.Edit(func(l *ChangeAwareList[T]) error { return l.RemoveAt(i) })
}

// RemoveRange removes n items starting at index i.
func (s *SourceList[T]) RemoveRange(i, n int) error {
	return s.Edit(func(l *ChangeAwareList[T]) error { return l.RemoveRange(i, n) })
}

// Remove locates x by equals and removes it. Returns ErrItemNotFound
// if no item matches.
func (s *SourceList[T]) Remove(x T, equals func(a, b T) bool) error {
	return s.Edit(func(l *ChangeAwareList[T]) error {
		i := l.IndexOf(x, equals)
		if i < 0 {
			return ddserr.ErrItemNotFound
		}
		return l.RemoveAt(i)
	})
}

// RemoveMany removes every item in xs that is found by equals,
// skipping any that are not found, as one batch.
func (s *SourceList[T]) RemoveMany(xs []T, equals func(a, b T) bool) error {
	return s.Edit(func(l *ChangeAwareList[T]) error {
		for _, x := range xs {
			if i := l.IndexOf(x, equals); i >= 0 {
				l.RemoveAt(i)
			}
		}
		return nil
	})
}

// Replace locates old by equals and replaces it with next.
func (s *SourceList[T]) Replace(old, next T, equals func(a, b T) bool) error {
	return s.Edit(func(l *ChangeAwareList[T]) error {
		i := l.IndexOf(old, equals)
		if i < 0 {
			return ddserr.ErrItemNotFound
		}
		return l.Set(i, next)
	})
}

// ReplaceAt replaces the item at index i with x.
func (s *SourceList[T]) ReplaceAt(i int, x T) error {
	return s.Edit(func(l *ChangeAwareList[T]) error { return l.Set(i, x) })
}

// Move relocates the item at index from to index to.
func (s *SourceList[T]) Move(from, to int) error {
	return s.Edit(func(l *ChangeAwareList[T]) error { return l.Move(from, to) })
}

// Clear empties the list.
func (s *SourceList[T]) Clear() {
	s.Edit(func(l *ChangeAwareList[T]) error { l.Clear(); return nil })
}

// Count returns the current number of items.
func (s *SourceList[T]) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Count()
}

// Items returns a snapshot copy of the current contents.
func (s *SourceList[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Items()
}

// Connect returns the change stream for this source list. A new
// subscriber first receives the current contents as one initial
// AddRange batch (or nothing, if empty), then the loaded signal, then
// every subsequent live change. If predicate is non-nil, both the
// initial snapshot and every live change are restricted to items
// matching it (delegated to the immutable Filter operator, component
// E).
func (s *SourceList[T]) Connect(predicate func(T) bool) stream.ChangeStream[T] {
	raw := stream.New(func(o stream.Observer[T]) stream.Cancel {
		s.mu.Lock()
		id := s.nextID
		s.nextID++
		s.observers[id] = o
		items := s.list.Items()
		s.mu.Unlock()

		if len(items) > 0 {
			initial := change.NewSet[T](1)
			initial.Append(change.NewAddRange(items, 0))
			if o.OnNext != nil {
				o.OnNext(initial)
			}
		}
		if o.OnLoaded != nil {
			o.OnLoaded()
		}

		return func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		}
	})

	if predicate == nil {
		return raw
	}
	return filter.Immutable(raw, predicate)
}
