package change

// Set is an ordered batch of Change[T] representing one atomic
// propagation unit. Counters are maintained incrementally on Append so
// every accessor is O(1).
type Set[T any] struct {
	changes  []Change[T]
	adds     int
	removes  int
	replaces int
	refreshes int
	moves    int
}

// NewSet builds an empty change set, optionally pre-sizing its
// backing slice.
func NewSet[T any](capacityHint int) *Set[T] {
	return &Set[T]{changes: make([]Change[T], 0, capacityHint)}
}

// Append records one more change in the batch and updates the
// derived counters.
func (s *Set[T]) Append(c Change[T]) {
	s.changes = append(s.changes, c)
	switch c.Reason {
	case Add, AddRange:
		s.adds += c.Len()
	case Remove, RemoveRange, Clear:
		s.removes += c.Len()
	case Replace:
		s.replaces++
	case Refresh:
		s.refreshes++
	case Moved:
		s.moves++
	}
}

// Last returns the most recently appended entry, used by the
// change-aware list's coalescing heuristic (spec §4.A) to decide
// whether the next mutation can be merged into it.
func (s *Set[T]) Last() (Change[T], bool) {
	if s == nil || len(s.changes) == 0 {
		return Change[T]{}, false
	}
	return s.changes[len(s.changes)-1], true
}

// PopLast removes and returns the most recently appended entry,
// reverting its contribution to the derived counters. Used alongside
// Last to rewrite the tail of the batch when two mutations coalesce.
func (s *Set[T]) PopLast() (Change[T], bool) {
	if s == nil || len(s.changes) == 0 {
		return Change[T]{}, false
	}
	last := s.changes[len(s.changes)-1]
	s.changes = s.changes[:len(s.changes)-1]
	switch last.Reason {
	case Add, AddRange:
		s.adds -= last.Len()
	case Remove, RemoveRange, Clear:
		s.removes -= last.Len()
	case Replace:
		s.replaces--
	case Refresh:
		s.refreshes--
	case Moved:
		s.moves--
	}
	return last, true
}

// Changes returns the ordered entries of the batch. The returned
// slice must not be mutated by the caller.
func (s *Set[T]) Changes() []Change[T] {
	if s == nil {
		return nil
	}
	return s.changes
}

// Count is the number of entries in the batch (not the number of
// items they touch — range changes count as one entry).
func (s *Set[T]) Count() int {
	if s == nil {
		return 0
	}
	return len(s.changes)
}

// Adds is the total number of items added across Add and AddRange
// entries.
func (s *Set[T]) Adds() int {
	if s == nil {
		return 0
	}
	return s.adds
}

// Removes is the total number of items removed across Remove,
// RemoveRange and Clear entries.
func (s *Set[T]) Removes() int {
	if s == nil {
		return 0
	}
	return s.removes
}

// Replaces is the number of Replace entries.
func (s *Set[T]) Replaces() int {
	if s == nil {
		return 0
	}
	return s.replaces
}

// Refreshes is the number of Refresh entries.
func (s *Set[T]) Refreshes() int {
	if s == nil {
		return 0
	}
	return s.refreshes
}

// Moves is the number of Moved entries.
func (s *Set[T]) Moves() int {
	if s == nil {
		return 0
	}
	return s.moves
}

// TotalChanges is the sum of every item-level effect in the batch:
// Adds + Removes + Replaces + Refreshes + Moves.
func (s *Set[T]) TotalChanges() int {
	return s.Adds() + s.Removes() + s.Replaces() + s.Refreshes() + s.Moves()
}

// IsEmpty reports whether the batch has no entries at all, used by
// the Not-Empty stream contract (spec §8) to suppress vacuous
// emissions.
func (s *Set[T]) IsEmpty() bool {
	return s.Count() == 0
}

// AddedItems returns every item carried by an Add or AddRange entry,
// in batch order.
func (s *Set[T]) AddedItems() []T {
	out := make([]T, 0, s.adds)
	for _, c := range s.changes {
		switch c.Reason {
		case Add:
			out = append(out, c.Current)
		case AddRange:
			out = append(out, c.Items...)
		}
	}
	return out
}

// RemovedItems returns every item carried by a Remove, RemoveRange or
// Clear entry, in batch order.
func (s *Set[T]) RemovedItems() []T {
	out := make([]T, 0, s.removes)
	for _, c := range s.changes {
		switch c.Reason {
		case Remove:
			out = append(out, c.Current)
		case RemoveRange, Clear:
			out = append(out, c.Items...)
		}
	}
	return out
}

// Apply replays the change set on top of items, a snapshot of the
// producer's pre-state, and returns the producer's post-state. Used
// by round-trip tests (spec §8) and by EditDiff-style consumers that
// maintain their own mirror of the sequence.
func Apply[T any](items []T, s *Set[T]) []T {
	out := append([]T(nil), items...)
	for _, c := range s.Changes() {
		out = applyOne(out, c)
	}
	return out
}

func applyOne[T any](out []T, c Change[T]) []T {
	switch c.Reason {
	case Add:
		return insertAt(out, c.CurrentIndex, c.Current)
	case AddRange:
		return insertRangeAt(out, c.StartingIndex, c.Items)
	case Remove:
		return removeAt(out, c.CurrentIndex)
	case RemoveRange:
		return removeRangeAt(out, c.StartingIndex, len(c.Items))
	case Replace:
		out[c.CurrentIndex] = c.Current
		return out
	case Refresh:
		if c.CurrentIndex >= 0 && c.CurrentIndex < len(out) {
			out[c.CurrentIndex] = c.Current
		}
		return out
	case Moved:
		item := out[c.PreviousIndex]
		out = removeAt(out, c.PreviousIndex)
		return insertAt(out, c.CurrentIndex, item)
	case Clear:
		return out[:0]
	default:
		return out
	}
}

func insertAt[T any](items []T, index int, item T) []T {
	items = append(items, item)
	copy(items[index+1:], items[index:])
	items[index] = item
	return items
}

func insertRangeAt[T any](items []T, index int, add []T) []T {
	out := make([]T, 0, len(items)+len(add))
	out = append(out, items[:index]...)
	out = append(out, add...)
	out = append(out, items[index:]...)
	return out
}

func removeAt[T any](items []T, index int) []T {
	return append(items[:index], items[index+1:]...)
}

func removeRangeAt[T any](items []T, index, n int) []T {
	return append(items[:index], items[index+n:]...)
}
