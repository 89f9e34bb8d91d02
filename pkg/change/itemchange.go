package change

// UnknownIndex marks a position as unknown or ignored; only
// non-positional operators may produce or consume it.
const UnknownIndex = -1

// Change describes one mutation of an ordered sequence of T. Exactly
// one of the single-item shape (Current/Previous/CurrentIndex/
// PreviousIndex) or the range shape (Items/StartingIndex) is
// populated; which one is determined by Reason.IsRange().
type Change[T any] struct {
	Reason Reason

	// Single-item payload.
	Current       T
	Previous      T
	HasPrevious   bool
	CurrentIndex  int
	PreviousIndex int

	// Range payload (AddRange, RemoveRange, Clear).
	Items         []T
	StartingIndex int
}

// NewAdd builds a single-item Add at the given index.
func NewAdd[T any](item T, index int) Change[T] {
	return Change[T]{Reason: Add, Current: item, CurrentIndex: index, PreviousIndex: UnknownIndex}
}

// NewRemove builds a single-item Remove at the given index.
func NewRemove[T any](item T, index int) Change[T] {
	return Change[T]{Reason: Remove, Current: item, CurrentIndex: index, PreviousIndex: UnknownIndex}
}

// NewReplace builds a Replace recording both the outgoing and
// incoming item at the same position.
func NewReplace[T any](current, previous T, index int) Change[T] {
	return Change[T]{
		Reason:        Replace,
		Current:       current,
		Previous:      previous,
		HasPrevious:   true,
		CurrentIndex:  index,
		PreviousIndex: index,
	}
}

// NewRefresh builds a Refresh at the given index. PreviousIndex is
// always UnknownIndex.
func NewRefresh[T any](item T, index int) Change[T] {
	return Change[T]{Reason: Refresh, Current: item, CurrentIndex: index, PreviousIndex: UnknownIndex}
}

// NewMoved builds a Moved change; both indices must be >= 0.
func NewMoved[T any](item T, currentIndex, previousIndex int) Change[T] {
	return Change[T]{Reason: Moved, Current: item, CurrentIndex: currentIndex, PreviousIndex: previousIndex}
}

// NewAddRange builds an AddRange starting at the given index.
func NewAddRange[T any](items []T, startingIndex int) Change[T] {
	return Change[T]{Reason: AddRange, Items: items, StartingIndex: startingIndex, CurrentIndex: UnknownIndex, PreviousIndex: UnknownIndex}
}

// NewRemoveRange builds a RemoveRange starting at the given index.
func NewRemoveRange[T any](items []T, startingIndex int) Change[T] {
	return Change[T]{Reason: RemoveRange, Items: items, StartingIndex: startingIndex, CurrentIndex: UnknownIndex, PreviousIndex: UnknownIndex}
}

// NewClear builds a Clear carrying every item that was removed.
func NewClear[T any](items []T) Change[T] {
	return Change[T]{Reason: Clear, Items: items, StartingIndex: 0, CurrentIndex: UnknownIndex, PreviousIndex: UnknownIndex}
}

// Len returns the number of items this change touches: 1 for
// single-item reasons, len(Items) for range reasons.
func (c Change[T]) Len() int {
	if c.Reason.IsRange() {
		return len(c.Items)
	}
	return 1
}
