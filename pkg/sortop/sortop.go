// Package sortop implements the Sort operator (spec §4.C, component
// F): a derived stream whose emitted order is governed by a comparer
// rather than upstream arrival order, with an incremental
// insert/remove/move path and a reset path for large batches.
package sortop

import (
	"sort"

	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/ddserr"
	"github.com/mnohosten/flowset/pkg/stream"
)

// LookupMode selects how Sort locates an insertion position or an
// existing item's position.
type LookupMode int

const (
	// Linear scans front to back. Always correct, O(n) per lookup.
	Linear LookupMode = iota

	// Binary requires the comparer to order items uniquely; an
	// ambiguous comparison raises ErrSortAmbiguous.
	Binary
)

// Options configures a Sort operator.
type Options[T any] struct {
	// Comparer returns <0, 0, >0 as a orders before, same as, or after b.
	Comparer func(a, b T) int

	// Equals identifies a specific occurrence of an item in the
	// presence of comparer ties; required for Remove/Replace/Refresh
	// lookups since the comparer alone cannot disambiguate duplicates.
	Equals func(a, b T) bool

	// ResetThreshold (R). A batch touching more than R items is
	// processed as a full reset instead of incrementally. Zero means
	// no reset path is ever taken.
	ResetThreshold int

	// LookupMode selects linear or binary search for insertions.
	LookupMode LookupMode
}

// Sort derives a stream ordered by opts.Comparer. resort, if non-nil,
// is an external trigger: each tick re-walks the current contents and
// emits the minimal set of Moved changes to restore comparer order
// (used when the comparer depends on mutable fields the operator
// cannot observe directly). comparerChanges, if non-nil, must emit its
// first comparer synchronously before any data; each subsequent
// comparer either re-sorts in place (batch size <= R) or performs a
// full reset.
func Sort[T any](
	upstream stream.ChangeStream[T],
	opts Options[T],
	resort <-chan struct{},
	comparerChanges stream.ChangeStream[func(a, b T) int],
) stream.ChangeStream[T] {
	return stream.New(func(o stream.Observer[T]) stream.Cancel {
		sync := &stream.Synchronize{}
		st := &state[T]{comparer: opts.Comparer, equals: opts.Equals, mode: opts.LookupMode, threshold: opts.ResetThreshold}

		cancelData := stream.Guard(sync, upstream).Subscribe(stream.Observer[T]{
			OnNext:     func(cs *change.Set[T]) { st.applyUpstream(cs, o) },
			OnError:    o.OnError,
			OnComplete: o.OnComplete,
			OnLoaded:   o.OnLoaded,
		})

		cancelPred := stream.Guard(sync, comparerChanges).Subscribe(stream.Observer[func(a, b T) int]{
			OnNext: func(cs *change.Set[func(a, b T) int]) {
				for _, c := range cs.Changes() {
					if c.Reason == change.Add || c.Reason == change.Refresh || c.Reason == change.Replace {
						st.applyComparerChange(c.Current, o)
					}
				}
			},
		})

		done := make(chan struct{})
		if resort != nil {
			go func() {
				for {
					select {
					case _, ok := <-resort:
						if !ok {
							return
						}
						sync.Do(func() { st.applyResort(o) })
					case <-done:
						return
					}
				}
			}()
		}

		return func() {
			close(done)
			cancelData()
			cancelPred()
		}
	})
}

type state[T any] struct {
	items     []T
	comparer  func(a, b T) int
	equals    func(a, b T) bool
	mode      LookupMode
	threshold int
}

// locate returns the insertion index for x: the first position whose
// current occupant does not sort before x.
func (s *state[T]) locate(x T) (int, error) {
	if s.mode == Binary {
		idx := sort.Search(len(s.items), func(i int) bool { return s.comparer(s.items[i], x) >= 0 })
		if idx < len(s.items) && s.comparer(s.items[idx], x) == 0 {
			// verify uniqueness: a tie must be a single candidate or
			// binary search cannot be trusted to place x deterministically.
			if idx+1 < len(s.items) && s.comparer(s.items[idx+1], x) == 0 {
				return 0, ddserr.ErrSortAmbiguous
			}
		}
		return idx, nil
	}
	for i, it := range s.items {
		if s.comparer(it, x) >= 0 {
			return i, nil
		}
	}
	return len(s.items), nil
}

// indexOf finds the current position of an item identified by equals
// with a linear scan over every sorted item.
func (s *state[T]) indexOf(x T) int {
	for i, it := range s.items {
		if s.equals(it, x) {
			return i
		}
	}
	return -1
}

func insertAt[T any](items []T, i int, x T) []T {
	items = append(items, x)
	copy(items[i+1:], items[i:])
	items[i] = x
	return items
}

func removeAt[T any](items []T, i int) []T {
	return append(items[:i], items[i+1:]...)
}

func (s *state[T]) applyUpstream(cs *change.Set[T], o stream.Observer[T]) {
	if s.threshold > 0 && cs.TotalChanges() > s.threshold {
		s.reset(cs, o)
		return
	}

	out := change.NewSet[T](cs.Count())
	for _, c := range cs.Changes() {
		switch c.Reason {
		case change.Add:
			idx, err := s.locate(c.Current)
			if err != nil {
				if o.OnError != nil {
					o.OnError(err)
				}
				return
			}
			s.items = insertAt(s.items, idx, c.Current)
			out.Append(change.NewAdd(c.Current, idx))

		case change.AddRange:
			sorted := append([]T(nil), c.Items...)
			sort.SliceStable(sorted, func(i, j int) bool { return s.comparer(sorted[i], sorted[j]) < 0 })
			for _, item := range sorted {
				idx, err := s.locate(item)
				if err != nil {
					if o.OnError != nil {
						o.OnError(err)
					}
					return
				}
				s.items = insertAt(s.items, idx, item)
				out.Append(change.NewAdd(item, idx))
			}

		case change.Remove:
			idx := s.indexOf(c.Current)
			if idx < 0 {
				continue
			}
			s.items = removeAt(s.items, idx)
			out.Append(change.NewRemove(c.Current, idx))

		case change.RemoveRange:
			for _, item := range c.Items {
				idx := s.indexOf(item)
				if idx < 0 {
					continue
				}
				s.items = removeAt(s.items, idx)
				out.Append(change.NewRemove(item, idx))
			}

		case change.Replace:
			oldIdx := s.indexOf(c.Previous)
			if oldIdx >= 0 {
				s.items = removeAt(s.items, oldIdx)
				out.Append(change.NewRemove(c.Previous, oldIdx))
			}
			newIdx, err := s.locate(c.Current)
			if err != nil {
				if o.OnError != nil {
					o.OnError(err)
				}
				return
			}
			s.items = insertAt(s.items, newIdx, c.Current)
			out.Append(change.NewAdd(c.Current, newIdx))

		case change.Refresh:
			oldIdx := s.indexOf(c.Current)
			if oldIdx < 0 {
				continue
			}
			s.items = removeAt(s.items, oldIdx)
			newIdx, err := s.locate(c.Current)
			if err != nil {
				if o.OnError != nil {
					o.OnError(err)
				}
				return
			}
			s.items = insertAt(s.items, newIdx, c.Current)

			if newIdx == oldIdx {
				out.Append(change.NewRefresh(c.Current, oldIdx))
				continue
			}
			corrected := newIdx
			if oldIdx < newIdx {
				corrected--
			}
			out.Append(change.NewMoved(c.Current, corrected, oldIdx))

		case change.Clear:
			out.Append(change.NewClear(s.items))
			s.items = s.items[:0]
		}
	}

	if !out.IsEmpty() {
		o.OnNext(out)
	}
}

// reset discards positional processing of cs and recomputes the
// entire sorted projection from the surviving content, emitting a
// single Clear + AddRange (spec §4.C: "if k > R and comparer is
// present, reset").
func (s *state[T]) reset(cs *change.Set[T], o stream.Observer[T]) {
	previous := s.items
	content := append([]T(nil), s.items...)

	for _, c := range cs.Changes() {
		switch c.Reason {
		case change.Add:
			content = append(content, c.Current)
		case change.AddRange:
			content = append(content, c.Items...)
		case change.Remove:
			content = removeFirstEqual(content, c.Current, s.equals)
		case change.RemoveRange:
			for _, item := range c.Items {
				content = removeFirstEqual(content, item, s.equals)
			}
		case change.Replace:
			content = removeFirstEqual(content, c.Previous, s.equals)
			content = append(content, c.Current)
		case change.Refresh:
			// value already reflected in place; nothing to add/remove.
		case change.Clear:
			content = content[:0]
		}
	}

	sort.SliceStable(content, func(i, j int) bool { return s.comparer(content[i], content[j]) < 0 })
	s.items = content

	out := change.NewSet[T](2)
	if len(previous) > 0 {
		out.Append(change.NewClear(previous))
	}
	if len(content) > 0 {
		out.Append(change.NewAddRange(content, 0))
	}
	if !out.IsEmpty() {
		o.OnNext(out)
	}
}

func removeFirstEqual[T any](items []T, x T, equals func(a, b T) bool) []T {
	for i, it := range items {
		if equals(it, x) {
			return removeAt(items, i)
		}
	}
	return items
}

// applyResort walks the comparer-correct order and emits the minimal
// set of Moved changes to reach it (spec §4.C: "on resort trigger,
// walk the target ordered by comparer... record a Moved").
func (s *state[T]) applyResort(o stream.Observer[T]) {
	desired := append([]T(nil), s.items...)
	sort.SliceStable(desired, func(i, j int) bool { return s.comparer(desired[i], desired[j]) < 0 })

	out := change.NewSet[T](0)
	for i := range desired {
		if s.equals(s.items[i], desired[i]) {
			continue
		}
		j := i + 1
		for ; j < len(s.items); j++ {
			if s.equals(s.items[j], desired[i]) {
				break
			}
		}
		item := s.items[j]
		s.items = removeAt(s.items, j)
		s.items = insertAt(s.items, i, item)
		out.Append(change.NewMoved(item, i, j))
	}
	if !out.IsEmpty() {
		o.OnNext(out)
	}
}

// applyComparerChange swaps the active comparer and reconciles the
// current contents against it: a full resort via moves if the content
// size is within the reset threshold, otherwise a clear-and-replace.
func (s *state[T]) applyComparerChange(comparer func(a, b T) int, o stream.Observer[T]) {
	s.comparer = comparer
	if s.threshold <= 0 || len(s.items) <= s.threshold {
		s.applyResort(o)
		return
	}

	previous := s.items
	content := append([]T(nil), s.items...)
	sort.SliceStable(content, func(i, j int) bool { return s.comparer(content[i], content[j]) < 0 })
	s.items = content

	out := change.NewSet[T](2)
	out.Append(change.NewClear(previous))
	out.Append(change.NewAddRange(content, 0))
	o.OnNext(out)
}
