package filter

import (
	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/stream"
)

// Policy selects how a predicate change is reconciled against the
// already-filtered output (spec §4.B).
type Policy int

const (
	// Diff walks the captured (item, matched) pairs and emits
	// removals for items that stopped matching and adds for items
	// that started matching, in upstream order.
	Diff Policy = iota

	// ClearAndReplace clears the filtered list and re-appends every
	// currently matching item in upstream order.
	ClearAndReplace
)

// Mutable derives a stream whose predicate can change over time.
// predicates must emit the initial predicate first. Policy controls
// how a predicate swap is reconciled against the current output.
func Mutable[T any](upstream stream.ChangeStream[T], predicates stream.ChangeStream[func(T) bool], policy Policy) stream.ChangeStream[T] {
	return stream.New(func(o stream.Observer[T]) stream.Cancel {
		sync := &stream.Synchronize{}
		m := &mutableState[T]{policy: policy}

		cancelData := stream.Guard(sync, upstream).Subscribe(stream.Observer[T]{
			OnNext:     func(cs *change.Set[T]) { m.applyUpstream(cs, o) },
			OnError:    o.OnError,
			OnComplete: o.OnComplete,
			OnLoaded:   o.OnLoaded,
		})

		cancelPred := stream.Guard(sync, predicates).Subscribe(stream.Observer[func(T) bool]{
			OnNext: func(cs *change.Set[func(T) bool]) {
				for _, c := range cs.Changes() {
					if c.Reason == change.Add || c.Reason == change.Refresh || c.Reason == change.Replace {
						m.applyPredicateChange(c.Current, o)
					}
				}
			},
		})

		return func() {
			cancelData()
			cancelPred()
		}
	})
}

type mutableState[T any] struct {
	entries   []entry[T]
	predicate func(T) bool
	policy    Policy
}

func (m *mutableState[T]) applyUpstream(cs *change.Set[T], o stream.Observer[T]) {
	if m.predicate == nil {
		m.predicate = func(T) bool { return true }
	}
	s := &state[T]{entries: m.entries, predicate: m.predicate}
	s.apply(cs, o)
	m.entries = s.entries
}

// applyPredicateChange reconciles the filtered output with a new
// predicate. Mutations to the matched flag are deferred until after
// the emission is computed, so index_of lookups made mid-computation
// see the pre-change state (spec §4.B).
func (m *mutableState[T]) applyPredicateChange(predicate func(T) bool, o stream.Observer[T]) {
	previous := m.predicate
	m.predicate = predicate
	if previous == nil {
		previous = func(T) bool { return true }
	}

	switch m.policy {
	case ClearAndReplace:
		var removed []T
		for _, e := range m.entries {
			if e.matched {
				removed = append(removed, e.item)
			}
		}
		var added []T
		for i := range m.entries {
			m.entries[i].matched = predicate(m.entries[i].item)
			if m.entries[i].matched {
				added = append(added, m.entries[i].item)
			}
		}
		out := change.NewSet[T](2)
		if len(removed) > 0 {
			out.Append(change.NewClear(removed))
		}
		if len(added) > 0 {
			out.Append(change.NewAddRange(added, 0))
		}
		if !out.IsEmpty() {
			o.OnNext(out)
		}

	default: // Diff
		newMatch := make([]bool, len(m.entries))
		for i := range m.entries {
			newMatch[i] = predicate(m.entries[i].item)
		}

		out := change.NewSet[T](0)
		filteredIdx := 0
		for i, e := range m.entries {
			switch {
			case e.matched && !newMatch[i]:
				out.Append(change.NewRemove(e.item, filteredIdx))
			case !e.matched && newMatch[i]:
				out.Append(change.NewAdd(e.item, filteredIdx))
				filteredIdx++
			case e.matched && newMatch[i]:
				filteredIdx++
			}
		}
		for i := range m.entries {
			m.entries[i].matched = newMatch[i]
		}
		if !out.IsEmpty() {
			o.OnNext(out)
		}
	}
}
