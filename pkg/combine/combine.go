// Package combine implements the And/Or/Xor/Except set operators over
// multiple source streams (spec §4.H, component K), both over a fixed
// set of sources and over a dynamically changing set of sources.
package combine

import (
	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/stream"
)

// Operator selects the combine semantics.
type Operator int

const (
	// And requires an item to be present in every source.
	And Operator = iota
	// Or requires an item to be present in at least one source.
	Or
	// Xor requires an item to be present in exactly one source.
	Xor
	// Except requires an item to be present in the first source and
	// absent from every other source.
	Except
)

// tracker is a per-source reference count of each item currently
// present in that source.
type tracker[T comparable] struct {
	counts map[T]int
}

func newTracker[T comparable]() *tracker[T] { return &tracker[T]{counts: make(map[T]int)} }

func (t *tracker[T]) has(x T) bool { return t.counts[x] > 0 }

func (t *tracker[T]) add(x T) { t.counts[x]++ }

func (t *tracker[T]) remove(x T) {
	t.counts[x]--
	if t.counts[x] <= 0 {
		delete(t.counts, x)
	}
}

// Static combines a fixed slice of sources using op, maintaining a
// per-source tracker and a result set of the items currently present.
func Static[T comparable](sources []stream.ChangeStream[T], op Operator) stream.ChangeStream[T] {
	return stream.New(func(o stream.Observer[T]) stream.Cancel {
		sync := &stream.Synchronize{}
		trackers := make([]*tracker[T], len(sources))
		for i := range trackers {
			trackers[i] = newTracker[T]()
		}
		result := make(map[T]bool)

		shouldInclude := func(x T) bool {
			switch op {
			case And:
				for _, tr := range trackers {
					if !tr.has(x) {
						return false
					}
				}
				return len(trackers) > 0
			case Or:
				for _, tr := range trackers {
					if tr.has(x) {
						return true
					}
				}
				return false
			case Xor:
				count := 0
				for _, tr := range trackers {
					if tr.has(x) {
						count++
					}
				}
				return count == 1
			default: // Except
				if len(trackers) == 0 || !trackers[0].has(x) {
					return false
				}
				for i := 1; i < len(trackers); i++ {
					if trackers[i].has(x) {
						return false
					}
				}
				return true
			}
		}

		reconcile := func(candidates map[T]bool, out *change.Set[T]) {
			for x := range candidates {
				want := shouldInclude(x)
				have := result[x]
				switch {
				case want && !have:
					result[x] = true
					out.Append(change.NewAdd(x, 0))
				case !want && have:
					delete(result, x)
					out.Append(change.NewRemove(x, 0))
				}
			}
		}

		cancels := make([]stream.Cancel, len(sources))
		for i, src := range sources {
			i := i
			cancels[i] = stream.Guard(sync, src).Subscribe(stream.Observer[T]{
				OnNext: func(cs *change.Set[T]) {
					candidates := make(map[T]bool)
					for _, c := range cs.Changes() {
						switch c.Reason {
						case change.Add:
							trackers[i].add(c.Current)
							candidates[c.Current] = true
						case change.AddRange:
							for _, item := range c.Items {
								trackers[i].add(item)
								candidates[item] = true
							}
						case change.Remove:
							trackers[i].remove(c.Current)
							candidates[c.Current] = true
						case change.RemoveRange, change.Clear:
							for _, item := range c.Items {
								trackers[i].remove(item)
								candidates[item] = true
							}
						case change.Replace:
							trackers[i].remove(c.Previous)
							trackers[i].add(c.Current)
							candidates[c.Previous] = true
							candidates[c.Current] = true
						case change.Refresh:
							candidates[c.Current] = true
						}
					}
					out := change.NewSet[T](len(candidates))
					reconcile(candidates, out)
					if !out.IsEmpty() && o.OnNext != nil {
						o.OnNext(out)
					}
				},
			})
		}

		return func() {
			for _, cancel := range cancels {
				cancel()
			}
		}
	})
}

// Dynamic combines a change stream of sources: when a source is removed,
// or (for And and Except) added, the aggregate recomputes every item touched by any
// tracker (spec §4.H: "And/Except require full recheck").
func Dynamic[T comparable](sourceStream stream.ChangeStream[stream.ChangeStream[T]], op Operator) stream.ChangeStream[T] {
	return stream.New(func(o stream.Observer[T]) stream.Cancel {
		sync := &stream.Synchronize{}
		var trackers []*tracker[T]
		var cancels []stream.Cancel
		result := make(map[T]bool)

		shouldInclude := func(x T) bool {
			switch op {
			case And:
				for _, tr := range trackers {
					if !tr.has(x) {
						return false
					}
				}
				return len(trackers) > 0
			case Or:
				for _, tr := range trackers {
					if tr.has(x) {
						return true
					}
				}
				return false
			case Xor:
				count := 0
				for _, tr := range trackers {
					if tr.has(x) {
						count++
					}
				}
				return count == 1
			default:
				if len(trackers) == 0 || !trackers[0].has(x) {
					return false
				}
				for i := 1; i < len(trackers); i++ {
					if trackers[i].has(x) {
						return false
					}
				}
				return true
			}
		}

		fullRecheck := func() {
			seen := make(map[T]bool)
			for _, tr := range trackers {
				for x := range tr.counts {
					seen[x] = true
				}
			}
			for x := range result {
				seen[x] = true
			}
			out := change.NewSet[T](0)
			for x := range seen {
				want := shouldInclude(x)
				have := result[x]
				switch {
				case want && !have:
					result[x] = true
					out.Append(change.NewAdd(x, 0))
				case !want && have:
					delete(result, x)
					out.Append(change.NewRemove(x, 0))
				}
			}
			if !out.IsEmpty() && o.OnNext != nil {
				o.OnNext(out)
			}
		}

		subscribeSource := func(idx int, src stream.ChangeStream[T]) stream.Cancel {
			return stream.Guard(sync, src).Subscribe(stream.Observer[T]{
				OnNext: func(cs *change.Set[T]) {
					out := change.NewSet[T](0)
					for _, c := range cs.Changes() {
						var touched []T
						switch c.Reason {
						case change.Add:
							trackers[idx].add(c.Current)
							touched = []T{c.Current}
						case change.AddRange:
							for _, item := range c.Items {
								trackers[idx].add(item)
							}
							touched = c.Items
						case change.Remove:
							trackers[idx].remove(c.Current)
							touched = []T{c.Current}
						case change.RemoveRange, change.Clear:
							for _, item := range c.Items {
								trackers[idx].remove(item)
							}
							touched = c.Items
						case change.Replace:
							trackers[idx].remove(c.Previous)
							trackers[idx].add(c.Current)
							touched = []T{c.Previous, c.Current}
						}
						for _, x := range touched {
							want := shouldInclude(x)
							have := result[x]
							switch {
							case want && !have:
								result[x] = true
								out.Append(change.NewAdd(x, 0))
							case !want && have:
								delete(result, x)
								out.Append(change.NewRemove(x, 0))
							}
						}
					}
					if !out.IsEmpty() && o.OnNext != nil {
						o.OnNext(out)
					}
				},
			})
		}

		cancelSources := stream.Guard(sync, sourceStream).Subscribe(stream.Observer[stream.ChangeStream[T]]{
			OnNext: func(cs *change.Set[stream.ChangeStream[T]]) {
				for _, c := range cs.Changes() {
					switch c.Reason {
					case change.Add:
						trackers = append(trackers, newTracker[T]())
						cancels = append(cancels, subscribeSource(len(trackers)-1, c.Current))
						if op == And || op == Except {
							fullRecheck()
						}
					case change.AddRange:
						for _, src := range c.Items {
							trackers = append(trackers, newTracker[T]())
							cancels = append(cancels, subscribeSource(len(trackers)-1, src))
						}
						if op == And || op == Except {
							fullRecheck()
						}
					case change.Remove:
						idx := c.CurrentIndex
						cancels[idx]()
						cancels = append(cancels[:idx], cancels[idx+1:]...)
						trackers = append(trackers[:idx], trackers[idx+1:]...)
						fullRecheck()
					case change.Clear:
						for _, cancel := range cancels {
							cancel()
						}
						cancels = cancels[:0]
						trackers = trackers[:0]
						fullRecheck()
					}
				}
			},
		})

		return func() {
			cancelSources()
			for _, cancel := range cancels {
				cancel()
			}
		}
	})
}
