// Package distinct implements the Distinct operator (spec §4.E,
// component H): a derived stream carrying exactly one occurrence of
// each selected value, reference-counted so the value is only removed
// downstream once every source item selecting it is gone.
package distinct

import (
	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/stream"
)

// Selector extracts the value to deduplicate on from a source item.
type Selector[T, V any] func(T) V

// Distinct derives a stream of V containing each selected value
// exactly once, for as long as at least one source item selects it.
func Distinct[T any, V comparable](upstream stream.ChangeStream[T], selector Selector[T, V]) stream.ChangeStream[V] {
	return stream.New(func(o stream.Observer[V]) stream.Cancel {
		counts := make(map[V]int)
		// selected mirrors the upstream index -> currently selected
		// value, so Remove/Replace/Refresh can find the old value
		// without re-deriving it from a now-stale item.
		var selected []V

		bump := func(v V, delta int) (became1, became0 bool) {
			counts[v] += delta
			switch counts[v] {
			case 1:
				if delta > 0 {
					became1 = true
				}
			case 0:
				became0 = true
				delete(counts, v)
			}
			return
		}

		return upstream.Subscribe(stream.Observer[T]{
			OnNext: func(cs *change.Set[T]) {
				out := change.NewSet[V](cs.Count())
				for _, c := range cs.Changes() {
					switch c.Reason {
					case change.Add:
						v := selector(c.Current)
						selected = insertAt(selected, c.CurrentIndex, v)
						if became1, _ := bump(v, 1); became1 {
							out.Append(change.NewAdd(v, 0))
						}

					case change.AddRange:
						for i, item := range c.Items {
							v := selector(item)
							selected = insertAt(selected, c.StartingIndex+i, v)
							if became1, _ := bump(v, 1); became1 {
								out.Append(change.NewAdd(v, 0))
							}
						}

					case change.Remove:
						v := selected[c.CurrentIndex]
						selected = removeAt(selected, c.CurrentIndex)
						if _, became0 := bump(v, -1); became0 {
							out.Append(change.NewRemove(v, 0))
						}

					case change.RemoveRange:
						for i := 0; i < len(c.Items); i++ {
							v := selected[c.StartingIndex]
							selected = removeAt(selected, c.StartingIndex)
							if _, became0 := bump(v, -1); became0 {
								out.Append(change.NewRemove(v, 0))
							}
						}

					case change.Replace:
						oldV := selected[c.CurrentIndex]
						newV := selector(c.Current)
						if oldV == newV {
							continue
						}
						selected[c.CurrentIndex] = newV
						if _, became0 := bump(oldV, -1); became0 {
							out.Append(change.NewRemove(oldV, 0))
						}
						if became1, _ := bump(newV, 1); became1 {
							out.Append(change.NewAdd(newV, 0))
						}

					case change.Refresh:
						oldV := selected[c.CurrentIndex]
						newV := selector(c.Current)
						if oldV == newV {
							continue
						}
						selected[c.CurrentIndex] = newV
						if _, became0 := bump(oldV, -1); became0 {
							out.Append(change.NewRemove(oldV, 0))
						}
						if became1, _ := bump(newV, 1); became1 {
							out.Append(change.NewAdd(newV, 0))
						}

					case change.Moved:
						v := selected[c.PreviousIndex]
						selected = removeAt(selected, c.PreviousIndex)
						selected = insertAt(selected, c.CurrentIndex, v)

					case change.Clear:
						var removedValues []V
						for v := range counts {
							removedValues = append(removedValues, v)
						}
						counts = make(map[V]int)
						selected = selected[:0]
						if len(removedValues) > 0 {
							out.Append(change.NewClear(removedValues))
						}
					}
				}
				if !out.IsEmpty() {
					o.OnNext(out)
				}
			},
			OnError:    o.OnError,
			OnComplete: o.OnComplete,
			OnLoaded:   o.OnLoaded,
		})
	})
}

func insertAt[V any](items []V, i int, x V) []V {
	items = append(items, x)
	copy(items[i+1:], items[i:])
	items[i] = x
	return items
}

func removeAt[V any](items []V, i int) []V {
	return append(items[:i], items[i+1:]...)
}
