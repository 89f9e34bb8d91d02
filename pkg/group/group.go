// Package group implements Group and GroupImmutable (spec §4.F,
// component I): routing upstream items into per-key group containers,
// emitting a group-level Add/Replace/Remove as membership transitions
// happen, plus a regrouper for external re-keying.
package group

import (
	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/collection"
	"github.com/mnohosten/flowset/pkg/stream"
)

// KeySelector extracts the grouping key from an item.
type KeySelector[T any, K comparable] func(T) K

// Container is one key's group: its key and the source list of member
// items routed to it.
type Container[K comparable, T any] struct {
	Key     K
	Members *collection.SourceList[T]
}

// Group derives a mutable-groups stream: each Container's Members
// list is a live SourceList that the caller can independently
// Connect() to, and the outer stream emits an Add when a key's group
// transitions from empty to non-empty and a Remove when it empties out
// (spec §4.F "mutable groups"). equals identifies one occurrence of T
// inside a group's member list, needed because groups route by value,
// not by upstream index.
//
// regroup, if non-nil, is an external re-key trigger (spec §4.F
// "regrouper"): each tick recomputes key for every currently tracked
// item and migrates it across groups if its key changed.
func Group[T any, K comparable](upstream stream.ChangeStream[T], key KeySelector[T, K], equals func(a, b T) bool, regroup <-chan struct{}) stream.ChangeStream[*Container[K, T]] {
	return stream.New(func(o stream.Observer[*Container[K, T]]) stream.Cancel {
		sync := &stream.Synchronize{}
		groups := make(map[K]*Container[K, T])
		var itemKeys []K
		var items []T

		groupFor := func(k K) *Container[K, T] {
			g, ok := groups[k]
			if !ok {
				g = &Container[K, T]{Key: k, Members: collection.NewSourceList[T]()}
				groups[k] = g
			}
			return g
		}

		routeAdd := func(k K, item T, out *change.Set[*Container[K, T]]) {
			g := groupFor(k)
			wasEmpty := g.Members.Count() == 0
			g.Members.Add(item)
			if wasEmpty {
				out.Append(change.NewAdd(g, 0))
			}
		}

		routeRemove := func(k K, item T, out *change.Set[*Container[K, T]]) {
			g, ok := groups[k]
			if !ok {
				return
			}
			g.Members.Remove(item, equals)
			if g.Members.Count() == 0 {
				delete(groups, k)
				out.Append(change.NewRemove(g, 0))
			}
		}

		applyRegroup := func() {
			out := change.NewSet[*Container[K, T]](0)
			for i, item := range items {
				newKey := key(item)
				if newKey == itemKeys[i] {
					continue
				}
				routeRemove(itemKeys[i], item, out)
				itemKeys[i] = newKey
				routeAdd(newKey, item, out)
			}
			if !out.IsEmpty() && o.OnNext != nil {
				o.OnNext(out)
			}
		}

		cancelUpstream := stream.Guard(sync, upstream).Subscribe(stream.Observer[T]{
			OnNext: func(cs *change.Set[T]) {
				out := change.NewSet[*Container[K, T]](0)
				for _, c := range cs.Changes() {
					switch c.Reason {
					case change.Add:
						k := key(c.Current)
						itemKeys = insertAt(itemKeys, c.CurrentIndex, k)
						items = insertAt(items, c.CurrentIndex, c.Current)
						routeAdd(k, c.Current, out)

					case change.AddRange:
						for i, item := range c.Items {
							k := key(item)
							itemKeys = insertAt(itemKeys, c.StartingIndex+i, k)
							items = insertAt(items, c.StartingIndex+i, item)
							routeAdd(k, item, out)
						}

					case change.Remove:
						k := itemKeys[c.CurrentIndex]
						itemKeys = removeAt(itemKeys, c.CurrentIndex)
						items = removeAt(items, c.CurrentIndex)
						routeRemove(k, c.Current, out)

					case change.RemoveRange:
						for range c.Items {
							k := itemKeys[c.StartingIndex]
							item := items[c.StartingIndex]
							itemKeys = removeAt(itemKeys, c.StartingIndex)
							items = removeAt(items, c.StartingIndex)
							routeRemove(k, item, out)
						}

					case change.Replace:
						oldKey := itemKeys[c.CurrentIndex]
						newKey := key(c.Current)
						items[c.CurrentIndex] = c.Current
						if oldKey == newKey {
							if g, ok := groups[oldKey]; ok {
								g.Members.Replace(c.Previous, c.Current, equals)
							}
							continue
						}
						itemKeys[c.CurrentIndex] = newKey
						routeRemove(oldKey, c.Previous, out)
						routeAdd(newKey, c.Current, out)

					case change.Clear:
						var removed []*Container[K, T]
						for _, g := range groups {
							removed = append(removed, g)
						}
						groups = make(map[K]*Container[K, T])
						itemKeys = itemKeys[:0]
						items = items[:0]
						if len(removed) > 0 {
							out.Append(change.NewClear(removed))
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

		done := make(chan struct{})
		if regroup != nil {
			go func() {
				for {
					select {
					case _, ok := <-regroup:
						if !ok {
							return
						}
						sync.Do(applyRegroup)
					case <-done:
						return
					}
				}
			}()
		}

		return func() {
			close(done)
			cancelUpstream()
		}
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
