package group

import (
	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/stream"
)

// ImmutableContainer is a frozen snapshot of one key's members at the
// moment it was emitted; unlike Container, mutating it further has no
// effect on the producing pipeline.
type ImmutableContainer[K comparable, T any] struct {
	Key     K
	Members []T
}

// GroupImmutable derives a groups stream where each batch snapshots
// every key it touched exactly once, diffing the snapshot taken before
// the batch against the one taken after to emit exactly one Add,
// Replace or Remove per affected key (spec §4.F "immutable groups").
func GroupImmutable[T any, K comparable](upstream stream.ChangeStream[T], key KeySelector[T, K]) stream.ChangeStream[*ImmutableContainer[K, T]] {
	return stream.New(func(o stream.Observer[*ImmutableContainer[K, T]]) stream.Cancel {
		members := make(map[K][]T)
		var itemKeys []K

		return upstream.Subscribe(stream.Observer[T]{
			OnNext: func(cs *change.Set[T]) {
				touched := make(map[K]bool)
				before := make(map[K][]T)

				snapshot := func(k K) {
					if touched[k] {
						return
					}
					touched[k] = true
					before[k] = append([]T(nil), members[k]...)
				}

				for _, c := range cs.Changes() {
					switch c.Reason {
					case change.Add:
						k := key(c.Current)
						itemKeys = insertAt(itemKeys, c.CurrentIndex, k)
						snapshot(k)
						members[k] = append(members[k], c.Current)

					case change.AddRange:
						for i, item := range c.Items {
							k := key(item)
							itemKeys = insertAt(itemKeys, c.StartingIndex+i, k)
							snapshot(k)
							members[k] = append(members[k], item)
						}

					case change.Remove:
						k := itemKeys[c.CurrentIndex]
						itemKeys = removeAt(itemKeys, c.CurrentIndex)
						snapshot(k)
						members[k] = removeFirstEqualAny(members[k], c.Current)

					case change.RemoveRange:
						for _, item := range c.Items {
							k := itemKeys[c.StartingIndex]
							itemKeys = removeAt(itemKeys, c.StartingIndex)
							snapshot(k)
							members[k] = removeFirstEqualAny(members[k], item)
						}

					case change.Replace:
						oldKey := itemKeys[c.CurrentIndex]
						newKey := key(c.Current)
						snapshot(oldKey)
						members[oldKey] = removeFirstEqualAny(members[oldKey], c.Previous)
						if oldKey != newKey {
							itemKeys[c.CurrentIndex] = newKey
							snapshot(newKey)
						}
						members[newKey] = append(members[newKey], c.Current)

					case change.Clear:
						for k := range members {
							snapshot(k)
						}
						members = make(map[K][]T)
						itemKeys = itemKeys[:0]
					}
				}

				out := change.NewSet[*ImmutableContainer[K, T]](len(touched))
				for k := range touched {
					prev := before[k]
					cur := members[k]
					switch {
					case len(prev) == 0 && len(cur) > 0:
						out.Append(change.NewAdd(&ImmutableContainer[K, T]{k, cur}, 0))
					case len(prev) > 0 && len(cur) == 0:
						delete(members, k)
						out.Append(change.NewRemove(&ImmutableContainer[K, T]{k, prev}, 0))
					case len(prev) > 0 && len(cur) > 0:
						out.Append(change.NewReplace(&ImmutableContainer[K, T]{k, cur}, &ImmutableContainer[K, T]{k, prev}, 0))
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

func removeFirstEqualAny[T any](items []T, x T) []T {
	for i, it := range items {
		if any(it) == any(x) {
			return append(items[:i], items[i+1:]...)
		}
	}
	return items
}
