package adapters

import (
	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/stream"
)

// Release is the per-item teardown hook SubscribeMany and DisposeMany
// invoke exactly once when an item leaves the tracked set.
type Release func()

// SubscribeMany invokes acquire exactly once for every item that
// enters the stream (via Add, AddRange or a Replace's incoming side)
// and invokes the Release it returns exactly once when that item
// leaves (via Remove, RemoveRange, Clear or a Replace's outgoing
// side). On downstream disposal every currently held item is released
// (spec §4.M).
func SubscribeMany[T any](upstream stream.ChangeStream[T], acquire func(item T) Release) stream.Cancel {
	held := make([]Release, 0)

	releaseAt := func(i int) {
		if i < 0 || i >= len(held) {
			return
		}
		if held[i] != nil {
			held[i]()
		}
		held = append(held[:i], held[i+1:]...)
	}

	cancel := upstream.Subscribe(stream.Observer[T]{
		OnNext: func(cs *change.Set[T]) {
			for _, c := range cs.Changes() {
				switch c.Reason {
				case change.Add:
					held = insertAt(held, c.CurrentIndex, acquire(c.Current))
				case change.AddRange:
					for i, item := range c.Items {
						held = insertAt(held, c.StartingIndex+i, acquire(item))
					}
				case change.Remove:
					releaseAt(c.CurrentIndex)
				case change.RemoveRange:
					for range c.Items {
						releaseAt(c.StartingIndex)
					}
				case change.Clear:
					for _, release := range held {
						if release != nil {
							release()
						}
					}
					held = held[:0]
				case change.Moved:
					r := held[c.PreviousIndex]
					held = append(held[:c.PreviousIndex], held[c.PreviousIndex+1:]...)
					held = insertAt(held, c.CurrentIndex, r)
				case change.Replace:
					releaseAt(c.CurrentIndex)
					held = insertAt(held, c.CurrentIndex, acquire(c.Current))
				}
			}
		},
	})

	return func() {
		cancel()
		for _, release := range held {
			if release != nil {
				release()
			}
		}
		held = nil
	}
}

func insertAt[T any](items []T, i int, x T) []T {
	items = append(items, x)
	copy(items[i+1:], items[i:])
	items[i] = x
	return items
}

// OnBeingAdded invokes fn for every item as it enters the stream,
// forwarding every change unmodified. It is SubscribeMany's
// acquire-only half, for callers that have no matching release
// action (spec §4.M).
func OnBeingAdded[T any](upstream stream.ChangeStream[T], fn func(item T)) stream.ChangeStream[T] {
	return stream.New(func(o stream.Observer[T]) stream.Cancel {
		return upstream.Subscribe(stream.Observer[T]{
			OnNext: func(cs *change.Set[T]) {
				for _, c := range cs.Changes() {
					switch c.Reason {
					case change.Add:
						fn(c.Current)
					case change.AddRange:
						for _, item := range c.Items {
							fn(item)
						}
					case change.Replace:
						fn(c.Current)
					}
				}
				if o.OnNext != nil {
					o.OnNext(cs)
				}
			},
			OnError:    o.OnError,
			OnComplete: o.OnComplete,
			OnLoaded:   o.OnLoaded,
		})
	})
}

// OnBeingRemoved invokes fn for every item as it leaves the stream,
// forwarding every change unmodified. It is SubscribeMany's
// release-only half (spec §4.M).
func OnBeingRemoved[T any](upstream stream.ChangeStream[T], fn func(item T)) stream.ChangeStream[T] {
	return stream.New(func(o stream.Observer[T]) stream.Cancel {
		return upstream.Subscribe(stream.Observer[T]{
			OnNext: func(cs *change.Set[T]) {
				for _, c := range cs.Changes() {
					switch c.Reason {
					case change.Remove:
						fn(c.Current)
					case change.RemoveRange, change.Clear:
						for _, item := range c.Items {
							fn(item)
						}
					case change.Replace:
						fn(c.Previous)
					}
				}
				if o.OnNext != nil {
					o.OnNext(cs)
				}
			},
			OnError:    o.OnError,
			OnComplete: o.OnComplete,
			OnLoaded:   o.OnLoaded,
		})
	})
}

// DisposeMany is SubscribeMany specialised for types whose acquired
// resource is itself the item (e.g. an item that exposes its own
// teardown method), releasing each one exactly once.
func DisposeMany[T any](upstream stream.ChangeStream[T], dispose func(item T)) stream.Cancel {
	return SubscribeMany[T](upstream, func(item T) Release {
		return func() { dispose(item) }
	})
}
