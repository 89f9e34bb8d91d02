// Package switchop implements Switch (spec §4.K, component N): a
// stream that follows whichever inner stream the outer stream most
// recently produced, clearing the previous inner's contents on each
// switch.
package switchop

import (
	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/stream"
)

// Switch subscribes to outer, a stream whose items are themselves
// change streams. On each outer tick it disposes the prior inner
// subscription, emits a Clear of the previous contents, then
// subscribes to the new inner stream and forwards its changes.
func Switch[T any](outer stream.ChangeStream[stream.ChangeStream[T]]) stream.ChangeStream[T] {
	return stream.New(func(o stream.Observer[T]) stream.Cancel {
		sync := &stream.Synchronize{}
		var cancelInner stream.Cancel
		var current []T

		// The lock is not held while the new inner is subscribed: an
		// inner that emits synchronously from Subscribe takes it itself.
		subscribeInner := func(inner stream.ChangeStream[T]) {
			sync.Do(func() {
				if cancelInner != nil {
					cancelInner()
					cancelInner = nil
				}
				if len(current) > 0 {
					prev := current
					current = nil
					cs := change.NewSet[T](1)
					cs.Append(change.NewClear(prev))
					if o.OnNext != nil {
						o.OnNext(cs)
					}
				}
			})
			cancel := stream.Guard(sync, inner).Subscribe(stream.Observer[T]{
				OnNext: func(cs *change.Set[T]) {
					current = change.Apply(current, cs)
					if o.OnNext != nil {
						o.OnNext(cs)
					}
				},
			})
			sync.Do(func() { cancelInner = cancel })
		}

		cancelOuter := outer.Subscribe(stream.Observer[stream.ChangeStream[T]]{
			OnNext: func(cs *change.Set[stream.ChangeStream[T]]) {
				for _, c := range cs.Changes() {
					if c.Reason == change.Add || c.Reason == change.Refresh || c.Reason == change.Replace {
						subscribeInner(c.Current)
					}
				}
			},
			OnError: func(err error) {
				sync.Do(func() {
					if o.OnError != nil {
						o.OnError(err)
					}
				})
			},
			OnComplete: func() {
				sync.Do(func() {
					if o.OnComplete != nil {
						o.OnComplete()
					}
				})
			},
			OnLoaded: func() {
				sync.Do(func() {
					if o.OnLoaded != nil {
						o.OnLoaded()
					}
				})
			},
		})

		return func() {
			cancelOuter()
			if cancelInner != nil {
				cancelInner()
			}
		}
	})
}
