package stream

import "github.com/mnohosten/flowset/pkg/change"

// NotEmpty suppresses vacuous emissions: a change set with zero
// entries never reaches the downstream observer (spec §8, "Empty
// change sets never cause emission").
func NotEmpty[T any](src ChangeStream[T]) ChangeStream[T] {
	return New(func(o Observer[T]) Cancel {
		return src.Subscribe(Observer[T]{
			OnNext: func(cs *change.Set[T]) {
				if cs != nil && !cs.IsEmpty() {
					o.next(cs)
				}
			},
			OnError:    o.err,
			OnComplete: o.complete,
			OnLoaded:   o.loaded,
		})
	})
}

// SkipInitial forwards every change set after the first one,
// dropping the initial snapshot. Useful when a consumer only wants
// live deltas, not the burst of Adds representing current state.
func SkipInitial[T any](src ChangeStream[T]) ChangeStream[T] {
	return New(func(o Observer[T]) Cancel {
		first := true
		return src.Subscribe(Observer[T]{
			OnNext: func(cs *change.Set[T]) {
				if first {
					first = false
					return
				}
				o.next(cs)
			},
			OnError:    o.err,
			OnComplete: o.complete,
			OnLoaded:   o.loaded,
		})
	})
}

// DeferUntilLoaded runs onLoaded exactly once, when src's initial
// snapshot has been delivered, before forwarding the loaded signal
// downstream. It is available to callers; no operator in this module
// uses it.
func DeferUntilLoaded[T any](src ChangeStream[T], onLoaded func()) ChangeStream[T] {
	return New(func(o Observer[T]) Cancel {
		return src.Subscribe(Observer[T]{
			OnNext:     o.next,
			OnError:    o.err,
			OnComplete: o.complete,
			OnLoaded: func() {
				if onLoaded != nil {
					onLoaded()
				}
				o.loaded()
			},
		})
	})
}
