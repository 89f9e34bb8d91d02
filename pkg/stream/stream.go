// Package stream defines the change-stream contract (spec §6) and the
// subscription plumbing every operator shares: connect, not-empty,
// synchronise, ref-count, defer-until-loaded, and
// skip-initial.
//
// A stream is modelled as a plain subscribe function rather than a Go
// channel: "operators are pure functions from stream to stream" (spec
// §9) composes naturally as one function wrapping another, and keeps
// every emission on the subscriber's own goroutine stack so it runs
// inside whatever lock the producing operator already holds (spec §5
// — "downstream emission occurs still inside the lock").
package stream

import "github.com/mnohosten/flowset/pkg/change"

// Cancel releases a subscription: it stops further emissions and
// tears down any nested timers, inner subscriptions or per-item hooks
// the subscription owns. Calling it more than once is a no-op.
type Cancel func()

// Observer receives the three signals a stream contract promises: a
// sequence of change sets, an optional terminal error, and an optional
// completion. OnLoaded, if set, fires exactly once, immediately after
// the first change set (the initial snapshot) has been delivered —
// this is the "subscribers receive a loaded-state signal once the
// initial snapshot is delivered" contract from spec §6.
type Observer[T any] struct {
	OnNext     func(*change.Set[T])
	OnError    func(error)
	OnComplete func()
	OnLoaded   func()
}

func (o Observer[T]) next(cs *change.Set[T]) {
	if o.OnNext != nil {
		o.OnNext(cs)
	}
}

func (o Observer[T]) err(e error) {
	if o.OnError != nil {
		o.OnError(e)
	}
}

func (o Observer[T]) complete() {
	if o.OnComplete != nil {
		o.OnComplete()
	}
}

func (o Observer[T]) loaded() {
	if o.OnLoaded != nil {
		o.OnLoaded()
	}
}

// ChangeStream is a subscribable source of change sets. It is the
// common currency of every operator: each one accepts an upstream
// ChangeStream[T] and returns a derived ChangeStream[U].
type ChangeStream[T any] struct {
	subscribe func(Observer[T]) Cancel
}

// New wraps a subscribe function as a ChangeStream.
func New[T any](subscribe func(Observer[T]) Cancel) ChangeStream[T] {
	return ChangeStream[T]{subscribe: subscribe}
}

// Subscribe attaches an observer and returns its Cancel.
func (s ChangeStream[T]) Subscribe(o Observer[T]) Cancel {
	if s.subscribe == nil {
		return func() {}
	}
	return s.subscribe(o)
}

// Empty returns a stream that immediately completes without emitting.
func Empty[T any]() ChangeStream[T] {
	return New(func(o Observer[T]) Cancel {
		o.loaded()
		o.complete()
		return func() {}
	})
}
