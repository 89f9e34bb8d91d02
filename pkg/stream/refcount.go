package stream

import (
	"sync"

	"github.com/mnohosten/flowset/pkg/change"
)

// RefCount shares one materialised subscription to factory() across
// every subscriber of the returned stream (spec §5, "Shared-resource
// policy"): the first subscriber triggers factory() and materialises
// the derivation; later subscribers attach to the same running
// subscription; when the last one unsubscribes, the derivation is
// released and the next subscriber starts a fresh one.
//
// The mutex around start/stop is the single-assignment slot spec §5
// calls for: only one goroutine ever wins the race to call factory().
func RefCount[T any](factory func() ChangeStream[T]) ChangeStream[T] {
	rc := &refCounted[T]{factory: factory, observers: make(map[int]Observer[T])}
	return New(rc.subscribe)
}

type refCounted[T any] struct {
	mu        sync.Mutex
	factory   func() ChangeStream[T]
	observers map[int]Observer[T]
	nextID    int
	upstream  Cancel
}

func (rc *refCounted[T]) subscribe(o Observer[T]) Cancel {
	rc.mu.Lock()
	id := rc.nextID
	rc.nextID++
	rc.observers[id] = o
	starting := len(rc.observers) == 1
	rc.mu.Unlock()

	if starting {
		upstream := rc.factory().Subscribe(Observer[T]{
			OnNext:     func(cs *change.Set[T]) { rc.broadcast(func(o Observer[T]) { o.next(cs) }) },
			OnError:    func(err error) { rc.broadcast(func(o Observer[T]) { o.err(err) }) },
			OnComplete: func() { rc.broadcast(func(o Observer[T]) { o.complete() }) },
			OnLoaded:   func() { rc.broadcast(func(o Observer[T]) { o.loaded() }) },
		})
		rc.mu.Lock()
		rc.upstream = upstream
		rc.mu.Unlock()
	}

	return func() { rc.unsubscribe(id) }
}

func (rc *refCounted[T]) broadcast(f func(Observer[T])) {
	rc.mu.Lock()
	observers := make([]Observer[T], 0, len(rc.observers))
	for _, o := range rc.observers {
		observers = append(observers, o)
	}
	rc.mu.Unlock()

	for _, o := range observers {
		f(o)
	}
}

func (rc *refCounted[T]) unsubscribe(id int) {
	rc.mu.Lock()
	delete(rc.observers, id)
	empty := len(rc.observers) == 0
	upstream := rc.upstream
	if empty {
		rc.upstream = nil
	}
	rc.mu.Unlock()

	if empty && upstream != nil {
		upstream()
	}
}
