package stream

import (
	"sync"

	"github.com/mnohosten/flowset/pkg/change"
)

// Synchronize serialises every emission from src through a single
// mutex. Spec §5: "Merges of control streams... serialise through a
// shared lock; predicate changes applied concurrently with upstream
// data are resolved by lock-acquisition order." Operators that merge
// a data stream with an out-of-band control stream (a mutable
// filter's predicate stream, a sort's comparer stream, a regroup
// trigger) wrap both sides in the same Synchronize lock before
// merging, so whichever side's goroutine acquires the mutex first
// is the one whose effect downstream observes first.
type Synchronize struct {
	mu sync.Mutex
}

// Do runs f while holding the lock.
func (s *Synchronize) Do(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f()
}

// Guard wraps src so every emission it produces runs inside s's lock.
// Multiple streams can share one Synchronize to guarantee their
// combined emissions are totally ordered.
func Guard[T any](s *Synchronize, src ChangeStream[T]) ChangeStream[T] {
	return New(func(o Observer[T]) Cancel {
		return src.Subscribe(Observer[T]{
			OnNext:     func(cs *change.Set[T]) { s.Do(func() { o.next(cs) }) },
			OnError:    func(err error) { s.Do(func() { o.err(err) }) },
			OnComplete: func() { s.Do(func() { o.complete() }) },
			OnLoaded:   func() { s.Do(func() { o.loaded() }) },
		})
	})
}
