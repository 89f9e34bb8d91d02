package refcount

import (
	"sync"

	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/stream"
)

// ReadOnlyCollection is the observable-list surface (spec §6): a
// read-only mirror of an upstream change stream exposing Items,
// Count, a count-changed notification and Connect, with no mutation
// methods of its own. It materialises its mirror lazily on the first
// Items or Count call (Connect does not materialise it) and keeps it current for the lifetime of
// the underlying subscription.
type ReadOnlyCollection[T any] struct {
	startOnce sync.Once
	upstream  stream.ChangeStream[T]

	mu         sync.Mutex
	items      []T
	cancel     stream.Cancel
	onCountChg []func(int)
}

// NewReadOnlyCollection wraps upstream as a read-only view. Pass
// source.Connect(nil) from a collection.SourceList to expose a list
// as read-only without handing out its mutation surface.
func NewReadOnlyCollection[T any](upstream stream.ChangeStream[T]) *ReadOnlyCollection[T] {
	return &ReadOnlyCollection[T]{upstream: upstream}
}

// ensureStarted subscribes exactly once. It must never be called
// while r.mu is held: the upstream's initial snapshot is delivered
// synchronously from inside Subscribe, and its OnNext handler needs
// r.mu for itself.
func (r *ReadOnlyCollection[T]) ensureStarted() {
	r.startOnce.Do(func() {
		materialising := true
		cancel := r.upstream.Subscribe(stream.Observer[T]{
			OnNext: func(cs *change.Set[T]) {
				r.mu.Lock()
				before := len(r.items)
				r.items = change.Apply(r.items, cs)
				after := len(r.items)
				notify := before != after && !materialising
				callbacks := append([]func(int){}, r.onCountChg...)
				r.mu.Unlock()

				if notify {
					for _, cb := range callbacks {
						cb(after)
					}
				}
			},
		})
		r.mu.Lock()
		r.cancel = cancel
		materialising = false
		r.mu.Unlock()
	})
}

// Items returns a snapshot copy of the current contents.
func (r *ReadOnlyCollection[T]) Items() []T {
	r.ensureStarted()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// Count returns the current number of items.
func (r *ReadOnlyCollection[T]) Count() int {
	r.ensureStarted()
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// OnCountChanged registers fn to run whenever Count's value changes.
// Loading the initial snapshot when the mirror materialises does not
// count as a change.
func (r *ReadOnlyCollection[T]) OnCountChanged(fn func(count int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onCountChg = append(r.onCountChg, fn)
}

// Connect returns the underlying change stream, letting callers build
// further operators over the read-only view without ever reaching its
// mutation surface.
func (r *ReadOnlyCollection[T]) Connect() stream.ChangeStream[T] {
	return r.upstream
}

// Close tears down the materialised mirror's subscription.
func (r *ReadOnlyCollection[T]) Close() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
