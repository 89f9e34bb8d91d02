package adapters

import (
	"time"

	"github.com/mnohosten/flowset/pkg/collection"
	"github.com/mnohosten/flowset/pkg/expire"
	"github.com/mnohosten/flowset/pkg/scheduler"
	"github.com/mnohosten/flowset/pkg/stream"
)

// ChangeSetOptions configures the expiry and size-limiting policies
// ToObservableChangeSet applies to the materialised source list.
type ChangeSetOptions[T any] struct {
	// Expiry, if non-nil, removes an item once its selector's TTL
	// elapses (spec §4.I semantics, reused here rather than
	// duplicated).
	Expiry   expire.ExpirySelector[T]
	Sched    scheduler.Scheduler
	Poll     time.Duration
	SizeLimit int
	Equals   func(a, b T) bool
}

// ToObservableChangeSet lifts values, a plain stream of arriving
// values, into a change stream backed by a freshly materialised
// source list, optionally applying an expire-after policy and a
// size limit (oldest-first eviction) as each value arrives (spec
// §4.L "ToObservableChangeSet").
func ToObservableChangeSet[T any](values <-chan T, opts ChangeSetOptions[T]) (stream.ChangeStream[T], stream.Cancel) {
	source := collection.NewSourceList[T]()
	out := source.Connect(nil)

	var cancelExpire, cancelLimit stream.Cancel
	if opts.Expiry != nil && opts.Sched != nil {
		cancelExpire = expire.ExpireAfter[T](out, opts.Expiry, opts.Sched, opts.Poll, func(evicted []T) {
			for _, item := range evicted {
				source.Remove(item, opts.Equals)
			}
		})
	}
	if opts.SizeLimit > 0 {
		cancelLimit = expire.LimitSizeTo[T](out, opts.SizeLimit, func(evicted []T) {
			for _, item := range evicted {
				source.Remove(item, opts.Equals)
			}
		})
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case v, ok := <-values:
				if !ok {
					return
				}
				source.Add(v)
			case <-done:
				return
			}
		}
	}()

	cancel := func() {
		close(done)
		if cancelExpire != nil {
			cancelExpire()
		}
		if cancelLimit != nil {
			cancelLimit()
		}
	}
	return out, cancel
}
