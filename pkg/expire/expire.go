// Package expire implements Expire-after and LimitSizeTo (spec §4.I,
// component L): time-driven and size-driven eviction, both of which
// decide what should be removed and leave the actual removal to the
// caller's SourceList.Remove, since the operator itself observes a
// read-only stream rather than owning the source.
package expire

import (
	"sort"
	"time"

	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/concurrent"
	"github.com/mnohosten/flowset/pkg/scheduler"
	"github.com/mnohosten/flowset/pkg/stream"
)

// ExpirySelector computes how long from now an item should live, or
// ok=false if it never expires.
type ExpirySelector[T any] func(item T) (ttl time.Duration, ok bool)

// entry tracks one currently-live item and the sequence number it was
// observed in, used to break expiry ties in LimitSizeTo's
// oldest-first eviction (spec §4.I: "sort by expiry instant, then by
// monotonic sequence number").
type entry[T any] struct {
	item     T
	expireAt time.Time
	hasExp   bool
	seq      uint64
}

// ExpireAfter watches upstream for items whose selector yields a TTL
// and emits them on evictions, one batch per firing. If poll > 0, a
// single recurring job re-evaluates every item's remaining TTL every
// poll interval; otherwise a one-shot timer is scheduled per distinct
// expiry instant (deduplicated, so many items sharing an instant share
// one timer).
func ExpireAfter[T any](upstream stream.ChangeStream[T], selector ExpirySelector[T], sched scheduler.Scheduler, poll time.Duration, evictions func([]T)) stream.Cancel {
	sync := &stream.Synchronize{}
	var live []entry[T]
	seq := concurrent.NewSequenceCounter()
	scheduledAt := make(map[time.Time]bool)
	var cancelTimers []scheduler.Cancel

	fire := func() {
		now := sched.Now()
		var expired []T
		kept := live[:0]
		for _, e := range live {
			if e.hasExp && !e.expireAt.After(now) {
				expired = append(expired, e.item)
				continue
			}
			kept = append(kept, e)
		}
		live = kept
		if len(expired) > 0 && evictions != nil {
			evictions(expired)
		}
	}

	scheduleFor := func(at time.Time) {
		if poll > 0 || scheduledAt[at] {
			return
		}
		scheduledAt[at] = true
		delay := at.Sub(sched.Now())
		if delay < 0 {
			delay = 0
		}
		c := sched.Schedule(delay, func() {
			sync.Do(func() {
				delete(scheduledAt, at)
				fire()
			})
		})
		cancelTimers = append(cancelTimers, c)
	}

	cancelUpstream := stream.Guard(sync, upstream).Subscribe(stream.Observer[T]{
		OnNext: func(cs *change.Set[T]) {
			for _, c := range cs.Changes() {
				switch c.Reason {
				case change.Add:
					trackNew(&live, c.Current, selector, sched, seq, scheduleFor)
				case change.AddRange:
					for _, item := range c.Items {
						trackNew(&live, item, selector, sched, seq, scheduleFor)
					}
				case change.Remove:
					live = untrack(live, c.Current)
				case change.RemoveRange, change.Clear:
					for _, item := range c.Items {
						live = untrack(live, item)
					}
				case change.Replace:
					live = untrack(live, c.Previous)
					trackNew(&live, c.Current, selector, sched, seq, scheduleFor)
				case change.Refresh:
					live = untrack(live, c.Current)
					trackNew(&live, c.Current, selector, sched, seq, scheduleFor)
				}
			}
		},
	})

	var cancelPoll scheduler.Cancel
	if poll > 0 {
		cancelPoll = sched.SchedulePeriodic(poll, func() { sync.Do(fire) })
	}

	return func() {
		cancelUpstream()
		for _, c := range cancelTimers {
			c()
		}
		if cancelPoll != nil {
			cancelPoll()
		}
	}
}

func trackNew[T any](live *[]entry[T], item T, selector ExpirySelector[T], sched scheduler.Scheduler, seq *concurrent.SequenceCounter, scheduleFor func(time.Time)) {
	ttl, ok := selector(item)
	e := entry[T]{item: item, seq: seq.Next()}
	if ok {
		e.hasExp = true
		e.expireAt = sched.Now().Add(ttl)
		scheduleFor(e.expireAt)
	}
	*live = append(*live, e)
}

func untrack[T any](live []entry[T], item T) []entry[T] {
	for i, e := range live {
		if any(e.item) == any(item) {
			return append(live[:i], live[i+1:]...)
		}
	}
	return live
}

// LimitSizeTo watches upstream content and, whenever the tracked count
// exceeds limit, selects the oldest overflow items (sorted by expiry
// instant then monotonic sequence) and reports them for eviction.
// Items have no expiry concept of their own here; insertion order
// alone (via the sequence counter) determines "oldest".
func LimitSizeTo[T any](upstream stream.ChangeStream[T], limit int, evictions func([]T)) stream.Cancel {
	var live []entry[T]
	seq := concurrent.NewSequenceCounter()

	return upstream.Subscribe(stream.Observer[T]{
		OnNext: func(cs *change.Set[T]) {
			for _, c := range cs.Changes() {
				switch c.Reason {
				case change.Add:
					live = append(live, entry[T]{item: c.Current, seq: seq.Next()})
				case change.AddRange:
					for _, item := range c.Items {
						live = append(live, entry[T]{item: item, seq: seq.Next()})
					}
				case change.Remove:
					live = untrack(live, c.Current)
				case change.RemoveRange, change.Clear:
					for _, item := range c.Items {
						live = untrack(live, item)
					}
				case change.Replace:
					live = untrack(live, c.Previous)
					live = append(live, entry[T]{item: c.Current, seq: seq.Next()})
				}
			}

			overflow := len(live) - limit
			if overflow <= 0 {
				return
			}
			sorted := append([]entry[T](nil), live...)
			sort.Slice(sorted, func(i, j int) bool {
				if sorted[i].hasExp != sorted[j].hasExp {
					return sorted[i].hasExp
				}
				if sorted[i].hasExp && sorted[i].expireAt != sorted[j].expireAt {
					return sorted[i].expireAt.Before(sorted[j].expireAt)
				}
				return sorted[i].seq < sorted[j].seq
			})

			evicted := make([]T, overflow)
			for i := 0; i < overflow; i++ {
				evicted[i] = sorted[i].item
				live = untrack(live, sorted[i].item)
			}
			if evictions != nil {
				evictions(evicted)
			}
		},
	})
}
