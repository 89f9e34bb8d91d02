package scheduler

import (
	"container/heap"
	"sync"
	"time"
)

// Virtual is a manually-advanced Scheduler for deterministic tests
// (spec §9: "a scheduler is an injectable clock + action queue
// (virtual time in tests)"). Nothing fires until AdvanceBy or
// AdvanceTo is called.
type Virtual struct {
	mu    sync.Mutex
	now   time.Time
	queue timerQueue
	seq   uint64
}

// NewVirtual creates a virtual scheduler starting at the given
// instant.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

type timerEntry struct {
	fireAt   time.Time
	interval time.Duration // zero for one-shot
	action   func()
	cancelled bool
	seq      uint64
	index    int
}

type timerQueue []*timerEntry

func (q timerQueue) Len() int { return len(q) }
func (q timerQueue) Less(i, j int) bool {
	if q[i].fireAt.Equal(q[j].fireAt) {
		return q[i].seq < q[j].seq
	}
	return q[i].fireAt.Before(q[j].fireAt)
}
func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index, q[j].index = i, j
}
func (q *timerQueue) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*q)
	*q = append(*q, e)
}
func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

func (v *Virtual) Schedule(delay time.Duration, action func()) Cancel {
	return v.schedule(delay, 0, action)
}

func (v *Virtual) SchedulePeriodic(interval time.Duration, action func()) Cancel {
	return v.schedule(interval, interval, action)
}

func (v *Virtual) schedule(delay, interval time.Duration, action func()) Cancel {
	v.mu.Lock()
	v.seq++
	e := &timerEntry{fireAt: v.now.Add(delay), interval: interval, action: action, seq: v.seq}
	heap.Push(&v.queue, e)
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		e.cancelled = true
		v.mu.Unlock()
	}
}

// AdvanceBy moves the virtual clock forward by d, firing every due
// action in fire-time order (ties broken by schedule order). Periodic
// actions are re-queued for their next interval before returning.
func (v *Virtual) AdvanceBy(d time.Duration) {
	v.AdvanceTo(v.Now().Add(d))
}

// AdvanceTo moves the virtual clock forward to target, firing every
// action due at or before it.
func (v *Virtual) AdvanceTo(target time.Time) {
	for {
		v.mu.Lock()
		if v.queue.Len() == 0 || v.queue[0].fireAt.After(target) {
			v.now = target
			v.mu.Unlock()
			return
		}
		e := heap.Pop(&v.queue).(*timerEntry)
		v.now = e.fireAt
		cancelled := e.cancelled
		v.mu.Unlock()

		if cancelled {
			continue
		}
		e.action()

		if e.interval > 0 {
			v.mu.Lock()
			if !e.cancelled {
				e.fireAt = e.fireAt.Add(e.interval)
				v.seq++
				e.seq = v.seq
				heap.Push(&v.queue, e)
			}
			v.mu.Unlock()
		}
	}
}

// PendingCount returns the number of still-scheduled (not yet fired,
// not cancelled) actions. Useful for asserting a test drained cleanly.
func (v *Virtual) PendingCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, e := range v.queue {
		if !e.cancelled {
			n++
		}
	}
	return n
}
