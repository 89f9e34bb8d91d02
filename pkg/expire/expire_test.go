package expire

import (
	"testing"
	"time"

	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/scheduler"
	"github.com/mnohosten/flowset/pkg/stream"
)

func upstreamOf(sets ...*change.Set[int]) stream.ChangeStream[int] {
	return stream.New(func(o stream.Observer[int]) stream.Cancel {
		for _, cs := range sets {
			o.OnNext(cs)
		}
		return func() {}
	})
}

func TestExpireAfter_OneShotTimerFiresAtTTL(t *testing.T) {
	initial := change.NewSet[int](0)
	initial.Append(change.NewAddRange([]int{1, 2, 3}, 0))

	sched := scheduler.NewVirtual(time.Unix(0, 0))
	var evicted []int
	selector := func(item int) (time.Duration, bool) {
		if item == 2 {
			return 0, false
		}
		return time.Duration(item) * time.Second, true
	}

	cancel := ExpireAfter[int](upstreamOf(initial), selector, sched, 0, func(items []int) {
		evicted = append(evicted, items...)
	})
	defer cancel()

	sched.AdvanceBy(1 * time.Second)
	if len(evicted) != 1 || evicted[0] != 1 {
		t.Fatalf("evicted after 1s = %v, want [1]", evicted)
	}

	sched.AdvanceBy(2 * time.Second)
	if len(evicted) != 2 || evicted[1] != 3 {
		t.Fatalf("evicted after 3s = %v, want [1 3]", evicted)
	}
}

func TestLimitSizeTo_EvictsOldestFirst(t *testing.T) {
	cs := change.NewSet[int](0)
	cs.Append(change.NewAddRange([]int{1, 2, 3}, 0))

	var evicted []int
	LimitSizeTo[int](upstreamOf(cs), 2, func(items []int) { evicted = append(evicted, items...) })

	if len(evicted) != 1 || evicted[0] != 1 {
		t.Fatalf("evicted = %v, want [1] (oldest by insertion order)", evicted)
	}
}
