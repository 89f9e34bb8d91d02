package filter

import (
	"testing"
	"time"

	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/stream"
)

func upstreamOfOnSignal(sets ...*change.Set[string]) stream.ChangeStream[string] {
	return stream.New(func(o stream.Observer[string]) stream.Cancel {
		for _, cs := range sets {
			o.OnNext(cs)
		}
		return func() {}
	})
}

func TestOnObservable_SurvivingItemReportsCurrentIndexAfterShift(t *testing.T) {
	signals := map[string]chan struct{}{
		"a": make(chan struct{}, 1),
		"b": make(chan struct{}, 1),
		"c": make(chan struct{}, 1),
	}
	selector := func(item string) <-chan struct{} { return signals[item] }
	alwaysTrue := func(string) bool { return true }

	initial := change.NewSet[string](0)
	initial.Append(change.NewAddRange([]string{"a", "b", "c"}, 0))
	removeA := change.NewSet[string](0)
	removeA.Append(change.NewRemove("a", 0))

	var refreshes []change.Change[string]
	gotRefresh := make(chan struct{}, 1)
	OnObservable[string](upstreamOfOnSignal(initial, removeA), alwaysTrue, selector, nil, 0).Subscribe(stream.Observer[string]{
		OnNext: func(cs *change.Set[string]) {
			for _, c := range cs.Changes() {
				if c.Reason == change.Refresh {
					refreshes = append(refreshes, c)
					select {
					case gotRefresh <- struct{}{}:
					default:
					}
				}
			}
		},
	})

	// After removeA, the surviving items are ["b", "c"] at indices 0 and
	// 1. "c" used to sit at index 2; ticking it now must report index 1,
	// not the stale index 2 captured when its hook was first installed.
	signals["c"] <- struct{}{}
	// The hook goroutine emits the Refresh asynchronously.
	select {
	case <-gotRefresh:
	case <-time.After(time.Second):
	}

	if len(refreshes) != 1 {
		t.Fatalf("got %d refreshes, want 1", len(refreshes))
	}
	if refreshes[0].Current != "c" || refreshes[0].CurrentIndex != 1 {
		t.Fatalf("refresh = %+v, want Refresh(c, 1)", refreshes[0])
	}
}
