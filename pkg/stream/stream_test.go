package stream

import (
	"testing"

	"github.com/mnohosten/flowset/pkg/change"
)

func emitter[T any](sets ...*change.Set[T]) ChangeStream[T] {
	return New(func(o Observer[T]) Cancel {
		for _, cs := range sets {
			o.next(cs)
		}
		o.loaded()
		o.complete()
		return func() {}
	})
}

func TestNotEmpty_SuppressesEmptySets(t *testing.T) {
	empty := change.NewSet[int](0)
	nonEmpty := change.NewSet[int](0)
	nonEmpty.Append(change.NewAdd(1, 0))

	var received int
	NotEmpty(emitter(empty, nonEmpty)).Subscribe(Observer[int]{
		OnNext: func(cs *change.Set[int]) { received++ },
	})

	if received != 1 {
		t.Fatalf("received = %d, want 1", received)
	}
}

func TestSkipInitial_DropsFirstSetOnly(t *testing.T) {
	a := change.NewSet[int](0)
	a.Append(change.NewAdd(1, 0))
	b := change.NewSet[int](0)
	b.Append(change.NewAdd(2, 1))

	var got []int
	SkipInitial(emitter(a, b)).Subscribe(Observer[int]{
		OnNext: func(cs *change.Set[int]) { got = append(got, cs.Changes()[0].Current) },
	})

	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("got = %v, want [2]", got)
	}
}

func TestRefCount_SharesOneUpstreamSubscription(t *testing.T) {
	starts := 0
	factory := func() ChangeStream[int] {
		starts++
		return emitter[int]()
	}

	shared := RefCount(factory)

	cancel1 := shared.Subscribe(Observer[int]{})
	cancel2 := shared.Subscribe(Observer[int]{})

	if starts != 1 {
		t.Fatalf("starts = %d, want 1 (shared subscription)", starts)
	}

	cancel1()
	cancel2()

	shared.Subscribe(Observer[int]{})
	if starts != 2 {
		t.Fatalf("starts = %d, want 2 (new subscription after last unsubscribe)", starts)
	}
}

func TestSynchronize_SerialisesEmissions(t *testing.T) {
	s := &Synchronize{}
	cs := change.NewSet[int](0)
	cs.Append(change.NewAdd(1, 0))

	var order []string
	Guard(s, emitter(cs)).Subscribe(Observer[int]{
		OnNext:   func(*change.Set[int]) { order = append(order, "next") },
		OnLoaded: func() { order = append(order, "loaded") },
	})

	if len(order) != 2 || order[0] != "next" || order[1] != "loaded" {
		t.Fatalf("order = %v, want [next loaded]", order)
	}
}
