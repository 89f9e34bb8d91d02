package collection

import (
	"errors"
	"testing"

	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/ddserr"
	"github.com/mnohosten/flowset/pkg/stream"
)

func TestSourceList_ConnectDeliversInitialSnapshot(t *testing.T) {
	sl := NewSourceList[int]()
	sl.AddRange([]int{1, 2, 3})

	var got []int
	loaded := false
	sl.Connect(nil).Subscribe(stream.Observer[int]{
		OnNext: func(cs *change.Set[int]) { got = append(got, cs.AddedItems()...) },
		OnLoaded: func() { loaded = true },
	})

	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("got %v, want [1 2 3]", got)
	}
	if !loaded {
		t.Fatal("expected OnLoaded to fire")
	}
}

func TestSourceList_LiveChangesPropagate(t *testing.T) {
	sl := NewSourceList[int]()

	var batches []*change.Set[int]
	sl.Connect(nil).Subscribe(stream.Observer[int]{
		OnNext: func(cs *change.Set[int]) { batches = append(batches, cs) },
	})

	sl.Add(1)
	sl.Add(2)

	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	if batches[1].Changes()[0].Current != 2 {
		t.Fatalf("second batch current = %v, want 2", batches[1].Changes()[0].Current)
	}
}

func TestSourceList_EditRollsBackOnError(t *testing.T) {
	sl := NewSourceList[int]()
	sl.AddRange([]int{1, 2, 3})

	sentinel := errors.New("boom")
	var emitted int
	sl.Connect(nil).Subscribe(stream.Observer[int]{
		OnNext: func(cs *change.Set[int]) { emitted++ },
	})
	// Connect has delivered the initial [1 2 3] snapshot; count only
	// what the failed Edit emits.
	emitted = 0

	err := sl.Edit(func(l *ChangeAwareList[int]) error {
		l.Add(4)
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}
	if emitted != 0 {
		t.Fatalf("emitted = %d, want 0 on rollback", emitted)
	}
	if got := sl.Items(); len(got) != 3 {
		t.Fatalf("items after rollback = %v, want [1 2 3]", got)
	}
}

func TestSourceList_RemoveByValue(t *testing.T) {
	sl := NewSourceList[string]()
	sl.AddRange([]string{"a", "b", "c"})
	equals := func(a, b string) bool { return a == b }

	if err := sl.Remove("b", equals); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sl.Items(); len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("items = %v, want [a c]", got)
	}

	err := sl.Remove("z", equals)
	if !errors.Is(err, ddserr.ErrItemNotFound) {
		t.Fatalf("err = %v, want ErrItemNotFound", err)
	}
}

func TestSourceList_ConnectWithPredicateFiltersInitialAndLive(t *testing.T) {
	sl := NewSourceList[int]()
	sl.AddRange([]int{1, 2, 3, 4})

	var batches []*change.Set[int]
	sl.Connect(func(v int) bool { return v%2 == 0 }).Subscribe(stream.Observer[int]{
		OnNext: func(cs *change.Set[int]) { batches = append(batches, cs) },
	})

	if len(batches) != 1 {
		t.Fatalf("got %d initial batches, want 1", len(batches))
	}
	if batches[0].Adds() != 2 {
		t.Fatalf("initial Adds() = %d, want 2", batches[0].Adds())
	}

	sl.Add(5)
	sl.Add(6)
	if len(batches) != 2 {
		t.Fatalf("got %d batches after odd add, want 2 (odd add suppressed)", len(batches))
	}
	if batches[1].AddedItems()[0] != 6 {
		t.Fatalf("second live batch = %v, want [6]", batches[1].AddedItems())
	}
}

func TestSourceList_Move(t *testing.T) {
	sl := NewSourceList[int]()
	sl.AddRange([]int{1, 2, 3})

	if err := sl.Move(0, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sl.Items(); got[0] != 2 || got[1] != 3 || got[2] != 1 {
		t.Fatalf("items after move = %v, want [2 3 1]", got)
	}
}

func TestSourceList_Clear(t *testing.T) {
	sl := NewSourceList[int]()
	sl.AddRange([]int{1, 2, 3})

	var last *change.Set[int]
	sl.Connect(nil).Subscribe(stream.Observer[int]{
		OnNext: func(cs *change.Set[int]) { last = cs },
	})

	sl.Clear()
	if last.Changes()[0].Reason != change.Clear {
		t.Fatalf("reason = %v, want Clear", last.Changes()[0].Reason)
	}
	if sl.Count() != 0 {
		t.Fatalf("count = %d, want 0", sl.Count())
	}
}
