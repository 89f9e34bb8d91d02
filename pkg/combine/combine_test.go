package combine

import (
	"testing"

	"github.com/mnohosten/flowset/pkg/change"
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

func setOf(items ...int) stream.ChangeStream[int] {
	cs := change.NewSet[int](0)
	cs.Append(change.NewAddRange(items, 0))
	return upstreamOf(cs)
}

func collectMembership(s stream.ChangeStream[int]) map[int]bool {
	members := make(map[int]bool)
	s.Subscribe(stream.Observer[int]{
		OnNext: func(cs *change.Set[int]) {
			for _, item := range cs.AddedItems() {
				members[item] = true
			}
			for _, item := range cs.RemovedItems() {
				delete(members, item)
			}
		},
	})
	return members
}

func TestStatic_And(t *testing.T) {
	a := setOf(1, 2, 3)
	b := setOf(2, 3, 4)

	members := collectMembership(Static[int]([]stream.ChangeStream[int]{a, b}, And))
	if len(members) != 2 || !members[2] || !members[3] {
		t.Fatalf("And result = %v, want {2, 3}", members)
	}
}

func TestStatic_Xor(t *testing.T) {
	a := setOf(1, 2)
	b := setOf(2, 3)

	members := collectMembership(Static[int]([]stream.ChangeStream[int]{a, b}, Xor))
	if len(members) != 2 || !members[1] || !members[3] {
		t.Fatalf("Xor result = %v, want {1, 3}", members)
	}
}

func TestStatic_Except(t *testing.T) {
	a := setOf(1, 2, 3)
	b := setOf(2)

	members := collectMembership(Static[int]([]stream.ChangeStream[int]{a, b}, Except))
	if len(members) != 2 || !members[1] || !members[3] {
		t.Fatalf("Except result = %v, want {1, 3}", members)
	}
}

func TestStatic_Or(t *testing.T) {
	a := setOf(1, 2)
	b := setOf(2, 3)

	members := collectMembership(Static[int]([]stream.ChangeStream[int]{a, b}, Or))
	if len(members) != 3 {
		t.Fatalf("Or result = %v, want 3 items", members)
	}
}
