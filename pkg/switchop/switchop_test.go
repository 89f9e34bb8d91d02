package switchop

import (
	"testing"

	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/stream"
)

func innerOf(sets ...*change.Set[int]) stream.ChangeStream[int] {
	return stream.New(func(o stream.Observer[int]) stream.Cancel {
		for _, cs := range sets {
			o.OnNext(cs)
		}
		return func() {}
	})
}

func outerOf(inners ...stream.ChangeStream[int]) stream.ChangeStream[stream.ChangeStream[int]] {
	return stream.New(func(o stream.Observer[stream.ChangeStream[int]]) stream.Cancel {
		for i, inner := range inners {
			cs := change.NewSet[stream.ChangeStream[int]](1)
			cs.Append(change.NewAdd(inner, i))
			o.OnNext(cs)
		}
		return func() {}
	})
}

func TestSwitch_SwitchingClearsPreviousContents(t *testing.T) {
	firstAdd := change.NewSet[int](0)
	firstAdd.Append(change.NewAddRange([]int{1, 2}, 0))
	first := innerOf(firstAdd)

	secondAdd := change.NewSet[int](0)
	secondAdd.Append(change.NewAddRange([]int{9}, 0))
	second := innerOf(secondAdd)

	var batches []*change.Set[int]
	Switch[int](outerOf(first, second)).Subscribe(stream.Observer[int]{
		OnNext: func(cs *change.Set[int]) { batches = append(batches, cs) },
	})

	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3 (add-first, clear-on-switch, add-second)", len(batches))
	}
	if batches[0].Adds() != 2 {
		t.Fatalf("batch 0 Adds() = %d, want 2", batches[0].Adds())
	}
	if batches[1].Removes() != 2 {
		t.Fatalf("batch 1 (switch clear) Removes() = %d, want 2", batches[1].Removes())
	}
	if batches[2].Adds() != 1 {
		t.Fatalf("batch 2 Adds() = %d, want 1", batches[2].Adds())
	}
}

func TestSwitch_NoClearWhenFirstInnerIsEmpty(t *testing.T) {
	empty := innerOf()
	add := change.NewSet[int](0)
	add.Append(change.NewAdd(5, 0))
	second := innerOf(add)

	var batches []*change.Set[int]
	Switch[int](outerOf(empty, second)).Subscribe(stream.Observer[int]{
		OnNext: func(cs *change.Set[int]) { batches = append(batches, cs) },
	})

	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1 (no clear needed, first inner was empty)", len(batches))
	}
	if batches[0].Adds() != 1 {
		t.Fatalf("batch 0 Adds() = %d, want 1", batches[0].Adds())
	}
}
