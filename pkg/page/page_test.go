package page

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

func requestsOf(reqs ...Request) stream.ChangeStream[Request] {
	return stream.New(func(o stream.Observer[Request]) stream.Cancel {
		for _, r := range reqs {
			cs := change.NewSet[Request](1)
			cs.Append(change.NewAdd(r, 0))
			o.OnNext(cs)
		}
		return func() {}
	})
}

func TestPage_WindowsFirstPage(t *testing.T) {
	initial := change.NewSet[int](0)
	initial.Append(change.NewAddRange([]int{1, 2, 3, 4, 5, 6, 7}, 0))

	var responses []Response
	var result *change.Set[int]
	Page[int](upstreamOf(initial), requestsOf(Request{ByPage: true, Page: 1, Size: 3}), func(r Response) { responses = append(responses, r) }).
		Subscribe(stream.Observer[int]{OnNext: func(cs *change.Set[int]) { result = cs }})

	if result.Adds() != 3 {
		t.Fatalf("Adds() = %d, want 3", result.Adds())
	}
	if len(responses) == 0 || responses[len(responses)-1].Total != 7 {
		t.Fatalf("response = %+v, want Total=7", responses)
	}
}

func TestPage_WindowShiftDiffsMinimalChanges(t *testing.T) {
	initial := change.NewSet[int](0)
	initial.Append(change.NewAddRange([]int{1, 2, 3, 4, 5}, 0))

	var batches []*change.Set[int]
	Page[int](upstreamOf(initial), requestsOf(
		Request{ByPage: true, Page: 1, Size: 2},
		Request{ByPage: true, Page: 2, Size: 2},
	), nil).Subscribe(stream.Observer[int]{OnNext: func(cs *change.Set[int]) { batches = append(batches, cs) }})

	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	// Both window positions are occupied in old and new windows alike
	// (position 0 and 1 both overlap), so spec §4.G step 5 reports a
	// same-position Replace at each rather than a Remove+Add pair.
	last := batches[1]
	if last.Replaces() != 2 || last.Adds() != 0 || last.Removes() != 0 {
		t.Fatalf("shift batch = adds %d removes %d replaces %d, want 0/0/2", last.Adds(), last.Removes(), last.Replaces())
	}
}

func TestPage_InWindowMovedUpstreamBecomesWindowedMoved(t *testing.T) {
	initial := change.NewSet[int](0)
	initial.Append(change.NewAddRange([]int{1, 2, 3, 4, 5}, 0))
	moved := change.NewSet[int](0)
	moved.Append(change.NewMoved(3, 0, 2)) // item "3" moves from index 2 to index 0

	var batches []*change.Set[int]
	Page[int](upstreamOf(initial, moved), requestsOf(Request{ByPage: true, Page: 1, Size: 5}), nil).
		Subscribe(stream.Observer[int]{OnNext: func(cs *change.Set[int]) { batches = append(batches, cs) }})

	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	c := batches[1].Changes()[0]
	if c.Reason != change.Moved || c.Current != 3 || c.CurrentIndex != 0 || c.PreviousIndex != 2 {
		t.Fatalf("move batch = %+v, want a windowed Moved(3, 0, 2)", c)
	}
	if batches[1].Adds() != 0 || batches[1].Removes() != 0 || batches[1].Replaces() != 0 {
		t.Fatalf("move batch carried extra changes: %+v", batches[1].Changes())
	}
}

func TestPage_OutOfWindowMovedStaysAsRemoveAndAdd(t *testing.T) {
	initial := change.NewSet[int](0)
	initial.Append(change.NewAddRange([]int{1, 2, 3, 4, 5, 6, 7}, 0))
	moved := change.NewSet[int](0)
	moved.Append(change.NewMoved(7, 0, 6)) // item "7" moves from outside the window into it

	var batches []*change.Set[int]
	Page[int](upstreamOf(initial, moved), requestsOf(Request{ByPage: true, Page: 1, Size: 3}), nil).
		Subscribe(stream.Observer[int]{OnNext: func(cs *change.Set[int]) { batches = append(batches, cs) }})

	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	for _, c := range batches[1].Changes() {
		if c.Reason == change.Moved {
			t.Fatalf("move batch wrongly reported a windowed Moved for a move that starts outside the window: %+v", c)
		}
	}
}
