package transform

import (
	"errors"
	"testing"

	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/collection"
	"github.com/mnohosten/flowset/pkg/stream"
)

type sourceListChild struct{ sl *collection.SourceList[string] }

func (c sourceListChild) Connect() stream.ChangeStream[string] { return c.sl.Connect(nil) }

func upstreamOf[T any](sets ...*change.Set[T]) stream.ChangeStream[T] {
	return stream.New(func(o stream.Observer[T]) stream.Cancel {
		for _, cs := range sets {
			o.OnNext(cs)
		}
		return func() {}
	})
}

func TestTransform_MapsEachItem(t *testing.T) {
	initial := change.NewSet[int](0)
	initial.Append(change.NewAddRange([]int{1, 2, 3}, 0))

	double := func(item int, prev string, hasPrev bool, index int) string {
		if item == 2 {
			return "two"
		}
		return "other"
	}

	var result *change.Set[string]
	Transform[int, string](upstreamOf(initial), double, Recompute).Subscribe(stream.Observer[string]{
		OnNext: func(cs *change.Set[string]) { result = cs },
	})

	items := result.AddedItems()
	if len(items) != 3 || items[1] != "two" {
		t.Fatalf("items = %v, want [other two other]", items)
	}
}

func TestTransform_ReplacePropagatesPreviousOutput(t *testing.T) {
	initial := change.NewSet[int](0)
	initial.Append(change.NewAdd(1, 0))
	replace := change.NewSet[int](0)
	replace.Append(change.NewReplace(2, 1, 0))

	factory := func(item int, prev string, hasPrev bool, index int) string {
		if item == 2 && hasPrev && prev == "v1" {
			return "v2"
		}
		return "v1"
	}

	var batches []*change.Set[string]
	Transform[int, string](upstreamOf(initial, replace), factory, Recompute).Subscribe(stream.Observer[string]{
		OnNext: func(cs *change.Set[string]) { batches = append(batches, cs) },
	})

	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	c := batches[1].Changes()[0]
	if c.Reason != change.Replace || c.Current != "v2" || c.Previous != "v1" {
		t.Fatalf("replace change = %+v, want Replace(v2, v1)", c)
	}
}

func TestTransformAsync_ErrorIsolatedPerSubscription(t *testing.T) {
	// The first subscription sees an item that fails; the second sees
	// only items that succeed. A shared firstErr would wrongly poison
	// the second subscription with the first subscription's error.
	subscribeCount := 0
	upstream := stream.New(func(o stream.Observer[int]) stream.Cancel {
		subscribeCount++
		cs := change.NewSet[int](0)
		if subscribeCount == 1 {
			cs.Append(change.NewAddRange([]int{1, 2}, 0))
		} else {
			cs.Append(change.NewAddRange([]int{1}, 0))
		}
		o.OnNext(cs)
		return func() {}
	})

	factory := func(item int, prev string, hasPrev bool, index int) (string, error) {
		if item == 2 {
			return "", errors.New("boom")
		}
		return "ok", nil
	}

	derived := TransformAsync[int, string](upstream, factory)

	var errA error
	derived.Subscribe(stream.Observer[string]{
		OnNext:  func(cs *change.Set[string]) {},
		OnError: func(err error) { errA = err },
	})
	if errA == nil {
		t.Fatal("first subscriber: want an error from the failing factory")
	}

	var gotB *change.Set[string]
	var errB error
	derived.Subscribe(stream.Observer[string]{
		OnNext:  func(cs *change.Set[string]) { gotB = cs },
		OnError: func(err error) { errB = err },
	})
	if errB != nil {
		t.Fatalf("second subscriber: got error %v, want none (per-subscription state must not leak)", errB)
	}
	if gotB == nil || gotB.Adds() != 1 {
		t.Fatalf("second subscriber: want a successful batch with 1 add, got %+v", gotB)
	}
}

func TestTransformManyLive_ChildClearEmitsWindowedRemoveRangeNotWholeClear(t *testing.T) {
	childA := collection.NewSourceList[string]()
	childB := collection.NewSourceList[string]()

	factory := func(parent string) ChildSource[string] {
		if parent == "A" {
			return sourceListChild{childA}
		}
		return sourceListChild{childB}
	}

	initial := change.NewSet[string](0)
	initial.Append(change.NewAdd("A", 0))
	initial.Append(change.NewAdd("B", 1))

	var batches []*change.Set[string]
	TransformManyLive[string, string](upstreamOf(initial), factory).Subscribe(stream.Observer[string]{
		OnNext: func(cs *change.Set[string]) { batches = append(batches, cs) },
	})

	childA.Add("a1")
	childB.Add("b1")
	childA.Add("a2")

	if len(batches) != 3 {
		t.Fatalf("got %d batches before clear, want 3", len(batches))
	}
	last := batches[len(batches)-1].Changes()[0]
	if last.Reason != change.Add || last.Current != "a2" || last.CurrentIndex != 1 {
		t.Fatalf("third add = %+v, want Add(a2, 1)", last)
	}

	childA.Clear()

	if len(batches) != 4 {
		t.Fatalf("got %d batches after clear, want 4", len(batches))
	}
	cleared := batches[3].Changes()[0]
	if cleared.Reason != change.RemoveRange {
		t.Fatalf("child clear relocated as %v, want RemoveRange", cleared.Reason)
	}
	if cleared.StartingIndex != 0 || len(cleared.Items) != 2 {
		t.Fatalf("cleared = %+v, want a windowed RemoveRange at 0 covering childA's 2 items only", cleared)
	}
}

func TestTransformMany_FlattensChildren(t *testing.T) {
	initial := change.NewSet[int](0)
	initial.Append(change.NewAddRange([]int{1, 2}, 0))

	factory := func(parent int) []string {
		out := make([]string, parent)
		for i := range out {
			out[i] = "child"
		}
		return out
	}

	var result *change.Set[string]
	TransformMany[int, string](upstreamOf(initial), factory, func(a, b string) bool { return a == b }).Subscribe(stream.Observer[string]{
		OnNext: func(cs *change.Set[string]) { result = cs },
	})

	if result.Adds() != 3 {
		t.Fatalf("Adds() = %d, want 3 (1 child + 2 children)", result.Adds())
	}
}

func TestTransformMany_RemoveParentRemovesItsChildren(t *testing.T) {
	initial := change.NewSet[int](0)
	initial.Append(change.NewAddRange([]int{1, 2}, 0))
	remove := change.NewSet[int](0)
	remove.Append(change.NewRemove(2, 1))

	factory := func(parent int) []string {
		out := make([]string, parent)
		for i := range out {
			out[i] = "c"
		}
		return out
	}

	var batches []*change.Set[string]
	TransformMany[int, string](upstreamOf(initial, remove), factory, func(a, b string) bool { return a == b }).Subscribe(stream.Observer[string]{
		OnNext: func(cs *change.Set[string]) { batches = append(batches, cs) },
	})

	if batches[1].Removes() != 2 {
		t.Fatalf("Removes() = %d, want 2", batches[1].Removes())
	}
}
