package collection

import (
	"testing"

	"github.com/mnohosten/flowset/pkg/change"
)

func TestChangeAwareList_CoalescesSequentialAdds(t *testing.T) {
	l := NewChangeAwareList[int](0)
	for i := 1; i <= 10; i++ {
		l.Add(i)
	}

	cs := l.CaptureChanges()
	if cs.Count() != 1 {
		t.Fatalf("Count() = %d, want 1 coalesced batch", cs.Count())
	}
	entries := cs.Changes()
	if entries[0].Reason != change.AddRange {
		t.Fatalf("Reason = %v, want AddRange", entries[0].Reason)
	}
	if entries[0].StartingIndex != 0 {
		t.Fatalf("StartingIndex = %d, want 0", entries[0].StartingIndex)
	}
	for i, v := range entries[0].Items {
		if v != i+1 {
			t.Fatalf("Items[%d] = %d, want %d", i, v, i+1)
		}
	}
}

func TestChangeAwareList_CaptureIsIdempotentWhenNothingChanged(t *testing.T) {
	l := NewChangeAwareList[int](0)
	l.Add(1)
	l.CaptureChanges()

	cs := l.CaptureChanges()
	if !cs.IsEmpty() {
		t.Fatalf("second capture with no mutations should be empty, got %d entries", cs.Count())
	}
}

func TestChangeAwareList_ClearInference(t *testing.T) {
	l := NewChangeAwareList[int](0)
	l.AddRange([]int{1, 2, 3})
	l.CaptureChanges()

	if err := l.RemoveAt(2); err != nil {
		t.Fatal(err)
	}
	if err := l.RemoveAt(1); err != nil {
		t.Fatal(err)
	}
	if err := l.RemoveAt(0); err != nil {
		t.Fatal(err)
	}

	cs := l.CaptureChanges()
	if cs.Count() != 1 {
		t.Fatalf("Count() = %d, want 1 (rewritten as Clear)", cs.Count())
	}
	if cs.Changes()[0].Reason != change.Clear {
		t.Fatalf("Reason = %v, want Clear", cs.Changes()[0].Reason)
	}
	if len(cs.Changes()[0].Items) != 3 {
		t.Fatalf("Clear carries %d items, want 3", len(cs.Changes()[0].Items))
	}
}

func TestChangeAwareList_SingleRemoveIsNotRewrittenAsClear(t *testing.T) {
	l := NewChangeAwareList[int](0)
	l.Add(1)
	l.CaptureChanges()

	l.RemoveAt(0)
	cs := l.CaptureChanges()
	if cs.Changes()[0].Reason != change.Remove {
		t.Fatalf("Reason = %v, want Remove (single removal stays a Remove)", cs.Changes()[0].Reason)
	}
}

func TestChangeAwareList_ReversedSuccessionRemovalCoalesces(t *testing.T) {
	l := NewChangeAwareList[int](0)
	l.AddRange([]int{10, 20, 30, 40})
	l.CaptureChanges()

	// Remove index 2 then index 1: reversed-succession removal of two
	// originally-adjacent items (spec §9 open question).
	l.RemoveAt(2)
	l.RemoveAt(1)

	cs := l.CaptureChanges()
	if cs.Count() != 1 {
		t.Fatalf("Count() = %d, want 1 coalesced RemoveRange", cs.Count())
	}
	if cs.Changes()[0].Reason != change.RemoveRange {
		t.Fatalf("Reason = %v, want RemoveRange", cs.Changes()[0].Reason)
	}
}

func TestChangeAwareList_OutOfRangeErrors(t *testing.T) {
	l := NewChangeAwareList[int](0)
	l.Add(1)

	if err := l.Insert(5, 2); err == nil {
		t.Error("Insert out of range should error")
	}
	if err := l.RemoveAt(5); err == nil {
		t.Error("RemoveAt out of range should error")
	}
	if err := l.Refresh(5); err == nil {
		t.Error("Refresh out of range should error")
	}
}

func TestChangeAwareList_MoveNoOpOnEqualEndpoints(t *testing.T) {
	l := NewChangeAwareList[int](0)
	l.AddRange([]int{1, 2, 3})
	l.CaptureChanges()

	if err := l.Move(1, 1); err != nil {
		t.Fatal(err)
	}
	cs := l.CaptureChanges()
	if !cs.IsEmpty() {
		t.Fatalf("Move onto own position should not be recorded, got %d entries", cs.Count())
	}
}

func TestChangeAwareList_Move(t *testing.T) {
	l := NewChangeAwareList[int](0)
	l.AddRange([]int{1, 2, 3})
	l.CaptureChanges()

	if err := l.Move(0, 2); err != nil {
		t.Fatal(err)
	}
	got := l.Items()
	want := []int{2, 3, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Items() = %v, want %v", got, want)
		}
	}

	cs := l.CaptureChanges()
	if cs.Moves() != 1 {
		t.Fatalf("Moves() = %d, want 1", cs.Moves())
	}
}

func TestChangeAwareList_RefreshItemReportsFound(t *testing.T) {
	l := NewChangeAwareList[int](0)
	l.AddRange([]int{1, 2, 3})
	l.CaptureChanges()

	if !l.RefreshItem(2, func(a, b int) bool { return a == b }) {
		t.Error("RefreshItem should find 2")
	}
	if l.RefreshItem(99, func(a, b int) bool { return a == b }) {
		t.Error("RefreshItem should not find 99")
	}
}

func TestChangeAwareList_RoundTripApply(t *testing.T) {
	l := NewChangeAwareList[int](0)
	l.AddRange([]int{1, 2, 3, 4, 5})
	l.RemoveAt(4)
	l.Set(0, 100)
	l.Add(6)
	before := []int{}
	cs := l.CaptureChanges()

	got := change.Apply(before, cs)
	want := l.Items()
	if len(got) != len(want) {
		t.Fatalf("Apply() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Apply() = %v, want %v", got, want)
		}
	}
}
