package refcount

import (
	"testing"

	"github.com/mnohosten/flowset/pkg/collection"
)

func TestReadOnlyCollection_MirrorsSourceAndReportsCountChanges(t *testing.T) {
	source := collection.NewSourceList[int]()
	source.AddRange([]int{1, 2})

	view := NewReadOnlyCollection[int](source.Connect(nil))
	var counts []int
	view.OnCountChanged(func(c int) { counts = append(counts, c) })

	if got := view.Count(); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}

	source.Add(3)
	if got := view.Count(); got != 3 {
		t.Fatalf("after Add, Count() = %d, want 3", got)
	}
	if len(counts) != 1 || counts[0] != 3 {
		t.Fatalf("OnCountChanged callbacks = %v, want [3]", counts)
	}

	items := view.Items()
	if len(items) != 3 {
		t.Fatalf("Items() = %v, want 3 items", items)
	}

	view.Close()
}
