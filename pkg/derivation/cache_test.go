package derivation

import (
	"testing"
	"time"
)

func TestCache_GetOrMaterializeCallsMaterializeOncePerKey(t *testing.T) {
	c := NewCache(10, 0)
	key := Key([]byte("sorted-by-price"))

	calls := 0
	materialize := func() any {
		calls++
		return []int{1, 2, 3}
	}

	first := c.GetOrMaterialize(key, materialize)
	second := c.GetOrMaterialize(key, materialize)

	if calls != 1 {
		t.Fatalf("materialize called %d times, want 1", calls)
	}
	if len(first.([]int)) != 3 || len(second.([]int)) != 3 {
		t.Fatalf("unexpected cached values: %v %v", first, second)
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2, 0)
	a := Key([]byte("a"))
	b := Key([]byte("b"))
	d := Key([]byte("d"))

	c.GetOrMaterialize(a, func() any { return "a" })
	c.GetOrMaterialize(b, func() any { return "b" })
	c.Get(a) // touch a so it is no longer the LRU entry
	c.GetOrMaterialize(d, func() any { return "d" })

	if _, ok := c.Get(b); ok {
		t.Fatal("b should have been evicted as the least recently used entry")
	}
	if _, ok := c.Get(a); !ok {
		t.Fatal("a should still be cached")
	}
	if _, ok := c.Get(d); !ok {
		t.Fatal("d should still be cached")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := NewCache(10, time.Millisecond)
	key := Key([]byte("k"))
	c.GetOrMaterialize(key, func() any { return 1 })

	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Fatal("entry should have expired")
	}
}

func TestCompressedSnapshot_RoundTrips(t *testing.T) {
	snap, err := CompressSnapshot([]int{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("CompressSnapshot: %v", err)
	}

	var out []int
	if err := snap.Decode(&out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out) != 5 || out[4] != 5 {
		t.Fatalf("out = %v, want [1 2 3 4 5]", out)
	}
}
