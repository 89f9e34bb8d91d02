package group

import (
	"testing"

	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/stream"
)

type trade struct {
	id     int
	region string
}

func tradeEquals(a, b trade) bool { return a.id == b.id }
func regionOf(t trade) string     { return t.region }

func upstreamOf(sets ...*change.Set[trade]) stream.ChangeStream[trade] {
	return stream.New(func(o stream.Observer[trade]) stream.Cancel {
		for _, cs := range sets {
			o.OnNext(cs)
		}
		return func() {}
	})
}

func TestGroup_EmitsAddOnFirstMember(t *testing.T) {
	initial := change.NewSet[trade](0)
	initial.Append(change.NewAddRange([]trade{{1, "east"}, {2, "east"}, {3, "west"}}, 0))

	var result *change.Set[*Container[string, trade]]
	Group[trade, string](upstreamOf(initial), regionOf, tradeEquals, nil).Subscribe(stream.Observer[*Container[string, trade]]{
		OnNext: func(cs *change.Set[*Container[string, trade]]) { result = cs },
	})

	if result.Adds() != 2 {
		t.Fatalf("Adds() = %d, want 2 (east, west)", result.Adds())
	}
	for _, g := range result.AddedItems() {
		if g.Key == "east" && g.Members.Count() != 2 {
			t.Fatalf("east group count = %d, want 2", g.Members.Count())
		}
	}
}

func TestGroup_RemovesGroupWhenEmptied(t *testing.T) {
	initial := change.NewSet[trade](0)
	initial.Append(change.NewAdd(trade{1, "west"}, 0))
	remove := change.NewSet[trade](0)
	remove.Append(change.NewRemove(trade{1, "west"}, 0))

	var batches []*change.Set[*Container[string, trade]]
	Group[trade, string](upstreamOf(initial, remove), regionOf, tradeEquals, nil).Subscribe(stream.Observer[*Container[string, trade]]{
		OnNext: func(cs *change.Set[*Container[string, trade]]) { batches = append(batches, cs) },
	})

	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	if batches[1].Changes()[0].Reason != change.Remove {
		t.Fatalf("second batch reason = %v, want Remove", batches[1].Changes()[0].Reason)
	}
}

func TestGroupImmutable_OneEntryPerAffectedKey(t *testing.T) {
	initial := change.NewSet[trade](0)
	initial.Append(change.NewAddRange([]trade{{1, "east"}, {2, "east"}}, 0))

	var result *change.Set[*ImmutableContainer[string, trade]]
	GroupImmutable[trade, string](upstreamOf(initial), regionOf).Subscribe(stream.Observer[*ImmutableContainer[string, trade]]{
		OnNext: func(cs *change.Set[*ImmutableContainer[string, trade]]) { result = cs },
	})

	if result.Count() != 1 {
		t.Fatalf("got %d entries, want 1 (single east key touched twice)", result.Count())
	}
	if len(result.Changes()[0].Current.Members) != 2 {
		t.Fatalf("east members = %d, want 2", len(result.Changes()[0].Current.Members))
	}
}
