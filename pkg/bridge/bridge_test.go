package bridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/graphql-go/graphql"

	"github.com/mnohosten/flowset/pkg/collection"
	"github.com/mnohosten/flowset/pkg/refcount"
)

func TestRouter_ItemsReturnsSnapshot(t *testing.T) {
	source := collection.NewSourceList[int]()
	source.AddRange([]int{1, 2, 3})
	view := refcount.NewReadOnlyCollection[int](source.Connect(nil))

	srv := httptest.NewServer(Router[int](view))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/items")
	if err != nil {
		t.Fatalf("GET /items: %v", err)
	}
	defer resp.Body.Close()

	var items []int
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("items = %v, want 3 entries", items)
	}
}

func TestSchema_CountQueryResolvesCurrentContents(t *testing.T) {
	source := collection.NewSourceList[Record]()
	source.Add(Record{"name": "alice"})
	view := refcount.NewReadOnlyCollection[Record](source.Connect(nil))

	schema, err := Schema(view)
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ count }`,
	})
	if len(result.Errors) != 0 {
		t.Fatalf("graphql errors: %v", result.Errors)
	}
	data := result.Data.(map[string]any)
	if data["count"] != 1 {
		t.Fatalf("count = %v, want 1", data["count"])
	}
}
