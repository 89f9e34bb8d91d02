package bridge

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mnohosten/flowset/pkg/collection"
)

// httpAdd decodes a JSON record from the request body and appends it
// to source, one REST mutation per spec §6's source-list surface.
func httpAdd(source *collection.SourceList[Record]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rec Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		source.Add(rec)
		w.WriteHeader(http.StatusCreated)
	}
}

// httpRemoveAt removes the item at the index named by the URL
// parameter.
func httpRemoveAt(source *collection.SourceList[Record]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			http.Error(w, "index must be an integer", http.StatusBadRequest)
			return
		}
		if err := source.RemoveAt(idx); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
