package bridge

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mnohosten/flowset/pkg/refcount"
)

// Router builds the REST + websocket surface for a read-only view
// over a change stream: GET returns the current snapshot as JSON, and
// /ws upgrades to a live feed of subsequent changes. Grounded on the
// teacher's Server.setupMiddleware/setupRoutes (pkg/server/server.go).
func Router[T any](view *refcount.ReadOnlyCollection[T]) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	hub := NewHub[T](view.Connect())

	r.Get("/items", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(view.Items())
	})
	r.Get("/count", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"count": view.Count()})
	})
	r.Get("/ws", hub.ServeHTTP)

	return r
}
