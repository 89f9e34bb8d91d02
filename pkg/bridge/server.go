package bridge

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mnohosten/flowset/pkg/collection"
	"github.com/mnohosten/flowset/pkg/refcount"
)

// Config holds the demo hosting application's startup parameters,
// mirroring the teacher's server.Config (pkg/server/config.go) scoped
// down to what a single-collection demo needs.
type Config struct {
	Host          string
	Port          int
	EnableGraphQL bool
}

// DefaultConfig returns host/port defaults matching the teacher's
// server.DefaultConfig.
func DefaultConfig() Config {
	return Config{Host: "localhost", Port: 8080, EnableGraphQL: true}
}

// Server is the demo "hosting application" from spec §1: it owns a
// SourceList[Record], exposes REST mutation endpoints, streams
// changes over a websocket, and optionally answers GraphQL queries
// against the materialised read-only view.
type Server struct {
	config Config
	source *collection.SourceList[Record]
	view   *refcount.ReadOnlyCollection[Record]
	http   *http.Server
}

// New builds a demo server around a fresh, empty source list.
func New(config Config) *Server {
	source := collection.NewSourceList[Record]()
	view := refcount.NewReadOnlyCollection[Record](source.Connect(nil))

	r := Router[Record](view)
	mountMutations(r, source)

	if config.EnableGraphQL {
		schema, err := Schema(view)
		if err == nil {
			r.Post("/graphql", Handler(schema))
		}
	}

	return &Server{
		config: config,
		source: source,
		view:   view,
		http: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
			Handler: r,
		},
	}
}

// mountMutations adds the write-side REST surface (spec §6
// "source-list surface") atop the read-only routes Router already
// mounted.
func mountMutations(r *chi.Mux, source *collection.SourceList[Record]) {
	r.Post("/items", httpAdd(source))
	r.Delete("/items/{index}", httpRemoveAt(source))
}

// ListenAndServe starts the HTTP server and blocks until ctx is
// cancelled, then shuts down gracefully (spec's demo-boundary
// equivalent of the teacher's Server.Start/Shutdown pairing).
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.http.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}
