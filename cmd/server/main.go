package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mnohosten/flowset/pkg/bridge"
)

func main() {
	host := flag.String("host", "localhost", "Server host address")
	port := flag.Int("port", 8080, "Server port")
	enableGraphQL := flag.Bool("graphql", true, "Enable the /graphql query endpoint")
	flag.Parse()

	config := bridge.DefaultConfig()
	config.Host = *host
	config.Port = *port
	config.EnableGraphQL = *enableGraphQL

	srv := bridge.New(config)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("flowset demo server listening on http://%s:%d\n", config.Host, config.Port)
	fmt.Printf("  GET  /items       current snapshot\n")
	fmt.Printf("  GET  /count       current item count\n")
	fmt.Printf("  GET  /ws          live change-set feed\n")
	fmt.Printf("  POST /items       append a record\n")
	fmt.Printf("  DELETE /items/{i} remove by index\n")
	if config.EnableGraphQL {
		fmt.Printf("  POST /graphql     ad-hoc introspection queries\n")
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
