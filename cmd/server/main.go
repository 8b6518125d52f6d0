/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the funding engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize the store (memory, sqlite, or postgres)
  3. Build the rail gateway client
  4. Wire the coordinator, query service, and directory
  5. Start the HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port            HTTP server port (default: 8080)
  -store           Store driver: memory | sqlite | postgres (default: sqlite)
  -db              SQLite path (default: funding.db; ":memory:" works) or
                   PostgreSQL DSN when -store=postgres
  -rail            Rail endpoint base URL (required)
  -rail-timeout    Rail call timeout (default: 30s)
  -fee             Rail transfer fee in e8s (default: 10000)
  -custody         Identity of the engine's custodial rail account (required)
  -channel-secret  Shared channel secret; empty disables channel auth

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

EXAMPLES:
  # Dev, in-memory store, local mock rail
  ./server -store=memory -rail=http://localhost:9090 -custody=engine-custody

  # Production-ish
  ./server -store=postgres -db="postgres://..." \
      -rail=https://rail.internal -custody=engine-custody \
      -channel-secret="$CHANNEL_SECRET"

SEE ALSO:
  - api/server.go: Router configuration
  - funding/coordinator.go: The transfer state machine
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soulboard/funding-engine/api"
	"github.com/soulboard/funding-engine/directory"
	"github.com/soulboard/funding-engine/funding"
	memstore "github.com/soulboard/funding-engine/funding/store"
	"github.com/soulboard/funding-engine/rail"
	"github.com/soulboard/funding-engine/store/postgres"
	"github.com/soulboard/funding-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	storeDriver := flag.String("store", "sqlite", "store driver: memory | sqlite | postgres")
	dbPath := flag.String("db", "funding.db", "SQLite path or PostgreSQL DSN")
	railURL := flag.String("rail", "", "rail endpoint base URL")
	railTimeout := flag.Duration("rail-timeout", 30*time.Second, "rail call timeout")
	fee := flag.Uint64("fee", uint64(funding.DefaultFee), "rail transfer fee in e8s")
	custody := flag.String("custody", "", "identity of the custodial rail account")
	channelSecret := flag.String("channel-secret", "", "shared channel secret (empty disables)")
	flag.Parse()

	// Env fallbacks for the secrets-shaped settings.
	if *dbPath == "funding.db" {
		if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
			*dbPath = dsn
		}
	}
	if *channelSecret == "" {
		*channelSecret = os.Getenv("CHANNEL_SECRET")
	}

	if *railURL == "" {
		log.Fatal("missing required flag: -rail")
	}
	if *custody == "" {
		log.Fatal("missing required flag: -custody")
	}

	// Initialize store
	var (
		store   funding.TxStore
		closeFn func() error
	)
	switch *storeDriver {
	case "memory":
		store = memstore.NewMemory()
		closeFn = func() error { return nil }
	case "sqlite":
		s, err := sqlite.New(*dbPath)
		if err != nil {
			log.Fatalf("Failed to initialize sqlite store: %v", err)
		}
		store, closeFn = s, s.Close
	case "postgres":
		s, err := postgres.New(*dbPath)
		if err != nil {
			log.Fatalf("Failed to initialize postgres store: %v", err)
		}
		store, closeFn = s, s.Close
	default:
		log.Fatalf("Unknown store driver %q", *storeDriver)
	}
	defer closeFn()

	// Wire domain services
	gateway := rail.NewClient(*railURL, *railTimeout)
	coordinator := funding.NewCoordinator(store, gateway, funding.Identity(*custody), funding.Tokens(*fee))
	queries := funding.NewQueryService(store)
	dir := directory.NewService(store)

	handler := api.NewHandler(coordinator, queries, dir)
	router := api.NewRouter(handler, api.RouterConfig{ChannelSecret: *channelSecret})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // rail calls can take the full timeout
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Funding engine listening on http://localhost:%d (store=%s, rail=%s)", *port, *storeDriver, *railURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
