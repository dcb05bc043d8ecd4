// Command devtracker serves the job tracker HTTP contract from a local sqlite
// file, for running the engine without the real tracker.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobharvest-engine/internal/config"
	"jobharvest-engine/internal/events"
	"jobharvest-engine/internal/scheduler"
	"jobharvest-engine/internal/store"
	"jobharvest-engine/internal/tracker"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5080", "listen address")
	dbPath := flag.String("db", "tracker.db", "sqlite file")
	recheck := flag.Duration("recheck", 24*time.Hour, "how long a checked job stays off the check queue")
	flag.Parse()

	config.LoadEnvFiles(".env")

	db, err := store.Open(*dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := store.Migrate(db.Pool, store.TrackerSchema); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go scheduler.Every(ctx, 24*time.Hour, "cleanup", func(ctx context.Context) error {
		n, err := store.CleanupOldJobs(ctx, db.Pool)
		if n > 0 {
			log.Printf("[cleanup] removed=%d", n)
		}
		return err
	})

	srv := tracker.New(db.Pool, tracker.Options{
		APIKey:       os.Getenv("HARVEST_API_KEY"),
		RecheckAfter: *recheck,
		Hub:          events.NewHub(),
	})

	hs := &http.Server{Addr: *addr, Handler: srv.Routes(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(sctx)
	}()

	log.Printf("devtracker listening on http://%s (db=%s)", *addr, *dbPath)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
