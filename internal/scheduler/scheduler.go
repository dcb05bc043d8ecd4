package scheduler

import (
	"context"
	"log"
	"time"
)

type Task func(ctx context.Context) error

// Every runs task now and then on every interval until ctx is done.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	t := time.NewTicker(interval)
	defer t.Stop()

	// run immediately
	go func() {
		if err := task(ctx); err != nil {
			log.Printf("[%s] error: %v", name, err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := task(ctx); err != nil {
				log.Printf("[%s] error: %v", name, err)
			}
		}
	}
}

// Loop runs task on every interval and whenever kick fires, never
// concurrently with itself. Unlike Every it does not run immediately.
func Loop(ctx context.Context, interval time.Duration, name string, task Task, kick <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		case <-kick:
			t.Reset(interval)
		}
		if ctx.Err() != nil {
			return
		}
		if err := task(ctx); err != nil {
			log.Printf("[%s] error: %v", name, err)
		}
	}
}
