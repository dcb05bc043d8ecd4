// Package notify delivers workflow notices to people and other processes.
package notify

import (
	"context"
	"log"

	"jobharvest-engine/internal/events"
	"jobharvest-engine/internal/harvest"
)

// Multi fans a notice out to every notifier in order.
type Multi []harvest.Notifier

func (m Multi) Notify(ctx context.Context, n harvest.Notice) {
	for _, x := range m {
		if x != nil {
			x.Notify(ctx, n)
		}
	}
}

// Log writes notices to the process log.
type Log struct{}

func (Log) Notify(_ context.Context, n harvest.Notice) {
	log.Printf("[notice] session=%s kind=%s event=%s msg=%q", n.Session, n.Kind, n.Event, n.Message)
}

// EventType is the SSE type a notice is published under.
func EventType(n harvest.Notice) string {
	return "harvest." + string(n.Event)
}

// Hub publishes notices to the local SSE hub.
type Hub struct {
	H *events.Hub
}

func (h Hub) Notify(_ context.Context, n harvest.Notice) {
	h.H.Publish(events.SessionEvent(n.Session, EventType(n), n))
}

// Relay publishes notices to other engine instances.
type Relay struct {
	R *events.Relay
}

func (r Relay) Notify(ctx context.Context, n harvest.Notice) {
	if err := r.R.Publish(ctx, events.SessionEvent(n.Session, EventType(n), n)); err != nil {
		log.Printf("[notify] relay err=%v", err)
	}
}
