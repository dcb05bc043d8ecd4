package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Relay shares events between engine instances over a redis channel.
// Each instance tags what it publishes and ignores its own messages when
// forwarding into the local hub.
type Relay struct {
	rdb     *redis.Client
	channel string
	origin  string
}

type relayMsg struct {
	Origin string          `json:"origin"`
	Event  json.RawMessage `json:"event"`
}

func NewRelay(rdb *redis.Client, channel string) *Relay {
	if channel == "" {
		channel = "jobharvest:events"
	}
	return &Relay{rdb: rdb, channel: channel, origin: uuid.NewString()}
}

func (r *Relay) Channel() string { return r.channel }

// Publish sends one MakeEvent string to the channel.
func (r *Relay) Publish(ctx context.Context, evt string) error {
	b, err := json.Marshal(relayMsg{Origin: r.origin, Event: json.RawMessage(evt)})
	if err != nil {
		return err
	}
	if err := r.rdb.Publish(ctx, r.channel, b).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", r.channel, err)
	}
	return nil
}

// Forward copies events published by other instances into hub until ctx ends.
func (r *Relay) Forward(ctx context.Context, hub *Hub) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg relayMsg
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				log.Printf("[events] relay drop bad payload: %v", err)
				continue
			}
			if msg.Origin == r.origin {
				continue
			}
			hub.Publish(string(msg.Event))
		}
	}
}
