// Package statestore persists workflow state per tab session. A record
// survives page navigation and is dropped when its tab closes.
package statestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("statestore: not found")

// Store is a namespaced key/value store. Put always replaces the whole value.
type Store interface {
	Get(ctx context.Context, session, kind string) ([]byte, error)
	Put(ctx context.Context, session, kind string, value []byte) error
	Delete(ctx context.Context, session, kind string) error
	ClearSession(ctx context.Context, session string) error
	Close() error
}

type Options struct {
	// Backend is one of sqlite, badger, redis, memory.
	Backend  string
	Path     string
	RedisURL string
	// TTL bounds how long an abandoned session lingers (badger, redis).
	TTL time.Duration
}

func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", "sqlite":
		return OpenSQLite(opts.Path)
	case "badger":
		return OpenBadger(opts.Path, opts.TTL)
	case "redis":
		return OpenRedis(ctx, opts.RedisURL, opts.TTL)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("statestore: unknown backend %q", opts.Backend)
	}
}

func key(session, kind string) string {
	return session + "/" + kind
}

func sessionPrefix(session string) string {
	return session + "/"
}
