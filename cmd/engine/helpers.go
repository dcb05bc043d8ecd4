package main

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net"
	"net/http"
	"os"
	"time"

	"jobharvest-engine/internal/config"
	"jobharvest-engine/internal/harvest"
)

func harvestConfig(cfg config.Config) harvest.Config {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return harvest.Config{
		SettleDelay:     ms(cfg.Harvest.SettleMs),
		SkipDelay:       ms(cfg.Harvest.SkipDelayMs),
		DefaultDelay:    ms(cfg.Harvest.DelayMs),
		MaxPages:        cfg.Harvest.MaxPages,
		FetchLimit:      cfg.Harvest.FetchLimit,
		MonitorInterval: time.Duration(cfg.Harvest.MonitorSeconds) * time.Second,
	}
}

func statePath(cfg config.Config, dataDir string) string {
	if cfg.State.Path != "" {
		return config.ResolvePath(dataDir, cfg.State.Path)
	}
	if cfg.State.Backend == "badger" {
		return config.ResolvePath(dataDir, "state.badger")
	}
	return config.ResolvePath(dataDir, "state.db")
}

func stateTTL(cfg config.Config) time.Duration {
	if cfg.State.TTLHours > 0 {
		return time.Duration(cfg.State.TTLHours) * time.Hour
	}
	return 7 * 24 * time.Hour
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// writeTokenFile leaves the shutdown token where a local launcher can read it.
func writeTokenFile(path, token string) error {
	return os.WriteFile(path, []byte(token+"\n"), 0o600)
}

func shutdownHandler(token *string, srv *http.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		// Local-only guard
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if host != "127.0.0.1" && host != "::1" && host != "localhost" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		// Token guard
		got := r.Header.Get("X-Shutdown-Token")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(*token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// Respond immediately, then shutdown asynchronously
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("shutting down\n"))

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}
}
