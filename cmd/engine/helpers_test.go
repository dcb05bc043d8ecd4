package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest-engine/internal/config"
)

func TestHarvestConfigMapping(t *testing.T) {
	var cfg config.Config
	cfg.Harvest.SettleMs = 1500
	cfg.Harvest.SkipDelayMs = 500
	cfg.Harvest.DelayMs = 20000
	cfg.Harvest.MaxPages = 7
	cfg.Harvest.FetchLimit = 50
	cfg.Harvest.MonitorSeconds = 45

	hc := harvestConfig(cfg)
	assert.Equal(t, 1500*time.Millisecond, hc.SettleDelay)
	assert.Equal(t, 500*time.Millisecond, hc.SkipDelay)
	assert.Equal(t, 20*time.Second, hc.DefaultDelay)
	assert.Equal(t, 7, hc.MaxPages)
	assert.Equal(t, 50, hc.FetchLimit)
	assert.Equal(t, 45*time.Second, hc.MonitorInterval)
}

func TestStatePathAndTTL(t *testing.T) {
	dir := t.TempDir()
	var cfg config.Config
	cfg.State.Backend = "sqlite"
	assert.Equal(t, filepath.Join(dir, "state.db"), statePath(cfg, dir))

	cfg.State.Backend = "badger"
	assert.Equal(t, filepath.Join(dir, "state.badger"), statePath(cfg, dir))

	cfg.State.Path = "custom/harvest.db"
	assert.Equal(t, filepath.Join(dir, "custom/harvest.db"), statePath(cfg, dir))

	assert.Equal(t, 7*24*time.Hour, stateTTL(cfg))
	cfg.State.TTLHours = 12
	assert.Equal(t, 12*time.Hour, stateTTL(cfg))
}

func TestTokenFile(t *testing.T) {
	tok, err := randomToken(16)
	require.NoError(t, err)
	assert.Len(t, tok, 32)

	path := filepath.Join(t.TempDir(), "engine.token")
	require.NoError(t, writeTokenFile(path, tok))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, tok+"\n", string(b))
}

func TestShutdownHandlerGuards(t *testing.T) {
	token := "abc123"
	h := shutdownHandler(&token, &http.Server{})

	do := func(method, remote, hdr string) int {
		req := httptest.NewRequest(method, "/shutdown", nil)
		req.RemoteAddr = remote
		if hdr != "" {
			req.Header.Set("X-Shutdown-Token", hdr)
		}
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusMethodNotAllowed, do(http.MethodGet, "127.0.0.1:5000", token))
	assert.Equal(t, http.StatusForbidden, do(http.MethodPost, "192.0.2.10:5000", token))
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodPost, "127.0.0.1:5000", "nope"))
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodPost, "[::1]:5000", ""))
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "[::1]:5000", token))
}
