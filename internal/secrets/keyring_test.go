package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"jobharvest-engine/internal/config"
)

func keyringConfig() config.Config {
	var cfg config.Config
	cfg.Backend.BaseURL = "https://tracker.example.com:8443/api"
	cfg.Backend.UseKeyring = true
	return cfg
}

func TestBackendKeyringAccountUsesHost(t *testing.T) {
	assert.Equal(t, "jobharvest:backend:tracker.example.com:8443", BackendKeyringAccount(keyringConfig()))
}

func TestResolveFillsMissingSecrets(t *testing.T) {
	keyring.MockInit()
	cfg := keyringConfig()
	cfg.Notify.Telegram.Enabled = true

	require.NoError(t, SetBackendAPIKey(cfg, "from-keyring"))
	require.NoError(t, SetTelegramToken("bot-token"))

	require.NoError(t, Resolve(&cfg))
	assert.Equal(t, "from-keyring", cfg.Backend.APIKey)
	assert.Equal(t, "bot-token", cfg.Notify.Telegram.Token)
}

func TestResolveKeepsExplicitValues(t *testing.T) {
	keyring.MockInit()
	cfg := keyringConfig()
	require.NoError(t, SetBackendAPIKey(cfg, "from-keyring"))

	cfg.Backend.APIKey = "from-env"
	require.NoError(t, Resolve(&cfg))
	assert.Equal(t, "from-env", cfg.Backend.APIKey)
}

func TestResolveMissingEntryIsNotAnError(t *testing.T) {
	keyring.MockInit()
	cfg := keyringConfig()
	require.NoError(t, Resolve(&cfg))
	assert.Empty(t, cfg.Backend.APIKey)

	require.NoError(t, SetBackendAPIKey(cfg, "k"))
	require.NoError(t, DeleteBackendAPIKey(cfg))
	require.NoError(t, Resolve(&cfg))
	assert.Empty(t, cfg.Backend.APIKey)
}

func TestResolveDisabled(t *testing.T) {
	keyring.MockInit()
	cfg := keyringConfig()
	require.NoError(t, SetBackendAPIKey(cfg, "k"))

	cfg.Backend.UseKeyring = false
	require.NoError(t, Resolve(&cfg))
	assert.Empty(t, cfg.Backend.APIKey)
}

func TestSetRejectsEmpty(t *testing.T) {
	keyring.MockInit()
	assert.Error(t, SetTelegramToken("  "))
}
