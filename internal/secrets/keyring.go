package secrets

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zalando/go-keyring"

	"jobharvest-engine/internal/config"
)

const (
	// “Service” groups the app's secrets in the OS keychain.
	KeyringService = "jobharvest"
)

var ErrNotFound = errors.New("secret not found")

func get(account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", errors.New("keyring account name is empty")
	}
	v, err := keyring.Get(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(v) == "" {
		return "", ErrNotFound
	}
	return v, nil
}

func set(account, value string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret is empty")
	}
	return keyring.Set(KeyringService, account, value)
}

// BackendKeyringAccount names the tracker API key entry; one per tracker host.
func BackendKeyringAccount(cfg config.Config) string {
	host := cfg.Backend.BaseURL
	if u, err := url.Parse(cfg.Backend.BaseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return fmt.Sprintf("jobharvest:backend:%s", host)
}

func TelegramKeyringAccount() string { return "jobharvest:telegram" }

func SetBackendAPIKey(cfg config.Config, key string) error {
	return set(BackendKeyringAccount(cfg), key)
}

func DeleteBackendAPIKey(cfg config.Config) error {
	return keyring.Delete(KeyringService, BackendKeyringAccount(cfg))
}

func SetTelegramToken(token string) error {
	return set(TelegramKeyringAccount(), token)
}

// Resolve fills secrets missing from cfg from the keychain when
// backend.use_keyring is on. Values from yaml or env win.
func Resolve(cfg *config.Config) error {
	if !cfg.Backend.UseKeyring {
		return nil
	}
	if cfg.Backend.APIKey == "" {
		v, err := get(BackendKeyringAccount(*cfg))
		switch {
		case err == nil:
			cfg.Backend.APIKey = v
		case !errors.Is(err, ErrNotFound):
			return fmt.Errorf("read backend api key: %w", err)
		}
	}
	if cfg.Notify.Telegram.Enabled && cfg.Notify.Telegram.Token == "" {
		v, err := get(TelegramKeyringAccount())
		switch {
		case err == nil:
			cfg.Notify.Telegram.Token = v
		case !errors.Is(err, ErrNotFound):
			return fmt.Errorf("read telegram token: %w", err)
		}
	}
	return nil
}
