// Package apikey manages the bearer keys that guard the sp108ed HTTP API.
package apikey

import (
	"log/slog"
	"time"

	"github.com/jmylchreest/sp108ed/internal/config"
	"github.com/jmylchreest/sp108ed/internal/errors"
)

// Manager handles API key business logic. Keys live in config.Config, which
// guards them with its own mutex; mutations are persisted with Config.Save.
type Manager struct {
	cfg *config.Config
	log *slog.Logger
}

// NewManager creates a Manager over cfg.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	m := &Manager{cfg: cfg, log: logger}
	logger.Info("loaded API keys from config", "count", len(cfg.GetAPIKeys()))
	return m
}

// Enabled reports whether requests must carry a key. With no keys
// configured the API is open.
func (m *Manager) Enabled() bool {
	return m.cfg.HasAPIKeys()
}

// CreateAPIKey generates a new key, stores it and saves the config.
func (m *Manager) CreateAPIKey(name string, expiresIn time.Duration) (config.APIKey, error) {
	if name == "" {
		return config.APIKey{}, errors.InvalidInputf("API key name is required")
	}
	keyString, err := config.GenerateKey(config.DefaultKeyLength)
	if err != nil {
		return config.APIKey{}, err
	}

	k := config.APIKey{
		Key:       keyString,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if expiresIn > 0 {
		k.ExpiresAt = k.CreatedAt.Add(expiresIn)
	}
	if err := m.cfg.AddAPIKey(k); err != nil {
		return config.APIKey{}, err
	}
	if err := m.cfg.Save(); err != nil {
		m.log.Error("failed to save config after adding API key", "name", name, "error", err)
		return config.APIKey{}, errors.WrapErrorf(err, "API key added to memory but not saved")
	}

	m.log.Info("created API key", "name", name, "key_prefix", Prefix(k.Key))
	return k, nil
}

// ListAPIKeys returns all keys.
func (m *Manager) ListAPIKeys() []config.APIKey {
	return m.cfg.GetAPIKeys()
}

// DeleteAPIKey removes a key by value or name and saves the config.
func (m *Manager) DeleteAPIKey(keyOrName string) error {
	if !m.cfg.DeleteAPIKey(keyOrName) {
		return errors.InvalidInputf("API key %q not found", keyOrName)
	}
	if err := m.cfg.Save(); err != nil {
		m.log.Error("failed to save config after deleting API key", "error", err)
		return errors.WrapErrorf(err, "API key deleted from memory but not saved")
	}
	m.log.Info("deleted API key", "key", keyOrName)
	return nil
}

// SetAPIKeyDisabledStatus enables or disables a key and saves the config.
func (m *Manager) SetAPIKeyDisabledStatus(keyOrName string, disabled bool) (config.APIKey, error) {
	k, err := m.cfg.SetAPIKeyDisabledStatus(keyOrName, disabled)
	if err != nil {
		return config.APIKey{}, err
	}
	if err := m.cfg.Save(); err != nil {
		m.log.Error("failed to save config after setting API key status", "name", k.Name, "error", err)
		return config.APIKey{}, errors.WrapErrorf(err, "API key status changed in memory but not saved")
	}
	m.log.Info("set API key disabled status", "name", k.Name, "disabled", disabled)
	return k, nil
}

// ValidateAPIKey checks that key exists, is enabled and has not expired.
func (m *Manager) ValidateAPIKey(key string) (config.APIKey, error) {
	k, ok := m.cfg.FindAPIKey(key)
	if !ok {
		return config.APIKey{}, errors.Unauthorizedf("API key not found")
	}
	if k.IsDisabled() {
		return config.APIKey{}, errors.Unauthorizedf("API key is disabled")
	}
	if k.IsExpired() {
		return config.APIKey{}, errors.Unauthorizedf("API key has expired")
	}
	return k, nil
}

// Prefix returns the first 4 characters of a key for safe logging.
func Prefix(key string) string {
	if len(key) >= 4 {
		return key[:4]
	}
	return key
}
