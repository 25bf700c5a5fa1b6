package config

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"

	"github.com/jmylchreest/sp108ed/internal/errors"
)

// GenerateKey returns a random key of the given length drawn from DefaultKeyCharset.
func GenerateKey(length int) (string, error) {
	if length <= 0 {
		return "", errors.InvalidInputf("key length must be positive, got %d", length)
	}
	limit := big.NewInt(int64(len(DefaultKeyCharset)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", errors.Internalf("generating key: %v", err)
		}
		b[i] = DefaultKeyCharset[n.Int64()]
	}
	return string(b), nil
}

// GetAPIKeys returns a copy of the configured keys.
func (c *Config) GetAPIKeys() []APIKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]APIKey(nil), c.API.APIKeys...)
}

// HasAPIKeys reports whether any key is configured.
func (c *Config) HasAPIKeys() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.API.APIKeys) > 0
}

// AddAPIKey appends a key. Names and keys must be unique.
func (c *Config) AddAPIKey(k APIKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.API.APIKeys {
		if existing.Name == k.Name {
			return errors.InvalidInputf("API key with name %q already exists", k.Name)
		}
		if existing.Key == k.Key {
			return errors.InvalidInputf("API key already exists")
		}
	}
	c.API.APIKeys = append(c.API.APIKeys, k)
	return nil
}

// FindAPIKey looks a key up by value. Every configured key is compared in
// constant time.
func (c *Config) FindAPIKey(key string) (APIKey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var (
		found APIKey
		ok    bool
	)
	for _, k := range c.API.APIKeys {
		if subtle.ConstantTimeCompare([]byte(k.Key), []byte(key)) == 1 {
			found, ok = k, true
		}
	}
	return found, ok
}

// DeleteAPIKey removes the key matching keyOrName and reports whether one was removed.
func (c *Config) DeleteAPIKey(keyOrName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, k := range c.API.APIKeys {
		if k.Key == keyOrName || k.Name == keyOrName {
			c.API.APIKeys = append(c.API.APIKeys[:i], c.API.APIKeys[i+1:]...)
			return true
		}
	}
	return false
}

// SetAPIKeyDisabledStatus flips the disabled flag on the key matching keyOrName.
func (c *Config) SetAPIKeyDisabledStatus(keyOrName string, disabled bool) (APIKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.API.APIKeys {
		k := &c.API.APIKeys[i]
		if k.Key == keyOrName || k.Name == keyOrName {
			k.Disabled = disabled
			return *k, nil
		}
	}
	return APIKey{}, errors.InvalidInputf("API key %q not found", keyOrName)
}
