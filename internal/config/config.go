package config

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/jmylchreest/sp108ed/internal/errors"
)

// Config represents the application configuration
type Config struct {
	Device  DeviceConfig  `mapstructure:"device" yaml:"device"`
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Polling PollingConfig `mapstructure:"polling" yaml:"polling"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Internal viper instance
	v  *viper.Viper
	mu sync.Mutex
}

// DeviceConfig describes the controller to talk to
type DeviceConfig struct {
	Host           string        `mapstructure:"host" yaml:"host"`
	Port           int           `mapstructure:"port" yaml:"port"`
	ChipType       string        `mapstructure:"chip_type" yaml:"chip_type,omitempty"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
}

// APIConfig represents the HTTP API configuration
type APIConfig struct {
	ListenAddress string `mapstructure:"listen_address" yaml:"listen_address"`
	RateLimit     int    `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per minute per IP, 0 disables
	// APIKeys guard the mutating routes. An empty list leaves the API open.
	APIKeys []APIKey `mapstructure:"api_keys" yaml:"api_keys,omitempty"`
}

// APIKey is a named bearer token accepted by the HTTP API.
type APIKey struct {
	Key       string    `mapstructure:"key" yaml:"key"`
	Name      string    `mapstructure:"name" yaml:"name"`
	CreatedAt time.Time `mapstructure:"created_at" yaml:"created_at"`
	ExpiresAt time.Time `mapstructure:"expires_at" yaml:"expires_at,omitempty"`
	Disabled  bool      `mapstructure:"disabled" yaml:"disabled,omitempty"`
}

// IsExpired reports whether the key has an expiry in the past.
func (k APIKey) IsExpired() bool {
	return !k.ExpiresAt.IsZero() && time.Now().After(k.ExpiresAt)
}

// IsDisabled reports whether the key has been switched off.
func (k APIKey) IsDisabled() bool {
	return k.Disabled
}

// PollingConfig controls background status refreshes
type PollingConfig struct {
	Interval  time.Duration `mapstructure:"interval" yaml:"interval"` // 0 disables the poller
	StatusTTL time.Duration `mapstructure:"status_ttl" yaml:"status_ttl"`
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.host", "")
	v.SetDefault("device.port", DefaultDevicePort)
	v.SetDefault("device.chip_type", "")
	v.SetDefault("device.connect_timeout", DefaultConnectTimeout)
	v.SetDefault("device.read_timeout", DefaultReadTimeout)
	v.SetDefault("api.listen_address", DefaultAPIListenAddress)
	v.SetDefault("api.rate_limit", DefaultRateLimit)
	v.SetDefault("polling.interval", DefaultPollInterval)
	v.SetDefault("polling.status_ttl", DefaultStatusTTL)
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.format", LogFormatText)
}

// New wraps an existing viper instance, applying defaults.
func New(v *viper.Viper) *Config {
	setDefaults(v)
	cfg := &Config{v: v}
	cfg.populate()
	return cfg
}

// Load loads configuration from a file and environment variables. A missing
// file is not an error; a malformed one is.
func Load(configName, configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		slog.Debug("config: using config file from command line", "path", configFile)
	} else {
		configPath := GetConfigPath(configName)
		v.SetConfigFile(configPath)

		if err := os.MkdirAll(GetConfigBaseDir(), 0755); err != nil {
			return nil, fmt.Errorf("error creating config directory: %w", err)
		}
		if _, err := os.Stat(configPath); err == nil {
			slog.Debug("config: using default config file", "path", configPath)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{v: v}
	cfg.populate()
	return cfg, nil
}

func decodeAPIKeys(v *viper.Viper) []APIKey {
	var keys []APIKey
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.UnmarshalKey("api.api_keys", &keys, hook); err != nil {
		slog.Warn("config: ignoring malformed api.api_keys", "error", err)
		return nil
	}
	return keys
}

func (c *Config) populate() {
	v := c.v
	c.Device = DeviceConfig{
		Host:           v.GetString("device.host"),
		Port:           v.GetInt("device.port"),
		ChipType:       v.GetString("device.chip_type"),
		ConnectTimeout: v.GetDuration("device.connect_timeout"),
		ReadTimeout:    v.GetDuration("device.read_timeout"),
	}
	c.API = APIConfig{
		ListenAddress: v.GetString("api.listen_address"),
		RateLimit:     v.GetInt("api.rate_limit"),
		APIKeys:       decodeAPIKeys(v),
	}
	c.Polling = PollingConfig{
		Interval:  ValidatePollInterval(v.GetDuration("polling.interval")),
		StatusTTL: v.GetDuration("polling.status_ttl"),
	}
	c.Logging = LoggingConfig{
		Level:  v.GetString("logging.level"),
		Format: v.GetString("logging.format"),
	}
}

// Validate checks the values the daemon cannot run without.
func (c *Config) Validate() error {
	if c.Device.Host == "" {
		return errors.InvalidInputf("device.host is required")
	}
	if c.Device.Port <= 0 || c.Device.Port > 65535 {
		return errors.InvalidInputf("device.port %d out of range", c.Device.Port)
	}
	if c.Device.ConnectTimeout <= 0 || c.Device.ReadTimeout <= 0 {
		return errors.InvalidInputf("device timeouts must be positive")
	}
	if c.API.RateLimit < 0 {
		return errors.InvalidInputf("api.rate_limit must not be negative")
	}
	seen := make(map[string]bool, len(c.API.APIKeys))
	for i, k := range c.API.APIKeys {
		if k.Key == "" {
			return errors.InvalidInputf("api.api_keys[%d] has no key", i)
		}
		if seen[k.Key] {
			return errors.InvalidInputf("api.api_keys[%d] duplicates an earlier key", i)
		}
		seen[k.Key] = true
	}
	return nil
}

// ConfigFile returns the file viper reads from and writes to.
func (c *Config) ConfigFile() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// Save writes the configuration back to its file
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.v.ConfigFileUsed()
	if path == "" {
		path = GetDaemonConfigPath()
		c.v.SetConfigFile(path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	c.v.Set("device.host", c.Device.Host)
	c.v.Set("device.port", c.Device.Port)
	c.v.Set("device.chip_type", c.Device.ChipType)
	c.v.Set("device.connect_timeout", c.Device.ConnectTimeout.String())
	c.v.Set("device.read_timeout", c.Device.ReadTimeout.String())
	c.v.Set("api.listen_address", c.API.ListenAddress)
	c.v.Set("api.rate_limit", c.API.RateLimit)
	c.v.Set("api.api_keys", encodeAPIKeys(c.API.APIKeys))
	c.v.Set("polling.interval", c.Polling.Interval.String())
	c.v.Set("polling.status_ttl", c.Polling.StatusTTL.String())
	c.v.Set("logging.level", c.Logging.Level)
	c.v.Set("logging.format", c.Logging.Format)

	if err := c.v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	slog.Debug("config: saved", "path", path)
	return nil
}

func encodeAPIKeys(keys []APIKey) []map[string]any {
	out := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		m := map[string]any{
			"key":        k.Key,
			"name":       k.Name,
			"created_at": k.CreatedAt.UTC().Format(time.RFC3339),
		}
		if !k.ExpiresAt.IsZero() {
			m["expires_at"] = k.ExpiresAt.UTC().Format(time.RFC3339)
		}
		if k.Disabled {
			m["disabled"] = true
		}
		out = append(out, m)
	}
	return out
}

// Watch re-reads the file whenever it changes and passes the fresh
// configuration to onChange. Only the logging section is safe to apply at
// runtime; callers decide what to act on.
func (c *Config) Watch(onChange func(*Config)) {
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		slog.Info("config: file changed", "path", e.Name, "op", e.Op.String())
		c.mu.Lock()
		c.populate()
		c.mu.Unlock()
		if onChange != nil {
			onChange(c)
		}
	})
	c.v.WatchConfig()
}

// Get retrieves a value from the configuration
func (c *Config) Get(key string) any {
	if c.v == nil {
		return nil
	}
	return c.v.Get(key)
}

// Set sets a value in the configuration
func (c *Config) Set(key string, value any) {
	if c.v == nil {
		return
	}
	c.v.Set(key, value)
}

// Viper exposes the underlying viper instance for flag binding.
func (c *Config) Viper() *viper.Viper {
	return c.v
}

// Reload re-populates the struct from viper, picking up bound flags.
func (c *Config) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.populate()
}
