package config

import "time"

// Common constants shared between daemon and client
const (
	// ConfigDirName is the name of the config directory within XDG_CONFIG_HOME
	ConfigDirName = "sp108e"

	// DaemonConfigFilename is the base filename for daemon config
	DaemonConfigFilename = "sp108ed.yaml"

	// ClientConfigFilename is the base filename for client config
	ClientConfigFilename = "sp108ectl.yaml"

	// EnvPrefix is prepended to every environment override, e.g. SP108E_DEVICE_HOST
	EnvPrefix = "SP108E"

	// SystemConfigDir is used as-is when XDG_CONFIG_HOME points at it (systemd unit)
	SystemConfigDir = "/etc/sp108ed"

	// DefaultAPIListenAddress is the default HTTP API listen address
	DefaultAPIListenAddress = "127.0.0.1:9189"

	// DefaultRateLimit is the default number of API requests per minute per client IP
	DefaultRateLimit = 120

	// DefaultKeyLength is the default length for generated API keys
	DefaultKeyLength = 32

	// DefaultKeyCharset is the characters used for API key generation
	DefaultKeyCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Device defaults
const (
	// DefaultDevicePort is the controller's TCP port
	DefaultDevicePort = 8189

	// DefaultConnectTimeout bounds a single dial to the controller
	DefaultConnectTimeout = 5 * time.Second

	// DefaultReadTimeout bounds a single response read
	DefaultReadTimeout = 5 * time.Second
)

// Default timeouts and intervals
const (
	// DefaultPollInterval is how often the daemon refreshes the strip status
	DefaultPollInterval = 10 * time.Second

	// DefaultStatusTTL is how long a cached status is served before refetching
	DefaultStatusTTL = 2 * time.Second

	// MinPollInterval is the minimum allowed poll interval
	MinPollInterval = time.Second
)

// Strip constraints
const (
	// MinPercentage is the lower bound for brightness and speed percentages
	MinPercentage = 0

	// MaxPercentage is the upper bound for brightness and speed percentages
	MaxPercentage = 100

	// MaxHue is the upper bound for hue in degrees
	MaxHue = 360
)

// Logging constants
const (
	// LogLevelDebug represents debug log level
	LogLevelDebug = "debug"

	// LogLevelInfo represents info log level
	LogLevelInfo = "info"

	// LogLevelWarn represents warning log level
	LogLevelWarn = "warn"

	// LogLevelError represents error log level
	LogLevelError = "error"

	// LogFormatText represents text log format
	LogFormatText = "text"

	// LogFormatJSON represents JSON log format
	LogFormatJSON = "json"
)
