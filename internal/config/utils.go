package config

import (
	"os"
	"path/filepath"
	"time"
)

// GetConfigBaseDir returns the base directory for configuration files
func GetConfigBaseDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		// systemd units point XDG_CONFIG_HOME at /etc/sp108ed directly
		if dir == SystemConfigDir {
			return dir
		}
		return filepath.Join(dir, ConfigDirName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", ConfigDirName)
}

// GetConfigPath returns the full path to a configuration file
func GetConfigPath(filename string) string {
	return filepath.Join(GetConfigBaseDir(), filename)
}

// GetDaemonConfigPath returns the full path to the daemon configuration file
func GetDaemonConfigPath() string {
	return GetConfigPath(DaemonConfigFilename)
}

// GetClientConfigPath returns the full path to the client configuration file
func GetClientConfigPath() string {
	return GetConfigPath(ClientConfigFilename)
}

// ValidatePollInterval clamps the poll interval to the minimum allowed value.
// Zero disables polling and is returned unchanged.
func ValidatePollInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	if d < MinPollInterval {
		return MinPollInterval
	}
	return d
}
