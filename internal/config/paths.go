package config

import (
	"os"
	"path/filepath"
)

const (
	appName        = "hdfs-mirror"
	configFileName = "config.toml"
)

// DefaultConfigDir returns $XDG_CONFIG_HOME/hdfs-mirror, falling back to
// ~/.config/hdfs-mirror. It is empty when no home directory is known.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", appName)
}

// DefaultConfigPath is used when neither --config nor HDFS_MIRROR_CONFIG
// is given.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}
