package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses the TOML file at path. Unknown keys are fatal.
func Load(path string) (*File, error) {
	f := DefaultFile()

	md, err := toml.DecodeFile(path, f)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	return f, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*File, error) {
	if path == "" {
		return DefaultFile(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultFile(), nil
	}

	return Load(path)
}

// ConfigPath picks the config file: --config, then HDFS_MIRROR_CONFIG,
// then the XDG default.
func ConfigPath(env EnvOverrides, cli CLIOverrides) string {
	switch {
	case cli.ConfigPath != "":
		return cli.ConfigPath
	case env.ConfigPath != "":
		return env.ConfigPath
	default:
		return DefaultConfigPath()
	}
}

// Resolve loads the config file and merges it with the environment and the
// flags. The result is validated.
func Resolve(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) (Options, error) {
	if logger == nil {
		logger = slog.Default()
	}

	path := ConfigPath(env, cli)

	f, err := LoadOrDefault(path)
	if err != nil {
		return Options{}, err
	}

	logger.Debug("config loaded", slog.String("path", path))

	opts, err := Merge(f, env, cli)
	if err != nil {
		return Options{}, err
	}

	opts.ConfigPath = path

	return opts, nil
}

// Merge applies the environment and the flags on top of f, in that order,
// and validates the result. f is not modified.
func Merge(f *File, env EnvOverrides, cli CLIOverrides) (Options, error) {
	m := *f
	m.Exclude = append([]string(nil), f.Exclude...)

	// environment
	override(&m.HadoopConfDir, env.HadoopConfDir)
	override(&m.HDFSUser, env.HDFSUser)
	override(&m.WebHDFSEndpoint, env.WebHDFSEndpoint)
	override(&m.Krb5Config, env.Krb5Config)
	override(&m.Krb5CCache, env.Krb5CCache)

	// flags
	overridePtr(&m.HDFSUser, cli.HDFSUser)
	overridePtr(&m.HadoopConfDir, cli.HadoopConfDir)
	overridePtr(&m.WebHDFSEndpoint, cli.WebHDFSEndpoint)
	overridePtr(&m.DirectoryMode, cli.DirectoryMode)
	overridePtr(&m.BandwidthLimit, cli.BandwidthLimit)

	if cli.NbrThreads != nil {
		m.NbrThreads = *cli.NbrThreads
	}

	// flag patterns add to the file's
	m.Exclude = append(m.Exclude, cli.Exclude...)

	return build(&m, cli)
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overridePtr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
