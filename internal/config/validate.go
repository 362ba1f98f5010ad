package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tonimelisma/hdfs-mirror/internal/attr"
	"github.com/tonimelisma/hdfs-mirror/internal/tree"
	"github.com/tonimelisma/hdfs-mirror/internal/webhdfs"
)

const minThreads = 1

// build validates the merged values and produces Options. Every problem is
// reported, not only the first.
func build(m *File, cli CLIOverrides) (Options, error) {
	var errs []error

	opts := Options{
		Command:         cli.Command,
		Src:             cli.Src,
		Dest:            cli.Dest,
		CheckMode:       cli.CheckMode,
		Report:          cli.Report || cli.ReportFiles,
		ReportFiles:     cli.ReportFiles,
		Force:           cli.Force,
		ForceExt:        cli.ForceExt,
		Backup:          cli.Backup,
		NbrThreads:      m.NbrThreads,
		Exclude:         m.Exclude,
		HadoopConfDir:   m.HadoopConfDir,
		WebHDFSEndpoint: m.WebHDFSEndpoint,
		Krb5Config:      m.Krb5Config,
		Krb5CCache:      m.Krb5CCache,
		KerberosSPN:     m.KerberosSPN,
		BandwidthLimit:  m.BandwidthLimit,
	}

	errs = append(errs, validatePaths(opts)...)

	switch m.HDFSUser {
	case "":
		errs = append(errs, errors.New("hdfs_user: must not be empty"))
	case webhdfs.KerberosUser:
		opts.Kerberos = true
	default:
		opts.HDFSUser = m.HDFSUser
	}

	if m.NbrThreads < minThreads {
		errs = append(errs, fmt.Errorf("nbr_threads: must be at least %d, got %d", minThreads, m.NbrThreads))
	}

	pol, polErrs := buildPolicy(m, cli)
	opts.Policy = pol
	errs = append(errs, polErrs...)

	if err := tree.ValidatePatterns(m.Exclude); err != nil {
		errs = append(errs, fmt.Errorf("exclude: %w", err))
	}

	if _, err := webhdfs.ParseBandwidth(m.BandwidthLimit); err != nil {
		errs = append(errs, fmt.Errorf("bandwidth_limit: %w", err))
	}

	var err error

	if opts.ConnectTimeout, err = parseDuration(m.ConnectTimeout); err != nil {
		errs = append(errs, fmt.Errorf("connect_timeout: %w", err))
	}

	if opts.DataTimeout, err = parseDuration(m.DataTimeout); err != nil {
		errs = append(errs, fmt.Errorf("data_timeout: %w", err))
	}

	if opts.LogLevel, err = logLevel(m.LogLevel, cli); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return Options{}, err
	}

	return opts, nil
}

func validatePaths(opts Options) []error {
	var errs []error

	srcName, destName := "src", "dest"
	if opts.Command == CommandDiff {
		srcName, destName = "local", "hdfs"
	}

	if opts.Src == "" {
		errs = append(errs, fmt.Errorf("%s: required", srcName))
	}

	if opts.Dest == "" {
		errs = append(errs, fmt.Errorf("%s: required", destName))
	}

	if remote := opts.Remote(); remote != "" && !strings.HasPrefix(remote, "/") {
		errs = append(errs, fmt.Errorf("HDFS path must be absolute, got %q", remote))
	}

	return errs
}

func buildPolicy(m *File, cli CLIOverrides) (attr.Policy, []error) {
	var errs []error

	parse := func(name, s string) attr.Mode {
		mode, err := attr.ParseMode(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}

		return mode
	}

	pol := attr.Policy{
		Owner:         cli.Owner,
		Group:         cli.Group,
		Mode:          parse("mode", cli.Mode),
		DefaultOwner:  cli.DefaultOwner,
		DefaultGroup:  cli.DefaultGroup,
		DefaultMode:   parse("defaultMode", cli.DefaultMode),
		DirectoryMode: parse("directoryMode", m.DirectoryMode),
	}

	if err := pol.Validate(); err != nil {
		errs = append(errs, err)
	}

	return pol, errs
}

// parseDuration accepts Go durations; "0" and "" mean no limit.
func parseDuration(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}

	if d < 0 {
		return 0, fmt.Errorf("must not be negative, got %s", s)
	}

	return d, nil
}

// logLevel starts from the configured level; --debug, --verbose and
// --quiet replace it, in that order of precedence.
func logLevel(configured string, cli CLIOverrides) (slog.Level, error) {
	switch {
	case cli.Debug:
		return slog.LevelDebug, nil
	case cli.Verbose:
		return slog.LevelInfo, nil
	case cli.Quiet:
		return slog.LevelError, nil
	}

	switch strings.ToLower(configured) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("must be one of debug, info, warn, error; got %q", configured)
	}
}
