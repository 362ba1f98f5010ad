package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/hdfs-mirror/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

// newRootCmd builds the root command with every subcommand registered.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hdfs-mirror",
		Short: "Mirror directory trees between a local filesystem and HDFS",
		Long: `hdfs-mirror copies a directory tree one way between the local filesystem
and HDFS over WebHDFS. Only missing files are copied unless --force is given;
owner, group and permissions can be enforced with --forceExt.`,
		Version: version,
		// errors are printed by main
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log progress information")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "log every request")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "log errors only")

	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newDiffCmd())

	return cmd
}

// bootstrapLogger is used until the config file has been read. Only the
// flags decide its level.
func bootstrapLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn

	switch {
	case flagDebug:
		level = slog.LevelDebug
	case flagVerbose:
		level = slog.LevelInfo
	case flagQuiet:
		level = slog.LevelError
	}

	return buildLogger(w, level)
}

// buildLogger returns a text logger writing to w at level.
func buildLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// resolveOptions runs the config chain for one command. The persistent
// flags are copied into cli here so subcommands need not know them.
func resolveOptions(cmd *cobra.Command, cli config.CLIOverrides) (config.Options, *slog.Logger, error) {
	cli.ConfigPath = flagConfigPath
	cli.Verbose = flagVerbose
	cli.Debug = flagDebug
	cli.Quiet = flagQuiet

	boot := bootstrapLogger(cmd.ErrOrStderr())

	opts, err := config.Resolve(config.ReadEnvOverrides(boot), cli, boot)
	if err != nil {
		return config.Options{}, nil, err
	}

	return opts, buildLogger(cmd.ErrOrStderr(), opts.LogLevel), nil
}

// exitOnError prints the error the way every command reports failures and
// exits with status 1.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
