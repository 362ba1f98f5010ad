package main

import (
	"github.com/spf13/cobra"

	"github.com/tonimelisma/hdfs-mirror/internal/config"
	"github.com/tonimelisma/hdfs-mirror/internal/localfs"
	"github.com/tonimelisma/hdfs-mirror/internal/mirror"
)

type diffFlags struct {
	local string
	hdfs  string

	connFlags
}

func newDiffCmd() *cobra.Command {
	f := &diffFlags{}

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare a local directory tree with an HDFS one",
		Long: `Compare a local directory tree with an HDFS one and list the entries found
on one side only and the files whose size or modification time differ.
Nothing is modified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiff(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.local, "local", "", "local directory")
	cmd.Flags().StringVar(&f.hdfs, "hdfs", "", "HDFS directory")
	f.register(cmd)

	return cmd
}

func runDiff(cmd *cobra.Command, f *diffFlags) error {
	cli := config.CLIOverrides{Command: config.CommandDiff, Src: f.local, Dest: f.hdfs}
	f.apply(cmd, &cli)

	opts, logger, err := resolveOptions(cmd, cli)
	if err != nil {
		return err
	}

	client, err := connect(cmd.Context(), opts, logger)
	if err != nil {
		return err
	}
	defer closeClient(client, logger)

	ctx, stop := shutdownContext(cmd.Context(), logger, func() { closeClient(client, logger) })
	defer stop()

	c, err := mirror.Diff(ctx, mirror.DiffOptions{
		Local:   opts.Local(),
		HDFS:    opts.Remote(),
		Exclude: opts.Exclude,
	}, mirror.Deps{
		Client: client,
		IDs:    localfs.NewIDCache(),
		Out:    cmd.OutOrStdout(),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	printCount(cmd.OutOrStdout(), "Difference count", c.Count())

	return nil
}
