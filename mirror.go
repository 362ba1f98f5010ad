package main

import (
	"github.com/spf13/cobra"

	"github.com/tonimelisma/hdfs-mirror/internal/config"
	"github.com/tonimelisma/hdfs-mirror/internal/localfs"
	"github.com/tonimelisma/hdfs-mirror/internal/mirror"
)

// mirrorFlags are the flags shared by put and get.
type mirrorFlags struct {
	src         string
	dest        string
	checkMode   bool
	report      bool
	reportFiles bool
	nbrThreads  int
	force       bool
	forceExt    bool
	backup      bool

	owner         string
	group         string
	mode          string
	defaultOwner  string
	defaultGroup  string
	defaultMode   string
	directoryMode string

	connFlags
}

// connFlags select and authenticate the namenode. diff uses them too.
type connFlags struct {
	hdfsUser        string
	hadoopConfDir   string
	webhdfsEndpoint string
	bandwidthLimit  string
	exclude         []string
}

func (f *connFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.hdfsUser, "hdfsUser", "", `HDFS user name, or "KERBEROS" for Kerberos authentication (default "hdfs")`)
	fl.StringVar(&f.hadoopConfDir, "hadoopConfDir", "", `directory holding hdfs-site.xml (default "/etc/hadoop/conf")`)
	fl.StringVar(&f.webhdfsEndpoint, "webhdfsEndpoint", "", "comma-separated namenode host:port list, tried in order")
	fl.StringVar(&f.bandwidthLimit, "bandwidthLimit", "", `transfer rate limit, e.g. "10MB/s" (default unlimited)`)
	fl.StringArrayVar(&f.exclude, "exclude", nil, "glob pattern of relative paths to skip (repeatable)")
}

// apply copies the connection flags the user actually gave into cli.
func (f *connFlags) apply(cmd *cobra.Command, cli *config.CLIOverrides) {
	fl := cmd.Flags()

	if fl.Changed("hdfsUser") {
		cli.HDFSUser = &f.hdfsUser
	}

	if fl.Changed("hadoopConfDir") {
		cli.HadoopConfDir = &f.hadoopConfDir
	}

	if fl.Changed("webhdfsEndpoint") {
		cli.WebHDFSEndpoint = &f.webhdfsEndpoint
	}

	if fl.Changed("bandwidthLimit") {
		cli.BandwidthLimit = &f.bandwidthLimit
	}

	cli.Exclude = f.exclude
}

func newPutCmd() *cobra.Command {
	return newMirrorCmd(config.CommandPut, "put", "Copy a local directory tree to HDFS",
		"local source directory", "existing HDFS destination directory")
}

func newGetCmd() *cobra.Command {
	return newMirrorCmd(config.CommandGet, "get", "Copy an HDFS directory tree to the local filesystem",
		"HDFS source directory", "existing local destination directory")
}

func newMirrorCmd(command config.Command, use, short, srcHelp, destHelp string) *cobra.Command {
	f := &mirrorFlags{}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

A source given without a trailing slash is created under the destination
under its own name; with a trailing slash its content goes directly into
the destination. Existing files that differ in size or modification time
are only reported unless --force is given.

The closing operation count covers only what the flags allow to run.
Replaced files are counted only with --force.
Attribute fixes are counted only with --forceExt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMirror(cmd, command, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.src, "src", "", srcHelp)
	fl.StringVar(&f.dest, "dest", "", destHelp)
	fl.BoolVar(&f.checkMode, "checkMode", false, "only report what would be done")
	fl.BoolVar(&f.report, "report", false, "print a summary of the differences")
	fl.BoolVar(&f.reportFiles, "reportFiles", false, "like --report, listing every path")
	fl.IntVar(&f.nbrThreads, "nbrThreads", 1, "number of parallel transfers")
	fl.BoolVar(&f.force, "force", false, "replace files that differ from the source")
	fl.BoolVar(&f.forceExt, "forceExt", false, "fix owner, group and mode of existing entries")
	fl.BoolVar(&f.backup, "backup", false, "with --force, keep the replaced file as <name>.<timestamp>~")
	fl.StringVar(&f.owner, "owner", "", "owner of every file and directory")
	fl.StringVar(&f.group, "group", "", "group of every file and directory")
	fl.StringVar(&f.mode, "mode", "", "permission of every file (octal)")
	fl.StringVar(&f.defaultOwner, "defaultOwner", "", "owner of created files and directories")
	fl.StringVar(&f.defaultGroup, "defaultGroup", "", "group of created files and directories")
	fl.StringVar(&f.defaultMode, "defaultMode", "", "permission of created files (octal)")
	fl.StringVar(&f.directoryMode, "directoryMode", "", "permission of directories (octal)")
	f.register(cmd)

	return cmd
}

func (f *mirrorFlags) overrides(cmd *cobra.Command, command config.Command) config.CLIOverrides {
	cli := config.CLIOverrides{
		Command:      command,
		Src:          f.src,
		Dest:         f.dest,
		CheckMode:    f.checkMode,
		Report:       f.report,
		ReportFiles:  f.reportFiles,
		Force:        f.force,
		ForceExt:     f.forceExt,
		Backup:       f.backup,
		Owner:        f.owner,
		Group:        f.group,
		Mode:         f.mode,
		DefaultOwner: f.defaultOwner,
		DefaultGroup: f.defaultGroup,
		DefaultMode:  f.defaultMode,
	}

	if cmd.Flags().Changed("nbrThreads") {
		cli.NbrThreads = &f.nbrThreads
	}

	if cmd.Flags().Changed("directoryMode") {
		cli.DirectoryMode = &f.directoryMode
	}

	f.apply(cmd, &cli)

	return cli
}

func runMirror(cmd *cobra.Command, command config.Command, f *mirrorFlags) error {
	opts, logger, err := resolveOptions(cmd, f.overrides(cmd, command))
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

	direction := mirror.Put
	if command == config.CommandGet {
		direction = mirror.Get
	}

	res, err := mirror.Run(ctx, mirror.Options{
		Direction:   direction,
		Src:         opts.Src,
		Dest:        opts.Dest,
		CheckMode:   opts.CheckMode,
		Report:      opts.Report,
		ReportFiles: opts.ReportFiles,
		Workers:     opts.NbrThreads,
		Force:       opts.Force,
		ForceExt:    opts.ForceExt,
		Backup:      opts.Backup,
		Policy:      opts.Policy,
		Exclude:     opts.Exclude,
	}, mirror.Deps{
		Client: client,
		IDs:    localfs.NewIDCache(),
		Out:    cmd.OutOrStdout(),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	printCount(cmd.OutOrStdout(), "Operation count", res.Operations)

	return nil
}
