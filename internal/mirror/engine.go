// Package mirror executes a one-directional mirror between a local
// directory and HDFS: snapshots both sides, plans, reports, then creates
// directories, adjusts attributes and copies files with a worker pool.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/tonimelisma/hdfs-mirror/internal/attr"
	"github.com/tonimelisma/hdfs-mirror/internal/localfs"
	"github.com/tonimelisma/hdfs-mirror/internal/plan"
	"github.com/tonimelisma/hdfs-mirror/internal/tree"
	"github.com/tonimelisma/hdfs-mirror/internal/webhdfs"
)

// Direction selects which side is the source.
type Direction int

// Directions.
const (
	Put Direction = iota // local -> HDFS
	Get                  // HDFS -> local
)

func (d Direction) String() string {
	if d == Get {
		return "get"
	}

	return "put"
}

func (d Direction) labels() (src, dst string) {
	if d == Get {
		return "HDFS", "local"
	}

	return "local", "HDFS"
}

// Sentinel errors for pre-flight validation.
var (
	ErrNotAbsolute  = errors.New("mirror: HDFS path must be absolute")
	ErrMissingPath  = errors.New("mirror: path does not exist")
	ErrNotDirectory = errors.New("mirror: path is not a directory")
	ErrNoAccess     = errors.New("mirror: path is not accessible")
)

// Options is the validated input of a run.
type Options struct {
	Direction   Direction
	Src         string
	Dest        string
	CheckMode   bool
	Report      bool
	ReportFiles bool
	Workers     int
	Force       bool
	ForceExt    bool
	Backup      bool
	Policy      attr.Policy
	Exclude     []string

	// ProgressInterval overrides DefaultProgressInterval.
	ProgressInterval time.Duration
}

// Deps are the collaborators of a run.
type Deps struct {
	Client *webhdfs.Client
	IDs    *localfs.IDCache
	Out    io.Writer
	Logger *slog.Logger
	Now    func() time.Time
}

// Result summarizes a run.
type Result struct {
	Operations int
	Copied     int
	Plan       *plan.Plan
}

// Run mirrors opts.Src onto opts.Dest. In check mode nothing is changed
// and Operations counts what would be done.
func Run(ctx context.Context, opts Options, deps Deps) (Result, error) {
	deps = withDefaults(deps)

	if err := validate(opts); err != nil {
		return Result{}, err
	}

	r := &runner{opts: opts, deps: deps, logger: deps.Logger}

	src, err := r.sourceSnapshot(ctx)
	if err != nil {
		return Result{}, err
	}

	if err := r.checkDestination(ctx, opts.Dest); err != nil {
		return Result{}, err
	}

	dst, err := r.destinationSnapshot(ctx, plan.DestinationRoot(opts.Src, opts.Dest))
	if err != nil {
		return Result{}, err
	}

	p := plan.Build(src, dst, opts.Policy)

	r.logger.Info("plan built",
		slog.String("direction", opts.Direction.String()),
		slog.String("dest_root", p.DestRoot),
		slog.Int("dirs_to_create", len(p.DirsToCreate)),
		slog.Int("dirs_to_adjust", len(p.DirsToAdjust)),
		slog.Int("files_to_create", len(p.FilesToCreate)),
		slog.Int("files_to_replace", len(p.FilesToReplace)),
		slog.Int("files_to_adjust", len(p.FilesToAdjust)),
	)

	if opts.Report || opts.ReportFiles {
		srcLabel, dstLabel := opts.Direction.labels()

		if err := plan.WriteReport(deps.Out, p, src, dst, plan.ReportOptions{
			Files:       opts.ReportFiles,
			Force:       opts.Force,
			ForceExt:    opts.ForceExt,
			SourceLabel: srcLabel,
			TargetLabel: dstLabel,
		}); err != nil {
			return Result{}, fmt.Errorf("writing report: %w", err)
		}
	}

	res := Result{Operations: p.Operations(opts.Force, opts.ForceExt), Plan: p}

	if opts.CheckMode {
		return res, nil
	}

	copied, err := r.execute(ctx, p, src, dst)
	res.Copied = copied

	return res, err
}

func withDefaults(deps Deps) Deps {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	if deps.IDs == nil {
		deps.IDs = localfs.NewIDCache()
	}

	if deps.Out == nil {
		deps.Out = io.Discard
	}

	return deps
}

func validate(opts Options) error {
	if err := opts.Policy.Validate(); err != nil {
		return err
	}

	if opts.Src == "" || opts.Dest == "" {
		return errors.New("mirror: both source and destination are required")
	}

	remote := opts.Dest
	if opts.Direction == Get {
		remote = opts.Src
	}

	if !strings.HasPrefix(remote, "/") {
		return fmt.Errorf("%w: %q", ErrNotAbsolute, remote)
	}

	if err := tree.ValidatePatterns(opts.Exclude); err != nil {
		return err
	}

	return nil
}

type runner struct {
	opts   Options
	deps   Deps
	logger *slog.Logger
}

func (r *runner) treeOptions() tree.Options {
	return tree.Options{Exclude: r.opts.Exclude, IDs: r.deps.IDs, Logger: r.logger}
}

func (r *runner) target() Target {
	if r.opts.Direction == Get {
		return LocalTarget{Client: r.deps.Client, IDs: r.deps.IDs}
	}

	return HDFSTarget{Client: r.deps.Client}
}

func (r *runner) sourceSnapshot(ctx context.Context) (*tree.Snapshot, error) {
	var (
		s   *tree.Snapshot
		err error
	)

	if r.opts.Direction == Get {
		s, err = tree.BuildRemote(ctx, r.deps.Client, r.opts.Src, r.treeOptions())
	} else {
		s, err = tree.BuildLocal(ctx, r.opts.Src, r.treeOptions())
	}

	if err != nil {
		return nil, rootError("source", r.opts.Src, err)
	}

	return s, nil
}

// rootError rewords snapshot root failures for the command line.
func rootError(side, path string, err error) error {
	switch {
	case errors.Is(err, tree.ErrRootNotFound):
		return fmt.Errorf("%w: %s %s", ErrMissingPath, side, path)
	case errors.Is(err, tree.ErrRootNotDirectory):
		return fmt.Errorf("%w: %s %s", ErrNotDirectory, side, path)
	case errors.Is(err, tree.ErrRootNoAccess):
		return fmt.Errorf("%w: %s %s", ErrNoAccess, side, path)
	default:
		return err
	}
}

// stat reports whether a destination path exists and is a directory.
func (r *runner) stat(ctx context.Context, path string) (exists bool, err error) {
	if r.opts.Direction == Put {
		e, err := r.deps.Client.GetStatus(ctx, path)
		if err != nil {
			return false, err
		}

		switch e.Type {
		case webhdfs.TypeNotFound:
			return false, nil
		case webhdfs.TypeNoAccess:
			return false, tree.ErrRootNoAccess
		case webhdfs.TypeFile:
			return true, tree.ErrRootNotDirectory
		}

		return true, nil
	}

	info, err := localfs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, err
	}

	if !info.IsDir {
		return true, tree.ErrRootNotDirectory
	}

	return true, nil
}

// checkDestination requires the destination given on the command line to
// be an existing directory.
func (r *runner) checkDestination(ctx context.Context, dest string) error {
	exists, err := r.stat(ctx, dest)
	if err != nil {
		return rootError("destination", dest, err)
	}

	if !exists {
		return fmt.Errorf("%w: destination %s", ErrMissingPath, dest)
	}

	return nil
}

// destinationSnapshot snapshots the effective destination root, which may
// not exist yet when the source is nested under its own name.
func (r *runner) destinationSnapshot(ctx context.Context, root string) (*tree.Snapshot, error) {
	exists, err := r.stat(ctx, root)
	if err != nil {
		return nil, rootError("destination", root, err)
	}

	if !exists {
		r.logger.Debug("destination root absent", slog.String("path", root))
		return tree.BuildEmpty(root), nil
	}

	var s *tree.Snapshot

	if r.opts.Direction == Put {
		s, err = tree.BuildRemote(ctx, r.deps.Client, root, r.treeOptions())
	} else {
		s, err = tree.BuildLocal(ctx, root, r.treeOptions())
	}

	if err != nil {
		return nil, rootError("destination", root, err)
	}

	return s, nil
}

// execute applies the plan in phase order: directories are created, then
// directories and files adjusted, then files copied.
func (r *runner) execute(ctx context.Context, p *plan.Plan, src, dst *tree.Snapshot) (int, error) {
	t := r.target()
	pol := r.opts.Policy

	for _, dir := range p.DirsToCreate {
		if err := t.Mkdir(ctx, dir, pol.DirectoryMode); err != nil {
			return 0, fmt.Errorf("creating directory %s: %w", dir, err)
		}

		if err := applyAttrs(ctx, t, dir, pol.NewDirectory()); err != nil {
			return 0, fmt.Errorf("setting attributes of %s: %w", dir, err)
		}
	}

	if r.opts.ForceExt {
		if err := r.adjust(ctx, t, p, dst); err != nil {
			return 0, err
		}
	}

	items := p.Transfers(r.opts.Force)
	if len(items) == 0 {
		return 0, nil
	}

	return Transfer(ctx, TransferConfig{
		Workers:  r.opts.Workers,
		Backup:   r.opts.Backup,
		Force:    r.opts.Force,
		Policy:   pol,
		Interval: r.opts.ProgressInterval,
		Out:      r.deps.Out,
		Now:      r.deps.Now,
		Logger:   r.logger,
	}, NewQueue(items), src, dst, t)
}

func (r *runner) adjust(ctx context.Context, t Target, p *plan.Plan, dst *tree.Snapshot) error {
	pol := r.opts.Policy

	for _, rel := range p.DirsToAdjust {
		meta, ok := dst.Directories[rel]
		if rel == plan.RootKey && dst.RootMeta != nil {
			meta, ok = *dst.RootMeta, true
		}

		if !ok {
			continue
		}

		path := dst.Path(rel)
		if err := applyAttrs(ctx, t, path, pol.DirAdjustment(meta.Owner, meta.Group, meta.Mode)); err != nil {
			return fmt.Errorf("adjusting %s: %w", path, err)
		}
	}

	for _, rel := range p.FilesToAdjust {
		meta := dst.Files[rel]

		path := dst.Path(rel)
		if err := applyAttrs(ctx, t, path, pol.FileAdjustment(meta.Owner, meta.Group, meta.Mode)); err != nil {
			return fmt.Errorf("adjusting %s: %w", path, err)
		}
	}

	return nil
}
