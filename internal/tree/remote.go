package tree

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/hdfs-mirror/internal/webhdfs"
)

// Lister is the subset of the WebHDFS client the remote walk needs.
type Lister interface {
	GetStatus(ctx context.Context, path string) (webhdfs.Entry, error)
	ListDirectory(ctx context.Context, path string) (webhdfs.Listing, error)
}

// BuildRemote walks the remote directory root depth-first, one listing per
// directory. Denied listings are recorded in Inaccessible; a directory that
// vanishes mid-walk is fatal.
func BuildRemote(ctx context.Context, lister Lister, root string, opts Options) (*Snapshot, error) {
	stripped, slash, _ := NormalizeRoot(root)

	entry, err := lister.GetStatus(ctx, stripped)
	if err != nil {
		return nil, err
	}

	switch entry.Type {
	case webhdfs.TypeNotFound:
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, stripped)
	case webhdfs.TypeNoAccess:
		return nil, fmt.Errorf("%w: %s", ErrRootNoAccess, stripped)
	case webhdfs.TypeFile:
		return nil, fmt.Errorf("%w: %s", ErrRootNotDirectory, stripped)
	}

	s := newSnapshot(stripped, slash)
	s.RootMeta = &DirMeta{Mode: entry.Mode, Owner: entry.Owner, Group: entry.Group}

	w := remoteWalker{lister: lister, opts: opts, logger: opts.logger(), snap: s}
	if err := w.walk(ctx, stripped, ""); err != nil {
		return nil, err
	}

	w.logger.Debug("remote snapshot built",
		slog.String("root", stripped),
		slog.Int("files", len(s.Files)),
		slog.Int("directories", len(s.Directories)),
	)

	return s, nil
}

type remoteWalker struct {
	lister Lister
	opts   Options
	logger *slog.Logger
	snap   *Snapshot
}

// walk lists dir, whose relative path as stored on HDFS is raw.
func (w *remoteWalker) walk(ctx context.Context, dir, raw string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	listing, err := w.lister.ListDirectory(ctx, dir)
	if err != nil {
		return err
	}

	switch listing.Status {
	case webhdfs.ListNoAccess:
		w.logger.Warn("skipping inaccessible path", slog.String("path", dir))
		w.snap.Inaccessible = append(w.snap.Inaccessible, dir)

		return nil
	case webhdfs.ListNotFound:
		return fmt.Errorf("listing %s: %w", dir, webhdfs.ErrNotFound)
	}

	for _, f := range listing.Files {
		childRaw := childKey(raw, f.Name)
		if w.opts.excluded(childRaw) {
			continue
		}

		key := w.snap.key(childRaw)

		w.snap.Files[key] = FileMeta{
			Size:    f.Size,
			ModTime: f.ModTime,
			Mode:    f.Mode,
			Owner:   f.Owner,
			Group:   f.Group,
		}
	}

	for _, d := range listing.Directories {
		childRaw := childKey(raw, d.Name)
		if w.opts.excluded(childRaw) {
			continue
		}

		key := w.snap.key(childRaw)
		w.snap.Directories[key] = DirMeta{Mode: d.Mode, Owner: d.Owner, Group: d.Group}

		if err := w.walk(ctx, Join(dir, d.Name), childRaw); err != nil {
			return err
		}
	}

	return nil
}

// childKey is the relative path of name inside the directory at rel.
func childKey(rel, name string) string {
	if rel == "" {
		return name
	}

	return rel + "/" + name
}
