package tree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/tonimelisma/hdfs-mirror/internal/localfs"
)

// BuildLocal walks the local directory root. Owner and group ids are
// resolved to names through opts.IDs. Directories that cannot be read are
// recorded in Inaccessible and the walk continues. Symbolic links to files
// are followed; symbolic links to directories are skipped.
func BuildLocal(ctx context.Context, root string, opts Options) (*Snapshot, error) {
	stripped, slash, prefixLen := NormalizeRoot(root)
	logger := opts.logger()

	ids := opts.IDs
	if ids == nil {
		ids = localfs.NewIDCache()
	}

	rootInfo, err := localfs.Stat(stripped)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, stripped)
		}

		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrRootNoAccess, stripped)
		}

		return nil, err
	}

	if !rootInfo.IsDir {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDirectory, stripped)
	}

	s := newSnapshot(stripped, slash)
	s.RootMeta = &DirMeta{
		Mode:  rootInfo.Mode,
		Owner: ids.UserName(rootInfo.UID),
		Group: ids.GroupName(rootInfo.GID),
	}

	// WalkDir does not descend into a root that is itself a symlink.
	walkRoot := stripped
	if resolved, evalErr := filepath.EvalSymlinks(stripped); evalErr == nil && resolved != stripped {
		walkRoot = resolved
		_, _, prefixLen = NormalizeRoot(resolved)
	}

	walkErr := filepath.WalkDir(walkRoot, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if p == walkRoot && d == nil {
				return err
			}

			if errors.Is(err, fs.ErrPermission) {
				logger.Warn("skipping inaccessible path", slog.String("path", p))
				s.Inaccessible = append(s.Inaccessible, p)

				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}

				return nil
			}

			return err
		}

		if p == walkRoot {
			return nil
		}

		rel := relKey(filepath.ToSlash(p), prefixLen)

		if opts.excluded(rel) {
			logger.Debug("excluded", slog.String("path", rel))

			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		return s.addLocal(p, rel, d, ids, logger)
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking %s: %w", stripped, walkErr)
	}

	logger.Debug("local snapshot built",
		slog.String("root", stripped),
		slog.Int("files", len(s.Files)),
		slog.Int("directories", len(s.Directories)),
	)

	return s, nil
}

func (s *Snapshot) addLocal(p, rel string, d fs.DirEntry, ids *localfs.IDCache, logger *slog.Logger) error {
	info, err := localfs.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// dangling symlink, or removed during the walk
			logger.Warn("skipping vanished path", slog.String("path", p))
			return nil
		}

		if errors.Is(err, fs.ErrPermission) {
			s.Inaccessible = append(s.Inaccessible, p)
			return nil
		}

		return err
	}

	isLink := d.Type()&fs.ModeSymlink != 0

	switch {
	case info.IsDir && isLink:
		logger.Warn("skipping symlinked directory", slog.String("path", p))
		return nil
	case !info.IsDir && !info.IsRegular:
		logger.Debug("skipping special file", slog.String("path", p))
		return nil
	}

	key := s.key(rel)

	if info.IsDir {
		s.Directories[key] = DirMeta{
			Mode:  info.Mode,
			Owner: ids.UserName(info.UID),
			Group: ids.GroupName(info.GID),
		}

		return nil
	}

	s.Files[key] = FileMeta{
		Size:    info.Size,
		ModTime: info.ModTime,
		Mode:    info.Mode,
		Owner:   ids.UserName(info.UID),
		Group:   ids.GroupName(info.GID),
	}

	return nil
}
