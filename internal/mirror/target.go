package mirror

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tonimelisma/hdfs-mirror/internal/attr"
	"github.com/tonimelisma/hdfs-mirror/internal/localfs"
	"github.com/tonimelisma/hdfs-mirror/internal/webhdfs"
)

// Target is the destination side of a run. Paths are full destination
// paths; Transfer reads srcPath from the source side.
type Target interface {
	Mkdir(ctx context.Context, path string, mode attr.Mode) error
	Chown(ctx context.Context, path, owner, group string) error
	Chmod(ctx context.Context, path string, mode attr.Mode) error
	Rename(ctx context.Context, from, to string) error
	SetModTime(ctx context.Context, path string, mtime int64) error
	Transfer(ctx context.Context, srcPath, dstPath string, overwrite bool) error
}

// applyAttrs changes owner/group and mode as far as a is set.
func applyAttrs(ctx context.Context, t Target, path string, a attr.Attrs) error {
	if a.Owner != "" || a.Group != "" {
		if err := t.Chown(ctx, path, a.Owner, a.Group); err != nil {
			return err
		}
	}

	if a.Mode.IsSet() {
		if err := t.Chmod(ctx, path, a.Mode); err != nil {
			return err
		}
	}

	return nil
}

// HDFSTarget writes to HDFS: files are uploaded from the local source.
type HDFSTarget struct {
	Client *webhdfs.Client
}

// Mkdir creates path; a zero mode leaves the server default.
func (h HDFSTarget) Mkdir(ctx context.Context, path string, mode attr.Mode) error {
	return h.Client.Mkdirs(ctx, path, mode)
}

// Chown sets the owner and the group with one call each.
func (h HDFSTarget) Chown(ctx context.Context, path, owner, group string) error {
	if owner != "" {
		if err := h.Client.SetOwner(ctx, path, owner); err != nil {
			return err
		}
	}

	if group != "" {
		return h.Client.SetGroup(ctx, path, group)
	}

	return nil
}

func (h HDFSTarget) Chmod(ctx context.Context, path string, mode attr.Mode) error {
	return h.Client.SetPermission(ctx, path, mode)
}

func (h HDFSTarget) Rename(ctx context.Context, from, to string) error {
	return h.Client.Rename(ctx, from, to)
}

func (h HDFSTarget) SetModTime(ctx context.Context, path string, mtime int64) error {
	return h.Client.SetModTime(ctx, path, mtime)
}

// Transfer uploads the local file srcPath to dstPath.
func (h HDFSTarget) Transfer(ctx context.Context, srcPath, dstPath string, overwrite bool) error {
	return h.Client.Upload(ctx, srcPath, dstPath, overwrite)
}

// LocalTarget writes to the local filesystem: files are downloaded from
// HDFS. Owner and group names are resolved through IDs.
type LocalTarget struct {
	Client *webhdfs.Client
	IDs    *localfs.IDCache
}

const defaultDirPerm = 0o755

// Mkdir creates a single directory. The mode is applied explicitly so the
// process umask does not alter it.
func (l LocalTarget) Mkdir(_ context.Context, path string, mode attr.Mode) error {
	if err := os.Mkdir(path, defaultDirPerm); err != nil {
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("creating directory: %w", err)
		}
	}

	if mode.IsSet() {
		return localfs.Chmod(path, mode)
	}

	return nil
}

func (l LocalTarget) Chown(_ context.Context, path, owner, group string) error {
	return l.IDs.ChownNames(path, owner, group)
}

func (l LocalTarget) Chmod(_ context.Context, path string, mode attr.Mode) error {
	return localfs.Chmod(path, mode)
}

func (l LocalTarget) Rename(_ context.Context, from, to string) error {
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("renaming: %w", err)
	}

	return nil
}

func (l LocalTarget) SetModTime(_ context.Context, path string, mtime int64) error {
	return localfs.SetModTime(path, mtime)
}

// Transfer downloads the HDFS file srcPath to dstPath.
func (l LocalTarget) Transfer(ctx context.Context, srcPath, dstPath string, overwrite bool) error {
	_, err := l.Client.Download(ctx, srcPath, dstPath, overwrite)
	return err
}
