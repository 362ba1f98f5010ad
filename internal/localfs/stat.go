// Package localfs reads and changes the POSIX metadata of local files:
// size, modification time, permission bits and ownership by name.
package localfs

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/tonimelisma/hdfs-mirror/internal/attr"
)

// Info is the metadata of one local path. Symbolic links are followed.
type Info struct {
	IsDir     bool
	IsRegular bool
	Size      uint64
	ModTime   int64 // Unix seconds, truncated
	Mode      attr.Mode
	UID       uint32
	GID       uint32
}

// Stat returns the metadata of path, following symbolic links.
func Stat(path string) (Info, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return Info{}, fmt.Errorf("stat %s: %w", path, err)
	}

	typ := st.Mode & unix.S_IFMT

	return Info{
		IsDir:     typ == unix.S_IFDIR,
		IsRegular: typ == unix.S_IFREG,
		Size:      uint64(st.Size),    //nolint:gosec // kernel guarantees non-negative sizes
		ModTime:   int64(st.Mtim.Sec), //nolint:unconvert // int32 on 32-bit platforms
		Mode:      attr.Mode(st.Mode & 0o7777),
		UID:       st.Uid,
		GID:       st.Gid,
	}, nil
}

// Chmod sets the permission bits of path.
func Chmod(path string, mode attr.Mode) error {
	if err := unix.Chmod(path, uint32(mode)); err != nil {
		return fmt.Errorf("chmod %s %s: %w", mode, path, err)
	}

	return nil
}

// Chown changes the owner and group of path by numeric id. -1 keeps the
// current value.
func Chown(path string, uid, gid int) error {
	if err := unix.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("chown %s: %w", path, err)
	}

	return nil
}

// SetModTime sets the modification time of path to mtime (Unix seconds)
// and leaves the access time alone.
func SetModTime(path string, mtime int64) error {
	ts := []unix.Timespec{
		{Sec: 0, Nsec: unix.UTIME_OMIT},
		unix.NsecToTimespec(time.Unix(mtime, 0).UnixNano()),
	}

	if err := unix.UtimesNano(path, ts); err != nil {
		return fmt.Errorf("setting mtime of %s: %w", path, err)
	}

	return nil
}
