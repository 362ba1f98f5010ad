// Package tree builds normalized snapshots of a directory subtree, either
// from the local filesystem or from a WebHDFS listing, so both sides of a
// mirror can be compared key by key.
package tree

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/hdfs-mirror/internal/attr"
	"github.com/tonimelisma/hdfs-mirror/internal/localfs"
)

// Sentinel errors for root lookups. Use errors.Is to check.
var (
	ErrRootNotFound     = errors.New("tree: root does not exist")
	ErrRootNotDirectory = errors.New("tree: root is not a directory")
	ErrRootNoAccess     = errors.New("tree: root is not accessible")
	ErrInvalidPattern   = errors.New("tree: invalid exclude pattern")
)

// FileMeta describes one file. ModTime is in whole seconds.
type FileMeta struct {
	Size    uint64
	ModTime int64
	Mode    attr.Mode
	Owner   string
	Group   string
}

// DirMeta describes one directory.
type DirMeta struct {
	Mode  attr.Mode
	Owner string
	Group string
}

// Snapshot is the normalized content of a subtree. Keys of Files and
// Directories are relative to Root, use "/" and never start with it.
// Every file's parent key is "" or present in Directories.
type Snapshot struct {
	Root            string // trailing separator stripped
	SlashTerminated bool
	Files           map[string]FileMeta
	Directories     map[string]DirMeta
	Inaccessible    []string

	// RootMeta is the root directory's own metadata; nil when Absent.
	RootMeta *DirMeta
	// Absent marks a root that does not exist yet.
	Absent bool

	// names maps normalized keys back to on-disk names where they differ.
	names map[string]string
}

func newSnapshot(stripped string, slashTerminated bool) *Snapshot {
	return &Snapshot{
		Root:            stripped,
		SlashTerminated: slashTerminated,
		Files:           make(map[string]FileMeta),
		Directories:     make(map[string]DirMeta),
	}
}

// BuildEmpty returns the snapshot of a root that does not exist yet.
func BuildEmpty(root string) *Snapshot {
	stripped, slash, _ := NormalizeRoot(root)

	s := newSnapshot(stripped, slash)
	s.Absent = true

	return s
}

// NormalizeRoot strips a trailing separator from root. It reports whether
// one was present and the prefix length that turns a walked path into a
// relative key. "/" is not slash-terminated and has prefix length 0.
func NormalizeRoot(root string) (stripped string, slashTerminated bool, prefixLen int) {
	if root == "/" {
		return root, false, 0
	}

	if len(root) > 1 && strings.HasSuffix(root, "/") {
		stripped = strings.TrimRight(root, "/")
		if stripped == "" {
			return "/", false, 0
		}

		return stripped, true, len(stripped) + 1
	}

	return root, false, len(root) + 1
}

// relKey turns a path found under root into its relative key.
func relKey(p string, prefixLen int) string {
	if len(p) <= prefixLen {
		return ""
	}

	return strings.TrimPrefix(p[prefixLen:], "/")
}

// Join appends a relative key to a root without doubling or dropping
// separators.
func Join(root, rel string) string {
	switch {
	case rel == "":
		return root
	case root == "" || root == "/":
		return "/" + rel
	default:
		return root + "/" + rel
	}
}

// Path returns the full path of a relative key, spelled the way it is
// stored on its side.
func (s *Snapshot) Path(rel string) string {
	return Join(s.Root, s.name(rel))
}

// name is the stored spelling of a relative key.
func (s *Snapshot) name(rel string) string {
	if name, ok := s.names[rel]; ok {
		return name
	}

	return rel
}

// key normalizes a stored relative path to NFC and remembers the stored
// spelling when it differs.
func (s *Snapshot) key(raw string) string {
	k := norm.NFC.String(raw)
	if k != raw {
		if s.names == nil {
			s.names = make(map[string]string)
		}

		s.names[k] = raw
	}

	return k
}

// DestPath returns where the source key rel lives, or will be created,
// under dst. Entries already in dst keep their stored spelling. For a new
// entry the deepest existing destination ancestor keeps its spelling and
// the remaining elements are spelled as in src.
func DestPath(src, dst *Snapshot, rel string) string {
	if rel == "" {
		return dst.Root
	}

	if _, ok := dst.Files[rel]; ok {
		return dst.Path(rel)
	}

	if _, ok := dst.Directories[rel]; ok {
		return dst.Path(rel)
	}

	// NFC never composes across "/", so both spellings split alike.
	keyParts := strings.Split(rel, "/")
	srcParts := strings.Split(src.name(rel), "/")

	for i := len(keyParts) - 1; i > 0; i-- {
		parent := strings.Join(keyParts[:i], "/")
		if _, ok := dst.Directories[parent]; ok {
			return Join(dst.Path(parent), strings.Join(srcParts[i:], "/"))
		}
	}

	return Join(dst.Root, src.name(rel))
}

// Base returns the last element of the root, the name nested under the
// peer root when the snapshot is not slash-terminated.
func (s *Snapshot) Base() string {
	if s.Root == "/" {
		return ""
	}

	return path.Base(s.Root)
}

// SortedFiles returns the file keys in lexicographic order.
func (s *Snapshot) SortedFiles() []string {
	return sortedKeys(s.Files)
}

// SortedDirectories returns the directory keys in lexicographic order.
func (s *Snapshot) SortedDirectories() []string {
	return sortedKeys(s.Directories)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Options control how a snapshot is built.
type Options struct {
	// Exclude holds doublestar patterns matched against relative keys
	// in NFC form.
	// An excluded directory is skipped with its whole subtree.
	Exclude []string
	// IDs resolves local owner and group names. Nil uses a fresh cache.
	IDs    *localfs.IDCache
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}

	return o.Logger
}

// ValidatePatterns checks exclude patterns before any walk starts.
func ValidatePatterns(patterns []string) error {
	var errs []error

	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidPattern, p))
		}
	}

	return errors.Join(errs...)
}

// excluded matches the NFC form of rel, the same on both sides.
func (o Options) excluded(rel string) bool {
	if len(o.Exclude) == 0 {
		return false
	}

	rel = norm.NFC.String(rel)

	for _, p := range o.Exclude {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}

	return false
}
