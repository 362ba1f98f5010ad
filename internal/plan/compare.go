package plan

import (
	"io"
	"sort"

	"github.com/tonimelisma/hdfs-mirror/internal/tree"
)

// Comparison is the two-way difference between snapshots, as reported by
// the diff command. Nothing is classified as an action.
type Comparison struct {
	FilesOnlyInA []string
	FilesOnlyInB []string
	DirsOnlyInA  []string
	DirsOnlyInB  []string
	// Differ holds files present on both sides with a different size or
	// modification time.
	Differ []string
}

// Equal reports whether both sides hold the same entries.
func (c Comparison) Equal() bool {
	return len(c.FilesOnlyInA)+len(c.FilesOnlyInB)+len(c.DirsOnlyInA)+len(c.DirsOnlyInB)+len(c.Differ) == 0
}

// Count is the number of differing entries.
func (c Comparison) Count() int {
	return len(c.FilesOnlyInA) + len(c.FilesOnlyInB) + len(c.DirsOnlyInA) + len(c.DirsOnlyInB) + len(c.Differ)
}

// Compare matches a and b by relative key.
func Compare(a, b *tree.Snapshot) Comparison {
	var c Comparison

	for rel, fa := range a.Files {
		fb, ok := b.Files[rel]

		switch {
		case !ok:
			c.FilesOnlyInA = append(c.FilesOnlyInA, rel)
		case fa.Size != fb.Size || fa.ModTime != fb.ModTime:
			c.Differ = append(c.Differ, rel)
		}
	}

	for rel := range b.Files {
		if _, ok := a.Files[rel]; !ok {
			c.FilesOnlyInB = append(c.FilesOnlyInB, rel)
		}
	}

	for rel := range a.Directories {
		if _, ok := b.Directories[rel]; !ok {
			c.DirsOnlyInA = append(c.DirsOnlyInA, rel)
		}
	}

	for rel := range b.Directories {
		if _, ok := a.Directories[rel]; !ok {
			c.DirsOnlyInB = append(c.DirsOnlyInB, rel)
		}
	}

	sort.Strings(c.FilesOnlyInA)
	sort.Strings(c.FilesOnlyInB)
	sort.Strings(c.DirsOnlyInA)
	sort.Strings(c.DirsOnlyInB)
	sort.Strings(c.Differ)

	return c
}

// WriteComparison prints c with one section per bucket.
func WriteComparison(w io.Writer, c Comparison, labelA, labelB string) error {
	rw := &reportWriter{w: w}

	section := func(entries []string, format string, args ...any) {
		rw.printf(format, append([]any{len(entries)}, args...)...)
		rw.list(entries, nil, nil)
	}

	section(c.DirsOnlyInA, "%d directories only in %s\n", labelA)
	section(c.DirsOnlyInB, "%d directories only in %s\n", labelB)
	section(c.FilesOnlyInA, "%d files only in %s\n", labelA)
	section(c.FilesOnlyInB, "%d files only in %s\n", labelB)
	section(c.Differ, "%d files differ in size or modification time\n")

	return rw.err
}
