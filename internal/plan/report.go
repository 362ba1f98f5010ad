package plan

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/tonimelisma/hdfs-mirror/internal/tree"
)

// ReportOptions controls WriteReport.
type ReportOptions struct {
	Files       bool // list every file, not only counts
	Force       bool
	ForceExt    bool
	SourceLabel string // "local" or "HDFS"
	TargetLabel string
}

// WriteReport prints what the plan found. The wording tells whether a
// bucket will be applied or only reported under the current gates.
// Directories to create are always listed; file buckets only with Files.
func WriteReport(w io.Writer, p *Plan, src, dst *tree.Snapshot, opts ReportOptions) error {
	rw := &reportWriter{w: w}
	target := opts.TargetLabel + " target"

	rw.printf("%d files in %d directories present in %s source\n",
		len(src.Files), len(src.Directories), opts.SourceLabel)
	rw.printf("%d files in %d directories already present in %s\n",
		len(dst.Files), len(dst.Directories), target)

	rw.printf("%d directories to be created on %s\n", len(p.DirsToCreate), target)
	rw.list(p.DirsToCreate, nil, nil)

	if opts.ForceExt {
		rw.printf("%d directories will be adjusted on %s\n", len(p.DirsToAdjust), target)
	} else {
		rw.printf("%d directories need chown or chmod on %s (use --forceExt)\n", len(p.DirsToAdjust), target)
	}

	if opts.Files {
		rw.list(p.DirsToAdjust, src, dst)
	}

	rw.printf("%d files to be created on %s (%s)\n",
		len(p.FilesToCreate), target, humanize.Bytes(totalSize(src, p.FilesToCreate)))

	if opts.Files {
		rw.list(p.FilesToCreate, src, dst)
	}

	if opts.Force {
		rw.printf("%d files to be replaced on %s (%s)\n",
			len(p.FilesToReplace), target, humanize.Bytes(totalSize(src, p.FilesToReplace)))
	} else {
		rw.printf("%d files differs from source in %s (use --force [--backup] to overwrite)\n",
			len(p.FilesToReplace), target)
	}

	if opts.Files {
		rw.list(p.FilesToReplace, src, dst)
	}

	if opts.ForceExt {
		rw.printf("%d files will be adjusted on %s\n", len(p.FilesToAdjust), target)
	} else {
		rw.printf("%d files will need chown or chmod on %s (use --forceExt)\n", len(p.FilesToAdjust), target)
	}

	if opts.Files {
		rw.list(p.FilesToAdjust, src, dst)
	}

	if n := len(src.Inaccessible); n > 0 {
		rw.printf("%d paths inaccessible in %s source\n", n, opts.SourceLabel)
		rw.list(src.Inaccessible, nil, nil)
	}

	if n := len(dst.Inaccessible); n > 0 {
		rw.printf("%d paths inaccessible in %s\n", n, target)
		rw.list(dst.Inaccessible, nil, nil)
	}

	return rw.err
}

func totalSize(s *tree.Snapshot, keys []string) uint64 {
	var n uint64
	for _, k := range keys {
		n += s.Files[k].Size
	}

	return n
}

// reportWriter keeps the first write error so the report reads linearly.
type reportWriter struct {
	w   io.Writer
	err error
}

func (rw *reportWriter) printf(format string, args ...any) {
	if rw.err != nil {
		return
	}

	_, rw.err = fmt.Fprintf(rw.w, format, args...)
}

// list prints one tab-indented line per entry. With dst set, entries are
// relative keys and are printed as full destination paths.
func (rw *reportWriter) list(entries []string, src, dst *tree.Snapshot) {
	for _, e := range entries {
		if dst != nil {
			e = tree.DestPath(src, dst, e)
		}

		rw.printf("\t%s\n", e)
	}
}
