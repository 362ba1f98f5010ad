// Package plan compares a source and a destination snapshot and decides
// what a mirror run has to do: directories to create or adjust, files to
// create, replace or adjust.
package plan

import (
	"sort"
	"strings"

	"github.com/tonimelisma/hdfs-mirror/internal/attr"
	"github.com/tonimelisma/hdfs-mirror/internal/tree"
)

// RootKey is the DirsToAdjust entry standing for the destination root.
const RootKey = ""

// Plan is the outcome of Build. Every list is sorted lexicographically,
// so a directory always precedes its subdirectories in DirsToCreate.
type Plan struct {
	// DestRoot is the effective destination root the paths refer to.
	DestRoot string

	DirsToCreate   []string // full destination paths
	DirsToAdjust   []string // relative keys, RootKey for the root itself
	FilesToCreate  []string // relative keys
	FilesToReplace []string
	FilesToAdjust  []string
}

// DestinationRoot returns where the source lands under destRoot. A source
// root given without a trailing separator is nested under its own name;
// "/data/set" into "/out" becomes "/out/set", "/data/set/" stays "/out".
func DestinationRoot(srcRoot, destRoot string) string {
	src, slash, _ := tree.NormalizeRoot(srcRoot)
	dst, _, _ := tree.NormalizeRoot(destRoot)

	if slash || src == "/" {
		return dst
	}

	base := src
	if i := strings.LastIndex(src, "/"); i >= 0 {
		base = src[i+1:]
	}

	return tree.Join(dst, base)
}

// Build classifies every source entry against dst, which must be the
// snapshot of the effective destination root (see DestinationRoot).
// It has no side effects; the same inputs always give the same plan.
func Build(src, dst *tree.Snapshot, pol attr.Policy) *Plan {
	p := &Plan{DestRoot: dst.Root}

	// root step
	switch {
	case dst.Absent:
		p.DirsToCreate = append(p.DirsToCreate, dst.Root)
	case !src.SlashTerminated && dst.RootMeta != nil:
		rm := dst.RootMeta
		if pol.DirDiverges(rm.Owner, rm.Group, rm.Mode) {
			p.DirsToAdjust = append(p.DirsToAdjust, RootKey)
		}
	}

	for rel := range src.Directories {
		if rel == RootKey {
			continue
		}

		existing, ok := dst.Directories[rel]
		if !ok {
			p.DirsToCreate = append(p.DirsToCreate, tree.DestPath(src, dst, rel))
			continue
		}

		if pol.DirDiverges(existing.Owner, existing.Group, existing.Mode) {
			p.DirsToAdjust = append(p.DirsToAdjust, rel)
		}
	}

	for rel, sf := range src.Files {
		df, ok := dst.Files[rel]

		switch {
		case !ok:
			p.FilesToCreate = append(p.FilesToCreate, rel)
		case sf.Size != df.Size || sf.ModTime != df.ModTime:
			p.FilesToReplace = append(p.FilesToReplace, rel)
		case pol.FileDiverges(df.Owner, df.Group, df.Mode):
			p.FilesToAdjust = append(p.FilesToAdjust, rel)
		}
	}

	sort.Strings(p.DirsToCreate)
	sort.Strings(p.DirsToAdjust)
	sort.Strings(p.FilesToCreate)
	sort.Strings(p.FilesToReplace)
	sort.Strings(p.FilesToAdjust)

	return p
}

// Transfers returns the files to copy: every file to create, plus the
// files to replace when force is set.
func (p *Plan) Transfers(force bool) []string {
	out := make([]string, 0, len(p.FilesToCreate)+len(p.FilesToReplace))
	out = append(out, p.FilesToCreate...)

	if force {
		out = append(out, p.FilesToReplace...)
	}

	return out
}

// Operations counts what a run executes (or would execute in check mode)
// under the force and forceExt gates.
func (p *Plan) Operations(force, forceExt bool) int {
	n := len(p.DirsToCreate) + len(p.FilesToCreate)

	if force {
		n += len(p.FilesToReplace)
	}

	if forceExt {
		n += len(p.DirsToAdjust) + len(p.FilesToAdjust)
	}

	return n
}

// Empty reports whether the destination is already in sync.
func (p *Plan) Empty() bool {
	return len(p.DirsToCreate)+len(p.DirsToAdjust)+len(p.FilesToCreate)+
		len(p.FilesToReplace)+len(p.FilesToAdjust) == 0
}
