package mirror

import (
	"context"
	"fmt"
	"strings"

	"github.com/tonimelisma/hdfs-mirror/internal/plan"
	"github.com/tonimelisma/hdfs-mirror/internal/tree"
)

// DiffOptions names the two roots compared by Diff. Both are compared as
// given; no nesting under the source name happens.
type DiffOptions struct {
	Local   string
	HDFS    string
	Exclude []string
}

// Diff snapshots both roots, prints the two-way comparison to deps.Out and
// returns it. Nothing is modified.
func Diff(ctx context.Context, opts DiffOptions, deps Deps) (plan.Comparison, error) {
	if !strings.HasPrefix(opts.HDFS, "/") {
		return plan.Comparison{}, fmt.Errorf("%w: %q", ErrNotAbsolute, opts.HDFS)
	}

	if err := tree.ValidatePatterns(opts.Exclude); err != nil {
		return plan.Comparison{}, err
	}

	r := &runner{opts: Options{Exclude: opts.Exclude}, deps: withDefaults(deps)}
	r.logger = r.deps.Logger

	local, err := tree.BuildLocal(ctx, opts.Local, r.treeOptions())
	if err != nil {
		return plan.Comparison{}, rootError("local", opts.Local, err)
	}

	remote, err := tree.BuildRemote(ctx, r.deps.Client, opts.HDFS, r.treeOptions())
	if err != nil {
		return plan.Comparison{}, rootError("HDFS", opts.HDFS, err)
	}

	c := plan.Compare(local, remote)

	if err := plan.WriteComparison(r.deps.Out, c, "local", "HDFS"); err != nil {
		return c, fmt.Errorf("writing comparison: %w", err)
	}

	return c, nil
}
