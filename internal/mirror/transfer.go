package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/hdfs-mirror/internal/attr"
	"github.com/tonimelisma/hdfs-mirror/internal/tree"
)

// ErrQueueNotDrained means every worker returned but paths are left in the
// queue: some item was lost without an error being reported.
var ErrQueueNotDrained = errors.New("mirror: file queue not empty while all workers ended")

const (
	// DefaultProgressInterval is how often the monitor reports progress.
	DefaultProgressInterval = 2 * time.Second

	backupTimeLayout = "2006-01-02_15_04_05"
)

// TransferConfig controls Transfer.
type TransferConfig struct {
	Workers  int
	Backup   bool
	Force    bool
	Policy   attr.Policy
	Interval time.Duration
	Out      io.Writer // progress lines; nil disables the monitor
	Now      func() time.Time
	Logger   *slog.Logger
}

// BackupName is where an existing destination file is moved before it is
// overwritten: "<path>.<UTC YYYY-MM-DD_HH_MM_SS>~".
func BackupName(path string, now time.Time) string {
	return path + "." + now.UTC().Format(backupTimeLayout) + "~"
}

type transferRun struct {
	cfg    TransferConfig
	queue  *Queue
	src    *tree.Snapshot
	dst    *tree.Snapshot
	target Target
	logger *slog.Logger
	newAtt attr.Attrs
}

// Transfer drains q with cfg.Workers workers. Each item is backed up when
// requested, copied, restamped with the source modification time and given
// the new-file attributes. The first worker error stops the run; there is
// no retry. It returns the number of files copied.
func Transfer(ctx context.Context, cfg TransferConfig, q *Queue, src, dst *tree.Snapshot, target Target) (int, error) {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	if cfg.Interval <= 0 {
		cfg.Interval = DefaultProgressInterval
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &transferRun{
		cfg:    cfg,
		queue:  q,
		src:    src,
		dst:    dst,
		target: target,
		logger: logger,
		newAtt: cfg.Policy.NewFile(),
	}

	logger.Info("transfer starting",
		slog.Int("files", q.Total()),
		slog.Int("workers", cfg.Workers),
	)

	// one slot per worker, summed after the join
	counts := make([]int, cfg.Workers)

	g, gctx := errgroup.WithContext(ctx)

	for id := range cfg.Workers {
		g.Go(func() error {
			return r.safeWork(gctx, id, &counts[id])
		})
	}

	poolDone := make(chan struct{})
	monitorDone := make(chan struct{})

	go func() {
		defer close(monitorDone)
		r.monitor(poolDone)
	}()

	err := g.Wait()

	close(poolDone)
	<-monitorDone

	copied := 0
	for _, n := range counts {
		copied += n
	}

	if err != nil {
		return copied, err
	}

	if err := checkDrained(q); err != nil {
		return copied, err
	}

	logger.Info("transfer complete", slog.Int("copied", copied))

	return copied, nil
}

// checkDrained fails when paths remain after every worker returned
// without an error.
func checkDrained(q *Queue) error {
	if left := q.Len(); left > 0 {
		return fmt.Errorf("%w (%d left)", ErrQueueNotDrained, left)
	}

	return nil
}

// safeWork runs work with panic recovery so a crashing worker turns into
// an error instead of taking the process down.
func (r *transferRun) safeWork(ctx context.Context, id int, count *int) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("worker panic",
				slog.Int("worker", id),
				slog.Any("panic", rec),
			)

			err = fmt.Errorf("worker %d: panic: %v", id, rec)
		}
	}()

	return r.work(ctx, id, count)
}

func (r *transferRun) work(ctx context.Context, id int, count *int) error {
	r.logger.Debug("worker started", slog.Int("worker", id))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, ok := r.queue.Pop()
		if !ok {
			r.logger.Debug("worker ended",
				slog.Int("worker", id),
				slog.Int("files", *count),
			)

			return nil
		}

		if err := r.copyOne(ctx, rel); err != nil {
			return fmt.Errorf("copying %s: %w", r.src.Path(rel), err)
		}

		*count++
	}
}

func (r *transferRun) copyOne(ctx context.Context, rel string) error {
	srcMeta, ok := r.src.Files[rel]
	if !ok {
		return fmt.Errorf("%s is not a source file", rel)
	}

	srcPath := r.src.Path(rel)
	dstPath := tree.DestPath(r.src, r.dst, rel)

	if _, exists := r.dst.Files[rel]; exists && r.cfg.Backup {
		backup := BackupName(dstPath, r.cfg.Now())

		r.logger.Info("backing up", slog.String("path", dstPath), slog.String("backup", backup))

		if err := r.target.Rename(ctx, dstPath, backup); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
	}

	r.logger.Debug("transferring", slog.String("src", srcPath), slog.String("dst", dstPath))

	if err := r.target.Transfer(ctx, srcPath, dstPath, r.cfg.Force); err != nil {
		return err
	}

	if err := r.target.SetModTime(ctx, dstPath, srcMeta.ModTime); err != nil {
		return err
	}

	return applyAttrs(ctx, r.target, dstPath, r.newAtt)
}

// monitor prints "done/total files copied" every interval until the queue
// is empty or the pool has exited. It only reads the queue.
func (r *transferRun) monitor(poolDone <-chan struct{}) {
	out := r.cfg.Out
	if out == nil {
		return
	}

	total := r.queue.Total()
	tty := false

	if f, ok := out.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	report := func() int {
		left := r.queue.Len()
		if tty {
			fmt.Fprintf(out, "\r%d/%d files copied", total-left, total)
		} else {
			fmt.Fprintf(out, "%d/%d files copied\n", total-left, total)
		}

		return left
	}

	if tty {
		defer fmt.Fprintln(out)
	}

	if report() == 0 {
		return
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-poolDone:
			report()
			return
		case <-ticker.C:
			if report() == 0 {
				return
			}
		}
	}
}
