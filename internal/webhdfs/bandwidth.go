package webhdfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

// burstMultiplier sizes the token bucket burst relative to the per-second rate.
const burstMultiplier = 2

// BandwidthLimiter throttles the aggregate throughput of every upload and
// download body of a run. One limiter is shared by all transfer workers.
type BandwidthLimiter struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewBandwidthLimiter creates a limiter from a rate such as "5MB/s" or
// "100KiB". It returns nil for "" or "0", meaning unlimited.
func NewBandwidthLimiter(limit string, logger *slog.Logger) (*BandwidthLimiter, error) {
	bytesPerSec, err := ParseBandwidth(limit)
	if err != nil {
		return nil, err
	}

	if bytesPerSec == 0 {
		return nil, nil //nolint:nilnil // nil limiter = unlimited
	}

	if logger == nil {
		logger = slog.Default()
	}

	burst := int(bytesPerSec) * burstMultiplier

	logger.Info("bandwidth limiter created",
		slog.Uint64("bytes_per_sec", bytesPerSec),
		slog.Int("burst", burst),
	)

	return &BandwidthLimiter{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
		logger:  logger,
	}, nil
}

// ParseBandwidth parses "5MB/s", "100KiB", "0" into bytes per second.
func ParseBandwidth(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}

	normalized := s
	if strings.HasSuffix(strings.ToLower(normalized), "/s") {
		normalized = normalized[:len(normalized)-len("/s")]
	}

	n, err := humanize.ParseBytes(normalized)
	if err != nil {
		return 0, fmt.Errorf("invalid bandwidth rate %q: %w", s, err)
	}

	return n, nil
}

// WrapReader returns a rate-limited reader. A nil limiter returns r unchanged.
func (bl *BandwidthLimiter) WrapReader(ctx context.Context, r io.Reader) io.Reader {
	if bl == nil {
		return r
	}

	return &rateLimitedReader{r: r, limiter: bl.limiter, ctx: ctx}
}

type rateLimitedReader struct {
	r       io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

func (r *rateLimitedReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		if waitErr := waitN(r.ctx, r.limiter, n); waitErr != nil {
			return n, waitErr
		}
	}

	return n, err
}

// waitN splits a request larger than the burst, which WaitN would reject.
func waitN(ctx context.Context, limiter *rate.Limiter, n int) error {
	burst := limiter.Burst()

	for n > 0 {
		take := min(n, burst)

		if err := limiter.WaitN(ctx, take); err != nil {
			return err
		}

		n -= take
	}

	return nil
}
