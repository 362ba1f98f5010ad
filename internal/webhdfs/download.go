package webhdfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
)

const (
	// downloadBufferSize bounds memory per concurrent download.
	downloadBufferSize = 256 * 1024
	partialSuffix      = ".partial"
	// partialPerm is narrowed by the umask like any file the user creates;
	// the mode survives the rename.
	partialPerm = 0o666
)

// Download copies remotePath to localPath. The namenode redirect to a
// datanode is followed. Content lands in "<localPath>.partial" and is
// renamed into place once complete. With overwrite false, an existing
// localPath yields ErrLocalExists before any request is sent.
func (c *Client) Download(ctx context.Context, remotePath, localPath string, overwrite bool) (int64, error) {
	const op = "OPEN"

	if !overwrite {
		if _, err := os.Lstat(localPath); err == nil {
			return 0, fmt.Errorf("%w: %s", ErrLocalExists, localPath)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("webhdfs: stat %s: %w", localPath, err)
		}
	}

	resp, err := c.call(ctx, c.httpClient, http.MethodGet, remotePath, op, nil, true)
	if err != nil {
		return 0, err
	}

	if resp.StatusCode != http.StatusOK {
		return 0, newRemoteError(op, remotePath, resp)
	}
	defer resp.Body.Close()

	partial := localPath + partialSuffix

	n, err := writePartial(partial, c.limiter.WrapReader(ctx, resp.Body))
	if err != nil {
		c.logger.Error("streaming download content failed",
			slog.String("path", remotePath),
			slog.String("error", err.Error()),
			slog.Int64("bytes_before_error", n),
		)

		if rmErr := os.Remove(partial); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			c.logger.Warn("removing partial file", slog.String("path", partial), slog.String("error", rmErr.Error()))
		}

		return n, fmt.Errorf("webhdfs: streaming %s: %w", remotePath, err)
	}

	if err := os.Rename(partial, localPath); err != nil {
		return n, fmt.Errorf("webhdfs: moving %s into place: %w", partial, err)
	}

	c.logger.Debug("download complete",
		slog.String("path", remotePath),
		slog.Int64("bytes_written", n),
	)

	return n, nil
}

func writePartial(path string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, partialPerm)
	if err != nil {
		return 0, err
	}

	n, copyErr := io.CopyBuffer(f, r, make([]byte, downloadBufferSize))
	closeErr := f.Close()

	if copyErr != nil {
		return n, copyErr
	}

	return n, closeErr
}
