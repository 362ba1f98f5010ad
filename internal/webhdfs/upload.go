package webhdfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
)

// Upload copies the local file at localPath to remotePath using the
// two-phase CREATE: the namenode answers the first PUT with a 307 naming a
// datanode, and the content is streamed to that location in a second PUT.
// There is no retry; a failed stream leaves the caller to decide.
func (c *Client) Upload(ctx context.Context, localPath, remotePath string, overwrite bool) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("webhdfs: opening %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("webhdfs: stat %s: %w", localPath, err)
	}

	return c.UploadReader(ctx, remotePath, f, info.Size(), overwrite)
}

// UploadReader is Upload for an arbitrary reader of known size.
func (c *Client) UploadReader(ctx context.Context, remotePath string, r io.Reader, size int64, overwrite bool) error {
	location, err := c.createLocation(ctx, remotePath, overwrite)
	if err != nil {
		return err
	}

	c.logger.Debug("streaming upload",
		slog.String("path", remotePath),
		slog.Int64("size", size),
	)

	req, err := newRequest(ctx, http.MethodPut, location, c.limiter.WrapReader(ctx, r))
	if err != nil {
		return err
	}

	req.ContentLength = size
	if size == 0 {
		req.Body = http.NoBody
	}

	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.noRedirect.Do(req)
	if err != nil {
		return fmt.Errorf("webhdfs: streaming %s: %w", remotePath, err)
	}

	if resp.StatusCode != http.StatusCreated {
		return newRemoteError("CREATE", remotePath, resp)
	}

	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain to reuse connection
	resp.Body.Close()

	return nil
}

// createLocation runs the first CREATE phase and returns the datanode URL.
func (c *Client) createLocation(ctx context.Context, remotePath string, overwrite bool) (string, error) {
	const op = "CREATE"

	params := url.Values{"overwrite": {strconv.FormatBool(overwrite)}}

	resp, err := c.call(ctx, c.noRedirect, http.MethodPut, remotePath, op, params, true)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusTemporaryRedirect {
		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
			resp.Body.Close()
			return "", fmt.Errorf("%w: %s %s answered HTTP %d", ErrNotRedirect, op, remotePath, resp.StatusCode)
		}

		return "", newRemoteError(op, remotePath, resp)
	}

	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain to reuse connection
	resp.Body.Close()

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("%w: %s %s: missing Location header", ErrNotRedirect, op, remotePath)
	}

	return location, nil
}
