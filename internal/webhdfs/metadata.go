package webhdfs

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tonimelisma/hdfs-mirror/internal/attr"
)

// permissionParam renders a mode the way WebHDFS expects it: octal digits
// without the leading zero.
func permissionParam(m attr.Mode) string {
	return strconv.FormatUint(uint64(m), 8)
}

// Mkdirs creates path and any missing parents. It succeeds if the directory
// already exists. A zero mode leaves the server default in place.
func (c *Client) Mkdirs(ctx context.Context, path string, mode attr.Mode) error {
	params := url.Values{}
	if mode.IsSet() {
		params.Set("permission", permissionParam(mode))
	}

	c.logger.Debug("creating remote directory",
		slog.String("path", path),
		slog.String("mode", mode.String()),
	)

	return c.callBoolean(ctx, http.MethodPut, path, "MKDIRS", params)
}

// Rename moves path to destination.
func (c *Client) Rename(ctx context.Context, path, destination string) error {
	c.logger.Debug("renaming remote path",
		slog.String("path", path),
		slog.String("destination", destination),
	)

	return c.callBoolean(ctx, http.MethodPut, path, "RENAME", url.Values{"destination": {destination}})
}

// SetOwner changes the owner of path.
func (c *Client) SetOwner(ctx context.Context, path, owner string) error {
	return c.callOK(ctx, http.MethodPut, path, "SETOWNER", url.Values{"owner": {owner}}, nil)
}

// SetGroup changes the group of path.
func (c *Client) SetGroup(ctx context.Context, path, group string) error {
	return c.callOK(ctx, http.MethodPut, path, "SETOWNER", url.Values{"group": {group}}, nil)
}

// SetPermission changes the permission of path.
func (c *Client) SetPermission(ctx context.Context, path string, mode attr.Mode) error {
	return c.callOK(ctx, http.MethodPut, path, "SETPERMISSION",
		url.Values{"permission": {permissionParam(mode)}}, nil)
}

// SetModTime sets the modification time of path to mtime (Unix seconds).
// The access time is left unchanged.
func (c *Client) SetModTime(ctx context.Context, path string, mtime int64) error {
	params := url.Values{
		"modificationtime": {strconv.FormatInt(mtime*millisPerSecond, 10)},
		"accesstime":       {"-1"},
	}

	return c.callOK(ctx, http.MethodPut, path, "SETTIMES", params, nil)
}
