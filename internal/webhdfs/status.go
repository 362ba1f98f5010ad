package webhdfs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tonimelisma/hdfs-mirror/internal/attr"
)

// toEntry normalizes a FileStatus: milliseconds become whole seconds
// (truncated) and the permission string becomes an attr.Mode.
func (fs *fileStatusJSON) toEntry() (Entry, error) {
	e := Entry{
		Name:    fs.PathSuffix,
		Size:    fs.Length,
		ModTime: fs.ModificationTime / millisPerSecond,
		Owner:   fs.Owner,
		Group:   fs.Group,
	}

	switch fs.Type {
	case "FILE":
		e.Type = TypeFile
	case "DIRECTORY":
		e.Type = TypeDirectory
	default:
		return Entry{}, fmt.Errorf("%w: %q for %q", ErrUnknownEntryType, fs.Type, fs.PathSuffix)
	}

	// the server drops leading zeros, so "0" and "644" are both valid
	mode, err := strconv.ParseUint(fs.Permission, 8, 32)
	if err != nil {
		return Entry{}, fmt.Errorf("webhdfs: permission %q of %q: %w", fs.Permission, fs.PathSuffix, err)
	}

	e.Mode = attr.Mode(mode)

	return e, nil
}

// GetStatus looks up a single path. A missing path yields TypeNotFound and
// a denied one TypeNoAccess, both without error; any other non-200 status
// is a protocol error.
func (c *Client) GetStatus(ctx context.Context, path string) (Entry, error) {
	const op = "GETFILESTATUS"

	resp, err := c.call(ctx, c.httpClient, http.MethodGet, path, op, nil, true)
	if err != nil {
		return Entry{}, err
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		resp.Body.Close()
		return Entry{Type: TypeNotFound}, nil
	case http.StatusForbidden:
		resp.Body.Close()
		return Entry{Type: TypeNoAccess}, nil
	}

	var fsr fileStatusResponse
	if err := decodeOK(op, path, resp, &fsr); err != nil {
		return Entry{}, err
	}

	return fsr.FileStatus.toEntry()
}

// ListDirectory returns the files and subdirectories of path with their
// full metadata, so walkers never need a second request per entry.
func (c *Client) ListDirectory(ctx context.Context, path string) (Listing, error) {
	const op = "LISTSTATUS"

	resp, err := c.call(ctx, c.httpClient, http.MethodGet, path, op, nil, true)
	if err != nil {
		return Listing{}, err
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		resp.Body.Close()
		return Listing{Status: ListNotFound}, nil
	case http.StatusForbidden:
		resp.Body.Close()
		return Listing{Status: ListNoAccess}, nil
	case http.StatusOK:
	default:
		return Listing{}, newRemoteError(op, path, resp)
	}
	defer resp.Body.Close()

	var lsr listStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&lsr); err != nil {
		return Listing{}, fmt.Errorf("webhdfs: decoding %s response for %s: %w", op, path, err)
	}

	listing := Listing{Status: ListOK}

	for i := range lsr.FileStatuses.FileStatus {
		e, err := lsr.FileStatuses.FileStatus[i].toEntry()
		if err != nil {
			return Listing{}, fmt.Errorf("listing %s: %w", path, err)
		}

		if e.Type == TypeDirectory {
			listing.Directories = append(listing.Directories, e)
		} else {
			listing.Files = append(listing.Files, e)
		}
	}

	return listing, nil
}
