// Package webhdfs provides an HTTP client for the WebHDFS REST protocol:
// status and listing lookups, two-phase file create, streaming reads,
// metadata updates, endpoint failover and delegation-token lifecycle.
package webhdfs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Sentinel errors for HTTP status and protocol classification.
// Use errors.Is(err, webhdfs.ErrNotFound) to check.
var (
	ErrNotFound         = errors.New("webhdfs: not found")
	ErrForbidden        = errors.New("webhdfs: forbidden")
	ErrUnauthorized     = errors.New("webhdfs: unauthorized")
	ErrUnexpectedStatus = errors.New("webhdfs: unexpected status")
	ErrNotRedirect      = errors.New("webhdfs: expected a redirect to a datanode")
	ErrUnknownEntryType = errors.New("webhdfs: unknown directory entry type")
	ErrOperationFailed  = errors.New("webhdfs: operation reported failure")
	ErrNoEndpoint       = errors.New("webhdfs: no usable endpoint")
	ErrLocalExists      = errors.New("webhdfs: local file already exists")
)

// maxErrorBody bounds how much of an error response is kept for messages.
const maxErrorBody = 4096

// RemoteError wraps a sentinel error with the operation, path, HTTP status
// and the server's RemoteException message.
type RemoteError struct {
	Op         string
	Path       string
	StatusCode int
	Exception  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if e.Exception != "" {
		msg = e.Exception + ": " + msg
	}

	if msg == "" {
		return fmt.Sprintf("webhdfs: %s %s: HTTP %d", e.Op, e.Path, e.StatusCode)
	}

	return fmt.Sprintf("webhdfs: %s %s: HTTP %d: %s", e.Op, e.Path, e.StatusCode, msg)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// remoteExceptionResponse is the JSON error body returned by the namenode.
type remoteExceptionResponse struct {
	RemoteException struct {
		Exception     string `json:"exception"`
		JavaClassName string `json:"javaClassName"`
		Message       string `json:"message"`
	} `json:"RemoteException"`
}

// classifyStatus maps an HTTP status code to a sentinel error.
func classifyStatus(code int) error {
	switch code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return ErrUnexpectedStatus
	}
}

// newRemoteError consumes and closes resp.Body and builds a RemoteError.
func newRemoteError(op, path string, resp *http.Response) *RemoteError {
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best-effort read for error message

	re := &RemoteError{
		Op:         op,
		Path:       path,
		StatusCode: resp.StatusCode,
		Err:        classifyStatus(resp.StatusCode),
	}

	var rex remoteExceptionResponse
	if json.Unmarshal(body, &rex) == nil && rex.RemoteException.Exception != "" {
		re.Exception = rex.RemoteException.Exception
		re.Message = rex.RemoteException.Message
	} else {
		re.Message = string(body)
	}

	return re
}
