package webhdfs

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// hdfsSiteFile is read from the Hadoop configuration directory.
const hdfsSiteFile = "hdfs-site.xml"

// httpAddressPrefixes are the current and legacy property names of the
// namenode HTTP address. HA clusters suffix them with nameservice and
// namenode ids.
var httpAddressPrefixes = []string{
	"dfs.namenode.http-address",
	"dfs.http.address",
}

type hadoopConfiguration struct {
	Properties []struct {
		Name  string `xml:"name"`
		Value string `xml:"value"`
	} `xml:"property"`
}

// Candidates returns the endpoints to probe, in order. A non-empty
// explicit value is a comma-separated list and wins; otherwise every
// namenode HTTP address property of <hadoopConfDir>/hdfs-site.xml is used.
func Candidates(explicit, hadoopConfDir string) ([]string, error) {
	if list := splitList(explicit); len(list) > 0 {
		return list, nil
	}

	path := filepath.Join(hadoopConfDir, hdfsSiteFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("webhdfs: reading %s: %w", path, err)
	}

	var conf hadoopConfiguration
	if err := xml.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("webhdfs: parsing %s: %w", path, err)
	}

	var out []string

	for _, p := range conf.Properties {
		name := strings.TrimSpace(p.Name)
		value := strings.TrimSpace(p.Value)

		if value == "" || !hasAnyPrefix(name, httpAddressPrefixes) {
			continue
		}

		out = append(out, value)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s defines no namenode http address", ErrNoEndpoint, path)
	}

	return out, nil
}

func splitList(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}

	return false
}

// EndpointError records why one candidate was rejected.
type EndpointError struct {
	Endpoint string
	Err      error
}

func (e *EndpointError) Error() string {
	return e.Endpoint + ": " + e.Err.Error()
}

func (e *EndpointError) Unwrap() error {
	return e.Err
}

// Resolve returns a client bound to the first candidate whose root answers
// GETFILESTATUS. Under Kerberos the probe goes through SPNEGO and the
// winning client acquires a delegation token before it is returned.
// When every candidate fails, the error lists each one with its reason.
func Resolve(
	ctx context.Context, candidates []string, httpClient *http.Client, auth Auth, logger *slog.Logger, opts ...Option,
) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrNoEndpoint)
	}

	failures := make([]error, 0, len(candidates))

	for _, candidate := range candidates {
		c := NewClient(candidate, httpClient, auth, logger, opts...)

		if err := c.probe(ctx); err != nil {
			logger.Debug("endpoint rejected",
				slog.String("endpoint", candidate),
				slog.String("error", err.Error()),
			)

			failures = append(failures, &EndpointError{Endpoint: candidate, Err: err})

			continue
		}

		if auth.IsKerberos() {
			if err := c.AcquireDelegationToken(ctx); err != nil {
				return nil, fmt.Errorf("webhdfs: acquiring delegation token from %s: %w", candidate, err)
			}
		}

		logger.Info("endpoint selected", slog.String("endpoint", c.Endpoint()))

		return c, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrNoEndpoint, errors.Join(failures...))
}

// probe checks that the root of the filesystem is reachable.
func (c *Client) probe(ctx context.Context) error {
	const op = "GETFILESTATUS"

	doer, withAuth := Doer(c.httpClient), true
	if c.auth.IsKerberos() {
		doer, withAuth = c.auth.Kerberos, false
	}

	resp, err := c.call(ctx, doer, http.MethodGet, "/", op, nil, withAuth)
	if err != nil {
		return err
	}

	return decodeOK(op, "/", resp, nil)
}
