package webhdfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

const (
	userAgent  = "hdfs-mirror/0.1"
	apiPrefix  = "/webhdfs/v1"
	schemeHTTP = "http"
)

// Doer sends HTTP requests. *http.Client and the SPNEGO client both
// satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Auth selects how requests are authenticated. With Kerberos nil, every
// request carries user.name=User. With Kerberos set, the endpoint probe
// and the token calls go through the SPNEGO Doer, and every other request
// carries the acquired delegation token.
type Auth struct {
	User     string
	Kerberos Doer
	Renewer  string
}

// IsKerberos reports whether strong authentication is configured.
func (a Auth) IsKerberos() bool {
	return a.Kerberos != nil
}

// Client is a WebHDFS client bound to one namenode HTTP endpoint.
// It is safe for concurrent use once Resolve (or NewClient and, under
// Kerberos, AcquireDelegationToken) has returned.
type Client struct {
	endpoint   string
	httpClient *http.Client
	noRedirect *http.Client
	auth       Auth
	limiter    *BandwidthLimiter
	logger     *slog.Logger

	delegation  string
	cancelOnce  sync.Once
	cancelError error
}

// Option configures a Client.
type Option func(*Client)

// WithBandwidthLimiter makes every upload and download body share bl.
func WithBandwidthLimiter(bl *BandwidthLimiter) Option {
	return func(c *Client) {
		c.limiter = bl
	}
}

// NewClient creates a client for endpoint ("host:port").
func NewClient(endpoint string, httpClient *http.Client, auth Auth, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	// CREATE must see the namenode's 307 instead of following it.
	noRedirect := *httpClient
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	c := &Client{
		endpoint:   strings.TrimSuffix(strings.TrimPrefix(endpoint, "http://"), "/"),
		httpClient: httpClient,
		noRedirect: &noRedirect,
		auth:       auth,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Endpoint returns the "host:port" the client is bound to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// opURL builds the URL for op on path. Auth parameters are added unless
// withAuth is false (SPNEGO requests authenticate through headers).
func (c *Client) opURL(path, op string, params url.Values, withAuth bool) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}

	q.Set("op", op)

	if withAuth {
		switch {
		case c.delegation != "":
			q.Set("delegation", c.delegation)
		case c.auth.User != "":
			q.Set("user.name", c.auth.User)
		}
	}

	u := url.URL{
		Scheme:   schemeHTTP,
		Host:     c.endpoint,
		Path:     apiPrefix + path, // escaped by url.URL.String
		RawQuery: q.Encode(),
	}

	return u.String()
}

// newRequest creates a request carrying the client's User-Agent.
func newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("webhdfs: creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	return req, nil
}

// call executes op on path through doer and returns the raw response.
// The caller owns the response body.
func (c *Client) call(
	ctx context.Context, doer Doer, method, path, op string, params url.Values, withAuth bool,
) (*http.Response, error) {
	req, err := newRequest(ctx, method, c.opURL(path, op, params, withAuth), http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhdfs: %s %s: %w", op, path, err)
	}

	c.logger.Debug("webhdfs request",
		slog.String("op", op),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	return resp, nil
}

// callOK executes op and requires 200, decoding the JSON body into out
// when out is non-nil.
func (c *Client) callOK(ctx context.Context, method, path, op string, params url.Values, out any) error {
	resp, err := c.call(ctx, c.httpClient, method, path, op, params, true)
	if err != nil {
		return err
	}

	return decodeOK(op, path, resp, out)
}

// decodeOK checks for 200 and decodes the body into out (if non-nil).
func decodeOK(op, path string, resp *http.Response, out any) error {
	if resp.StatusCode != http.StatusOK {
		return newRemoteError(op, path, resp)
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain to reuse connection

		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("webhdfs: decoding %s response for %s: %w", op, path, err)
	}

	return nil
}

// callBoolean executes an op whose reply is {"boolean": ...} and fails
// when the server reports false.
func (c *Client) callBoolean(ctx context.Context, method, path, op string, params url.Values) error {
	var br booleanResponse
	if err := c.callOK(ctx, method, path, op, params, &br); err != nil {
		return err
	}

	if !br.Boolean {
		return fmt.Errorf("%w: %s %s", ErrOperationFailed, op, path)
	}

	return nil
}
