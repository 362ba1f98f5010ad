package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/user"
	"strings"
	"time"

	"github.com/tonimelisma/hdfs-mirror/internal/config"
	"github.com/tonimelisma/hdfs-mirror/internal/webhdfs"
)

// closeTimeout bounds the delegation-token cancel at exit.
const closeTimeout = 10 * time.Second

// newKerberosDoer builds the SPNEGO client; replaced in tests.
var newKerberosDoer = webhdfs.NewKerberosDoer

// newHTTPClient applies the connect and data timeouts. The data timeout
// bounds the wait for response headers only, so long transfers are not
// cut off.
func newHTTPClient(opts config.Options) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if opts.ConnectTimeout > 0 {
		transport.DialContext = (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext
	}

	if opts.DataTimeout > 0 {
		transport.ResponseHeaderTimeout = opts.DataTimeout
	}

	return &http.Client{Transport: transport}
}

// connect finds a working endpoint and returns a client for it. Under
// Kerberos the client already holds a delegation token; the caller must
// call closeClient on every exit path.
func connect(ctx context.Context, opts config.Options, logger *slog.Logger) (*webhdfs.Client, error) {
	candidates, err := webhdfs.Candidates(opts.WebHDFSEndpoint, opts.HadoopConfDir)
	if err != nil {
		return nil, err
	}

	httpClient := newHTTPClient(opts)

	auth := webhdfs.Auth{User: opts.HDFSUser}

	if opts.Kerberos {
		doer, err := newKerberosDoer(webhdfs.KerberosConfig{
			Krb5Conf: opts.Krb5Config,
			CCache:   strings.TrimPrefix(opts.Krb5CCache, "FILE:"),
			SPN:      opts.KerberosSPN,
		}, httpClient)
		if err != nil {
			return nil, err
		}

		auth = webhdfs.Auth{Kerberos: doer, Renewer: currentUser()}
	}

	limiter, err := webhdfs.NewBandwidthLimiter(opts.BandwidthLimit, logger)
	if err != nil {
		return nil, fmt.Errorf("bandwidth limit: %w", err)
	}

	logger.Debug("resolving webhdfs endpoint", slog.Any("candidates", candidates))

	return webhdfs.Resolve(ctx, candidates, httpClient, auth, logger, webhdfs.WithBandwidthLimiter(limiter))
}

// closeClient cancels the delegation token, if any. It uses a fresh
// context so it still works after the run context was canceled.
func closeClient(client *webhdfs.Client, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := client.Close(ctx); err != nil {
		logger.Warn("canceling delegation token", slog.String("error", err.Error()))
	}
}

// currentUser names the delegation-token renewer.
func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}

	return u.Username
}
