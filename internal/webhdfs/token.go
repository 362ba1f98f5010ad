package webhdfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// ErrNoKerberos is returned by token operations on a simple-auth client.
var ErrNoKerberos = errors.New("webhdfs: delegation tokens require Kerberos")

// AcquireDelegationToken obtains a delegation token through SPNEGO. Every
// later request carries it instead of user.name. Call it before the client
// is shared between goroutines.
func (c *Client) AcquireDelegationToken(ctx context.Context) error {
	const op = "GETDELEGATIONTOKEN"

	if !c.auth.IsKerberos() {
		return ErrNoKerberos
	}

	var params url.Values
	if c.auth.Renewer != "" {
		params = url.Values{"renewer": {c.auth.Renewer}}
	}

	resp, err := c.call(ctx, c.auth.Kerberos, http.MethodGet, "/", op, params, false)
	if err != nil {
		return err
	}

	var tr tokenResponse
	if err := decodeOK(op, "/", resp, &tr); err != nil {
		return err
	}

	if tr.Token.URLString == "" {
		return fmt.Errorf("%w: %s returned an empty token", ErrOperationFailed, op)
	}

	c.delegation = tr.Token.URLString

	c.logger.Info("delegation token acquired", slog.String("endpoint", c.endpoint))

	return nil
}

// CancelDelegationToken revokes the token acquired by AcquireDelegationToken.
// Prefer Close, which guarantees a single cancellation.
func (c *Client) CancelDelegationToken(ctx context.Context) error {
	const op = "CANCELDELEGATIONTOKEN"

	if !c.auth.IsKerberos() {
		return ErrNoKerberos
	}

	if c.delegation == "" {
		return nil
	}

	resp, err := c.call(ctx, c.auth.Kerberos, http.MethodPut, "/", op, url.Values{"token": {c.delegation}}, false)
	if err != nil {
		return err
	}

	if err := decodeOK(op, "/", resp, nil); err != nil {
		return err
	}

	c.logger.Info("delegation token canceled", slog.String("endpoint", c.endpoint))

	return nil
}

// HasDelegationToken reports whether a token is held.
func (c *Client) HasDelegationToken() bool {
	return c.delegation != ""
}

// Close cancels the delegation token, if one was acquired. Only the first
// call does any work; later calls return the first result. Safe to call
// from a signal handler concurrently with a deferred Close.
func (c *Client) Close(ctx context.Context) error {
	c.cancelOnce.Do(func() {
		if c.delegation == "" {
			return
		}

		c.cancelError = c.CancelDelegationToken(ctx)
	})

	return c.cancelError
}
