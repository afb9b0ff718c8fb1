// Package transport issues GET requests against archive.org with the header
// set the service requires and turns every response into either a usable
// body or a classified error from pkg/errors.
package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/glorpus-work/iafetch/pkg/auth"
	"github.com/glorpus-work/iafetch/pkg/errors"
	"github.com/glorpus-work/iafetch/pkg/retry"
)

// Client identity and Accept values.
const (
	Product    = "iafetch"
	ContactURL = "https://github.com/glorpus-work/iafetch"
	Purpose    = "Internet Archive download helper"

	AcceptMetadata = "application/json, text/plain, */*"
	AcceptDownload = "*/*"

	DefaultTimeout = 30 * time.Second
)

var errHeaderTimeout = stderrors.New("timeout awaiting response headers")

// Options configure a Client.
type Options struct {
	// Timeout bounds the connection and response header phase of a request.
	Timeout time.Duration
	// Version is embedded in the User-Agent.
	Version string
	Auth    auth.Authenticator
	// HTTPClient overrides the default client. Its own Timeout should be zero
	// or streaming bodies will be cut off.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	auth       auth.Authenticator
	logger     *slog.Logger
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: newHTTPTransport(opts.Timeout)}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		httpClient: httpClient,
		userAgent:  UserAgent(opts.Version),
		timeout:    opts.Timeout,
		auth:       opts.Auth,
		logger:     logger,
	}
}

func newHTTPTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	t.TLSHandshakeTimeout = timeout
	return t
}

// UserAgent builds the descriptive User-Agent archive.org asks clients to send.
func UserAgent(version string) string {
	return fmt.Sprintf("%s/%s (%s; %s)", Product, version, ContactURL, Purpose)
}

// UserAgent returns the header value sent with every request.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// Timeout returns the header phase timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Get issues a GET for url. On success the caller owns resp.Body and must
// close it; the header timeout no longer applies once Get has returned.
// Every failure is a *errors.RequestError, except cancellation of ctx which
// is returned as ctx.Err().
func (c *Client) Get(ctx context.Context, url, accept string) (*http.Response, error) {
	reqCtx, cancel := context.WithCancelCause(ctx)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, http.NoBody)
	if err != nil {
		cancel(nil)
		return nil, errors.NewRequestError(errors.ErrClientError, url, 0, nil, errors.Wrap(err, "failed to create request"))
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	if c.auth != nil {
		if err := c.auth.Apply(req); err != nil {
			cancel(nil)
			return nil, errors.NewRequestError(errors.ErrClientError, url, 0, nil, errors.Wrap(err, "failed to apply credentials"))
		}
	}

	timer := time.AfterFunc(c.timeout, func() { cancel(errHeaderTimeout) })
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	fired := !timer.Stop()

	if err != nil {
		cause := context.Cause(reqCtx)
		cancel(nil)
		return nil, c.classifyError(ctx, url, err, cause)
	}
	if fired {
		// the request context is already cancelled, so the body is unusable
		_ = resp.Body.Close()
		cause := context.Cause(reqCtx)
		cancel(nil)
		return nil, c.classifyError(ctx, url, context.Canceled, cause)
	}

	c.logger.Debug("http response", "url", url, "status", resp.StatusCode, "elapsed", time.Since(start))

	if err := ClassifyResponse(url, resp); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		cancel(nil)
		return nil, err
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// ClassifyResponse maps a status code to nil (2xx) or a RequestError.
func ClassifyResponse(url string, resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return errors.NewRequestError(errors.ErrRateLimited, url, code, retryAfter(resp), nil)
	case code == http.StatusNotFound:
		return errors.NewRequestError(errors.ErrNotFound, url, code, nil, nil)
	case code == http.StatusForbidden:
		return errors.NewRequestError(errors.ErrForbidden, url, code, nil, nil)
	case code >= 500:
		return errors.NewRequestError(errors.ErrServerError, url, code, retryAfter(resp), nil)
	default:
		return errors.NewRequestError(errors.ErrClientError, url, code, nil, nil)
	}
}

func (c *Client) classifyError(parent context.Context, url string, err, cause error) error {
	if stderrors.Is(cause, errHeaderTimeout) {
		return errors.NewRequestError(errors.ErrTimeout, url, 0, nil, fmt.Errorf("no response within %s", c.timeout))
	}
	if parent.Err() != nil {
		return parent.Err()
	}
	return ClassifyNetworkError(url, err)
}

// ClassifyNetworkError maps a transport level error to ErrTimeout or
// ErrNetworkFailure, recording the failure class in NetKind.
func ClassifyNetworkError(url string, err error) error {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewRequestError(errors.ErrTimeout, url, 0, nil, err)
	}
	reqErr := errors.NewRequestError(errors.ErrNetworkFailure, url, 0, nil, err)
	reqErr.NetKind = networkKind(err)
	return reqErr
}

func retryAfter(resp *http.Response) *time.Duration {
	return retry.ParseRetryAfter(resp.Header.Get("Retry-After"))
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelCauseFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel(nil)
	return err
}
