// Package metadata resolves archive.org identifiers and fetches item metadata.
package metadata

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/glorpus-work/iafetch/pkg/model"
	"github.com/glorpus-work/iafetch/pkg/ratelimit"
	"github.com/glorpus-work/iafetch/pkg/retry"
	"github.com/glorpus-work/iafetch/pkg/transport"
)

// maxBodySize caps metadata responses; the largest items are a few MiB.
const maxBodySize = 64 << 20

// Source is anything that can produce item metadata.
type Source interface {
	FetchMetadata(ctx context.Context, identifierOrURL string) (*model.Metadata, error)
}

// Fetcher fetches metadata over HTTP. It holds no per-item state; the only
// shared state is the rate limiter it was given.
type Fetcher struct {
	client    transport.Doer
	limiter   *ratelimit.Limiter
	policy    retry.Policy
	baseURL   string
	logger    *slog.Logger
	retryOpts []retry.Option
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithBaseURL points the fetcher at a different archive.org root.
func WithBaseURL(u string) Option {
	return func(f *Fetcher) { f.baseURL = u }
}

// WithPolicy sets the retry policy.
func WithPolicy(p retry.Policy) Option {
	return func(f *Fetcher) { f.policy = p }
}

// WithLogger sets the logger used for request and retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithRetryOptions passes options through to retry.Do.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(f *Fetcher) { f.retryOpts = append(f.retryOpts, opts...) }
}

// NewFetcher creates a Fetcher. limiter may be nil to disable spacing.
func NewFetcher(client transport.Doer, limiter *ratelimit.Limiter, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  client,
		limiter: limiter,
		policy:  retry.DefaultPolicy(),
		baseURL: DefaultBaseURL,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BaseURL returns the archive.org root the fetcher resolves identifiers against.
func (f *Fetcher) BaseURL() string {
	return f.baseURL
}

// FetchMetadata resolves identifierOrURL and returns the parsed item.
// Invalid identifiers fail before any request is made. Transient failures
// are retried under the fetcher's policy; parse failures are not.
func (f *Fetcher) FetchMetadata(ctx context.Context, identifierOrURL string) (*model.Metadata, error) {
	resolved, err := ResolveURL(f.baseURL, identifierOrURL)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("fetching metadata", "identifier", resolved.Identifier, "url", resolved.MetadataURL)

	opts := append([]retry.Option{retry.WithLogger(f.logger)}, f.retryOpts...)
	body, err := retry.Do(ctx, f.policy, func(ctx context.Context) ([]byte, error) {
		if err := f.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		resp, err := f.client.Get(ctx, resolved.MetadataURL, transport.AcceptMetadata)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, transport.ClassifyNetworkError(resolved.MetadataURL, err)
		}
		return data, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	meta, err := Decode(resolved.Identifier, body)
	if err != nil {
		return nil, fmt.Errorf("metadata for %s: %w", resolved.Identifier, err)
	}
	if meta.Identifier != resolved.Identifier {
		f.logger.Debug("server reported different identifier", "requested", resolved.Identifier, "reported", meta.Identifier)
	}
	return meta, nil
}

var _ Source = (*Fetcher)(nil)
