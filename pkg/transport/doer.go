package transport

import (
	"context"
	"net/http"
)

// Doer is the request surface the fetcher and downloader depend on.
type Doer interface {
	Get(ctx context.Context, url, accept string) (*http.Response, error)
}

var _ Doer = (*Client)(nil)
