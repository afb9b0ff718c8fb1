package metadata

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/iafetch/pkg/errors"
	"github.com/glorpus-work/iafetch/pkg/ratelimit"
	"github.com/glorpus-work/iafetch/pkg/retry"
	"github.com/glorpus-work/iafetch/pkg/transport"
)

type recordingTimer struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingTimer) After(d time.Duration) <-chan time.Time {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (r *recordingTimer) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func newTestFetcher(t *testing.T, handler http.HandlerFunc) (*Fetcher, *recordingTimer) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	timer := &recordingTimer{}
	f := NewFetcher(
		transport.New(transport.Options{Version: "test", Timeout: 2 * time.Second}),
		ratelimit.New(time.Millisecond),
		WithBaseURL(srv.URL),
		WithRetryOptions(retry.WithTimer(timer)),
	)
	return f, timer
}

func TestFetcher_FetchMetadata(t *testing.T) {
	var gotPath, gotAccept string
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		_, _ = io.WriteString(w, `{"files":[{"name":"a.txt","size":"100"}]}`)
	})

	meta, err := f.FetchMetadata(context.Background(), "test_item")
	require.NoError(t, err)
	assert.Equal(t, "/metadata/test_item", gotPath)
	assert.Equal(t, transport.AcceptMetadata, gotAccept)
	assert.Equal(t, "test_item", meta.Identifier)
	require.Len(t, meta.Files, 1)
	assert.Equal(t, "a.txt", meta.Files[0].Name)
	assert.Equal(t, int64(100), *meta.Files[0].Size)
}

func TestFetcher_InvalidIdentifierMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	})

	for _, in := range []string{"bad id", "a/b", "name?x", "tab\tid"} {
		_, err := f.FetchMetadata(context.Background(), in)
		assert.ErrorIs(t, err, errors.ErrInvalidIdentifier, in)
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestFetcher_RetryBound(t *testing.T) {
	var calls atomic.Int32
	f, timer := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := f.FetchMetadata(context.Background(), "item")
	assert.ErrorIs(t, err, errors.ErrServerError)
	assert.Equal(t, int32(retry.DefaultMaxRetries), calls.Load())
	assert.Equal(t, []time.Duration{30 * time.Second, 60 * time.Second}, timer.Delays())
}

func TestFetcher_RetryAfterPrecedence(t *testing.T) {
	var calls atomic.Int32
	f, timer := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"files":[]}`)
	})

	_, err := f.FetchMetadata(context.Background(), "item")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Second}, timer.Delays())
}

func TestFetcher_TerminalErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "not found", status: 404, want: errors.ErrNotFound},
		{name: "forbidden", status: 403, want: errors.ErrForbidden},
		{name: "empty object", status: 200, body: "{}", want: errors.ErrNotFound},
		{name: "malformed json", status: 200, body: "{not json", want: errors.ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			f, _ := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := f.FetchMetadata(context.Background(), "item")
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestFetcher_DetailsURLAgainstServer(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{"files":[]}`)
	}))
	defer srv.Close()

	f := NewFetcher(transport.New(transport.Options{}), nil)
	meta, err := f.FetchMetadata(context.Background(), srv.URL+"/details/some_item")
	require.NoError(t, err)
	assert.Equal(t, "/metadata/some_item", gotPath)
	assert.Equal(t, "some_item", meta.Identifier)
}
