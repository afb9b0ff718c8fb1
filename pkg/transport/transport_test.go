package transport

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/iafetch/pkg/auth"
	"github.com/glorpus-work/iafetch/pkg/errors"
)

func TestUserAgent(t *testing.T) {
	ua := UserAgent("1.2.3")
	assert.Equal(t, "iafetch/1.2.3 (https://github.com/glorpus-work/iafetch; Internet Archive download helper)", ua)
	assert.Equal(t, UserAgent("dev"), New(Options{}).UserAgent())
}

func TestClient_GetSendsHeaders(t *testing.T) {
	var gotUA, gotAccept, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := New(Options{Version: "test", Auth: auth.LowAuth{AccessKey: "a", SecretKey: "s"}})
	resp, err := c.Get(context.Background(), srv.URL, AcceptMetadata)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, UserAgent("test"), gotUA)
	assert.Equal(t, AcceptMetadata, gotAccept)
	assert.Equal(t, "LOW a:s", gotAuth)
}

func TestClient_GetClassifiesStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		kind       error
		retryable  bool
		hint       time.Duration
		hasHint    bool
	}{
		{name: "rate limited with hint", status: 429, retryAfter: "5", kind: errors.ErrRateLimited, retryable: true, hint: 5 * time.Second, hasHint: true},
		{name: "rate limited bad hint", status: 429, retryAfter: "later", kind: errors.ErrRateLimited, retryable: true},
		{name: "not found", status: 404, kind: errors.ErrNotFound},
		{name: "forbidden", status: 403, kind: errors.ErrForbidden},
		{name: "bad request", status: 400, kind: errors.ErrClientError},
		{name: "service unavailable", status: 503, retryAfter: "2", kind: errors.ErrServerError, retryable: true, hint: 2 * time.Second, hasHint: true},
		{name: "internal error", status: 500, kind: errors.ErrServerError, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			resp, err := New(Options{}).Get(context.Background(), srv.URL, AcceptDownload)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.retryable, errors.IsRetryable(err))

			var reqErr *errors.RequestError
			require.True(t, stderrors.As(err, &reqErr))
			assert.Equal(t, tt.status, reqErr.StatusCode)
			hint, ok := reqErr.RetryAfter()
			assert.Equal(t, tt.hasHint, ok)
			assert.Equal(t, tt.hint, hint)
		})
	}
}

func TestClient_GetHeaderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(Options{Timeout: 50 * time.Millisecond})
	_, err := c.Get(context.Background(), srv.URL, AcceptMetadata)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTimeout)
	assert.True(t, errors.IsRetryable(err))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type trackedBody struct {
	io.Reader
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

func TestClient_GetHeadersAfterTimeout(t *testing.T) {
	body := &trackedBody{Reader: strings.NewReader("late")}
	// a transport that ignores the request context and answers too late
	slow := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		time.Sleep(100 * time.Millisecond)
		return &http.Response{StatusCode: http.StatusOK, Body: body, Header: http.Header{}, Request: r}, nil
	})

	c := New(Options{Timeout: 20 * time.Millisecond, HTTPClient: &http.Client{Transport: slow}})
	resp, err := c.Get(context.Background(), "https://archive.org/metadata/x", AcceptMetadata)
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTimeout)
	assert.True(t, body.closed, "late response body should be closed")
}

func TestClient_GetTimeoutDoesNotCutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		time.Sleep(100 * time.Millisecond)
		_, _ = io.WriteString(w, "late body")
	}))
	defer srv.Close()

	c := New(Options{Timeout: 50 * time.Millisecond})
	resp, err := c.Get(context.Background(), srv.URL, AcceptDownload)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "late body", string(body))
}

func TestClient_GetCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := New(Options{Timeout: 5 * time.Second}).Get(ctx, srv.URL, AcceptMetadata)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.IsRetryable(err))
}

func TestClient_GetConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = New(Options{Timeout: time.Second}).Get(context.Background(), "http://"+addr+"/metadata/x", AcceptMetadata)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNetworkFailure)
	assert.True(t, errors.IsRetryable(err))

	var reqErr *errors.RequestError
	require.True(t, stderrors.As(err, &reqErr))
	assert.Equal(t, NetKindRefused, reqErr.NetKind)
}

func TestClient_GetInvalidURL(t *testing.T) {
	_, err := New(Options{}).Get(context.Background(), "://bad", AcceptMetadata)
	assert.ErrorIs(t, err, errors.ErrClientError)
	assert.False(t, errors.IsRetryable(err))
}
