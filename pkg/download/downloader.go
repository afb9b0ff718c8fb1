// Package download streams archive.org files to disk with progress reporting,
// cancellation and cleanup of partial output.
package download

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/glorpus-work/iafetch/pkg/errors"
	"github.com/glorpus-work/iafetch/pkg/fsutil"
	"github.com/glorpus-work/iafetch/pkg/ratelimit"
	"github.com/glorpus-work/iafetch/pkg/retry"
	"github.com/glorpus-work/iafetch/pkg/transport"
)

// DefaultChunkSize is the read size used when streaming a body.
const DefaultChunkSize = 32 * 1024

// ProgressFunc receives the running byte count after every chunk. total is 0
// when the server did not send a Content-Length.
type ProgressFunc func(downloaded, total int64)

// Downloader streams files. It is safe for concurrent use as long as each
// call writes to a different output path.
type Downloader struct {
	client    transport.Doer
	limiter   *ratelimit.Limiter
	bandwidth *ratelimit.BandwidthLimiter
	policy    retry.Policy
	chunkSize int
	logger    *slog.Logger
	retryOpts []retry.Option
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithChunkSize sets the streaming read size.
func WithChunkSize(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// WithBandwidth caps throughput across every download sharing b.
func WithBandwidth(b *ratelimit.BandwidthLimiter) Option {
	return func(d *Downloader) { d.bandwidth = b }
}

// WithPolicy sets the retry policy for the connection phase.
func WithPolicy(p retry.Policy) Option {
	return func(d *Downloader) { d.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Downloader) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRetryOptions passes options through to retry.Do.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(d *Downloader) { d.retryOpts = append(d.retryOpts, opts...) }
}

// NewDownloader creates a Downloader. limiter may be nil.
func NewDownloader(client transport.Doer, limiter *ratelimit.Limiter, opts ...Option) *Downloader {
	d := &Downloader{
		client:    client,
		limiter:   limiter,
		policy:    retry.DefaultPolicy(),
		chunkSize: DefaultChunkSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DownloadFile fetches url into outputPath and returns outputPath.
//
// Only the connection and header phase is retried. Once the body streams,
// any failure aborts the transfer. The body is written to a temporary file
// beside outputPath which is renamed into place on success and removed on
// every failure, so outputPath holds either the complete file or whatever
// was there before the call. Cancelling ctx is observed after every chunk
// and reported as ErrCancelled.
func (d *Downloader) DownloadFile(ctx context.Context, url, outputPath string, onProgress ProgressFunc) (string, error) {
	opts := append([]retry.Option{retry.WithLogger(d.logger)}, d.retryOpts...)
	resp, err := retry.Do(ctx, d.policy, func(ctx context.Context) (*http.Response, error) {
		if err := d.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		return d.client.Get(ctx, url, transport.AcceptDownload)
	}, opts...)
	if err != nil {
		if ctx.Err() != nil {
			return "", cancelled(url, ctx.Err())
		}
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	d.logger.Debug("download started", "url", url, "output", outputPath, "total", total)

	tmp, err := fsutil.CreateTempBeside(outputPath)
	if err != nil {
		return "", errors.Wrapf(err, "could not create temp file for %s", outputPath)
	}
	tmpPath := tmp.Name()
	discard := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	downloaded, err := d.stream(ctx, url, resp.Body, tmp, total, onProgress)
	if err != nil {
		discard()
		d.logger.Debug("download aborted", "url", url, "downloaded", downloaded, "error", err)
		return "", err
	}

	if err := tmp.Sync(); err != nil {
		discard()
		return "", errors.Wrap(err, "could not sync file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", errors.Wrap(err, "could not close file")
	}
	if err := os.Chmod(tmpPath, fsutil.FileModeDefault); err != nil {
		_ = os.Remove(tmpPath)
		return "", errors.Wrap(err, "could not set permissions")
	}
	if err := fsutil.Move(tmpPath, outputPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", errors.Wrap(err, "could not finalize file")
	}

	d.logger.Debug("download complete", "url", url, "output", outputPath, "bytes", downloaded)
	return outputPath, nil
}

func (d *Downloader) stream(ctx context.Context, url string, body io.Reader, w io.Writer, total int64, onProgress ProgressFunc) (int64, error) {
	buf := make([]byte, d.chunkSize)
	var downloaded int64
	for {
		if err := ctx.Err(); err != nil {
			return downloaded, cancelled(url, err)
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return downloaded, errors.Wrap(err, "could not write file")
			}
			downloaded += int64(n)
			if err := d.bandwidth.WaitN(ctx, n); err != nil {
				return downloaded, cancelled(url, err)
			}
			if onProgress != nil {
				onProgress(downloaded, total)
			}
			if err := ctx.Err(); err != nil {
				return downloaded, cancelled(url, err)
			}
		}

		if readErr == io.EOF {
			return downloaded, nil
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return downloaded, cancelled(url, ctx.Err())
			}
			return downloaded, transport.ClassifyNetworkError(url, readErr)
		}
	}
}

func cancelled(url string, cause error) error {
	if stderrors.Is(cause, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", errors.ErrCancelled, url, cause)
	}
	return fmt.Errorf("%w: %s", errors.ErrCancelled, url)
}
