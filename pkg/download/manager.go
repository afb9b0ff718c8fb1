package download

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/glorpus-work/iafetch/pkg/checksum"
	"github.com/glorpus-work/iafetch/pkg/errors"
	"github.com/glorpus-work/iafetch/pkg/model"
)

// DefaultConcurrency is used when a batch does not set one.
const DefaultConcurrency = 3

// Manager downloads batches of items through a bounded worker pool. Items
// sharing an output path are downloaded once.
type Manager struct {
	downloader FileDownloader
	logger     *slog.Logger
}

// NewManager creates a Manager. logger may be nil.
func NewManager(downloader FileDownloader, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{downloader: downloader, logger: logger}
}

// FetchAll downloads every item and returns one Result per item, in input
// order. The error is the first failure encountered, nil if all succeeded.
func (m *Manager) FetchAll(ctx context.Context, items []Item, opts Options) ([]Result, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	byPath, order, err := buildPathIndex(items)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(items))
	var firstErr error
	var mu sync.Mutex

	tasks := make(chan string)
	var wg sync.WaitGroup

	for w := 0; w < min(opts.Concurrency, len(order)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range tasks {
				idx := byPath[path]
				res := m.fetchOne(ctx, items[idx[0]], opts)
				mu.Lock()
				if res.Err != nil && firstErr == nil {
					firstErr = res.Err
				}
				for _, i := range idx {
					r := res
					r.ID = items[i].ID
					results[i] = r
				}
				mu.Unlock()
			}
		}()
	}

	for _, path := range order {
		tasks <- path
	}
	close(tasks)
	wg.Wait()

	return results, firstErr
}

// Fetch downloads a single item.
func (m *Manager) Fetch(ctx context.Context, item Item, opts Options) Result {
	return m.fetchOne(ctx, item, opts)
}

func buildPathIndex(items []Item) (map[string][]int, []string, error) {
	byPath := make(map[string][]int)
	var order []string
	for i, it := range items {
		if it.URL == "" || it.Path == "" {
			return nil, nil, fmt.Errorf("item %d (%s) needs both url and path: %w", i, it.ID, errors.ErrInvalidPath)
		}
		if _, seen := byPath[it.Path]; !seen {
			order = append(order, it.Path)
		}
		byPath[it.Path] = append(byPath[it.Path], i)
	}
	return byPath, order, nil
}

func (m *Manager) fetchOne(ctx context.Context, item Item, opts Options) Result {
	progress := model.NewDownloadProgress(item.ID)
	progress.Total = item.Size
	report := func() {
		if opts.OnProgress != nil {
			opts.OnProgress(item.ID, *progress)
		}
	}
	report()

	if opts.SkipExisting {
		if size, ok := reusable(item); ok {
			progress.Update(size, size)
			progress.Complete()
			report()
			m.logger.Debug("reusing existing file", "path", item.Path)
			return Result{ID: item.ID, Path: item.Path, Bytes: size, Skipped: true}
		}
	}

	path, err := m.downloader.DownloadFile(ctx, item.URL, item.Path, func(downloaded, total int64) {
		if total == 0 {
			total = item.Size
		}
		progress.Update(downloaded, total)
		report()
	})
	if err == nil && opts.Verify && item.Checksum != nil {
		if err = checksum.Verify(path, item.Checksum.Digest, item.Checksum.Algorithm); err != nil {
			_ = os.Remove(path)
		}
	}
	if err == nil && item.Mtime > 0 {
		mtime := time.Unix(item.Mtime, 0)
		if cherr := os.Chtimes(path, mtime, mtime); cherr != nil {
			m.logger.Warn("failed to set modification time", "path", path, "error", cherr)
		}
	}

	switch {
	case err == nil:
		progress.Complete()
	case stderrors.Is(err, errors.ErrCancelled):
		progress.Cancel()
	default:
		progress.Fail(err)
	}
	report()

	if err != nil {
		return Result{ID: item.ID, Err: err, Bytes: progress.Downloaded}
	}
	return Result{ID: item.ID, Path: path, Bytes: progress.Downloaded}
}

func reusable(item Item) (int64, bool) {
	st, err := os.Stat(item.Path)
	if err != nil || !st.Mode().IsRegular() {
		return 0, false
	}
	if item.Checksum != nil {
		if err := checksum.Verify(item.Path, item.Checksum.Digest, item.Checksum.Algorithm); err != nil {
			return 0, false
		}
		return st.Size(), true
	}
	if item.Size > 0 && st.Size() == item.Size {
		return st.Size(), true
	}
	return 0, false
}
