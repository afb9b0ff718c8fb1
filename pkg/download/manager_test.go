package download

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/iafetch/pkg/checksum"
	"github.com/glorpus-work/iafetch/pkg/errors"
	"github.com/glorpus-work/iafetch/pkg/model"
)

// fakeDownloader writes the configured body for each URL.
type fakeDownloader struct {
	bodies map[string]string
	errs   map[string]error
	delay  time.Duration

	calls     atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakeDownloader) DownloadFile(_ context.Context, url, out string, onProgress ProgressFunc) (string, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(f.delay)

	if err := f.errs[url]; err != nil {
		return "", err
	}
	body := f.bodies[url]
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
		return "", err
	}
	if onProgress != nil {
		onProgress(int64(len(body)), 0)
	}
	return out, nil
}

// sha1 of "hello world".
const helloSHA1 = "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"

func TestManager_FetchAll(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeDownloader{bodies: map[string]string{"u/a": "hello world", "u/b": "bee"}}
	m := NewManager(fake, nil)

	var mu sync.Mutex
	final := map[string]model.DownloadProgress{}
	items := []Item{
		{ID: "a", URL: "u/a", Path: filepath.Join(dir, "a"), Size: 11, Checksum: &checksum.Expected{Algorithm: checksum.SHA1, Digest: helloSHA1}},
		{ID: "b", URL: "u/b", Path: filepath.Join(dir, "b")},
	}
	results, err := m.FetchAll(context.Background(), items, Options{Verify: true, OnProgress: func(id string, p model.DownloadProgress) {
		mu.Lock()
		final[id] = p
		mu.Unlock()
	}})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, items[0].Path, results[0].Path)
	assert.Equal(t, int64(11), results[0].Bytes)
	assert.Equal(t, "b", results[1].ID)

	assert.Equal(t, model.StatusComplete, final["a"].Status)
	assert.Equal(t, int64(11), final["a"].Total)
	assert.Equal(t, model.StatusComplete, final["b"].Status)
	assert.Equal(t, int64(3), final["b"].Total)
}

func TestManager_AppliesRemoteMtime(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeDownloader{bodies: map[string]string{"u/a": "a", "u/b": "b"}}
	items := []Item{
		{ID: "a", URL: "u/a", Path: filepath.Join(dir, "a"), Mtime: 1699999999},
		{ID: "b", URL: "u/b", Path: filepath.Join(dir, "b")},
	}

	before := time.Now().Add(-time.Minute)
	_, err := NewManager(fake, nil).FetchAll(context.Background(), items, Options{})
	require.NoError(t, err)

	st, err := os.Stat(items[0].Path)
	require.NoError(t, err)
	assert.Equal(t, int64(1699999999), st.ModTime().Unix())

	st, err = os.Stat(items[1].Path)
	require.NoError(t, err)
	assert.True(t, st.ModTime().After(before), "items without an mtime keep the local write time")
}

func TestManager_DeduplicatesByPath(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeDownloader{bodies: map[string]string{"u/a": "x"}}
	m := NewManager(fake, nil)

	path := filepath.Join(dir, "same")
	results, err := m.FetchAll(context.Background(), []Item{
		{ID: "first", URL: "u/a", Path: path},
		{ID: "second", URL: "u/a", Path: path},
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.calls.Load())
	assert.Equal(t, "first", results[0].ID)
	assert.Equal(t, "second", results[1].ID)
	assert.Equal(t, path, results[1].Path)
}

func TestManager_ConcurrencyCap(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeDownloader{bodies: map[string]string{}, delay: 20 * time.Millisecond}
	var items []Item
	for _, name := range []string{"1", "2", "3", "4", "5", "6", "7", "8"} {
		fake.bodies["u/"+name] = name
		items = append(items, Item{ID: name, URL: "u/" + name, Path: filepath.Join(dir, name)})
	}

	_, err := NewManager(fake, nil).FetchAll(context.Background(), items, Options{Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, int32(8), fake.calls.Load())
	assert.LessOrEqual(t, fake.maxActive.Load(), int32(2))
}

func TestManager_ChecksumMismatchRemovesFile(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeDownloader{bodies: map[string]string{"u/a": "tampered"}}
	item := Item{ID: "a", URL: "u/a", Path: filepath.Join(dir, "a"), Checksum: &checksum.Expected{Algorithm: checksum.SHA1, Digest: helloSHA1}}

	results, err := NewManager(fake, nil).FetchAll(context.Background(), []Item{item}, Options{Verify: true})
	assert.ErrorIs(t, err, errors.ErrChecksumMismatch)
	assert.ErrorIs(t, results[0].Err, errors.ErrChecksumMismatch)
	assert.Empty(t, results[0].Path)
	assert.NoFileExists(t, item.Path)
}

func TestManager_ReportsFailuresPerItem(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeDownloader{
		bodies: map[string]string{"u/ok": "fine"},
		errs:   map[string]error{"u/gone": errors.ErrNotFound, "u/stop": errors.ErrCancelled},
	}
	var mu sync.Mutex
	status := map[string]model.Status{}
	results, err := NewManager(fake, nil).FetchAll(context.Background(), []Item{
		{ID: "ok", URL: "u/ok", Path: filepath.Join(dir, "ok")},
		{ID: "gone", URL: "u/gone", Path: filepath.Join(dir, "gone")},
		{ID: "stop", URL: "u/stop", Path: filepath.Join(dir, "stop")},
	}, Options{Concurrency: 1, OnProgress: func(id string, p model.DownloadProgress) {
		mu.Lock()
		status[id] = p.Status
		mu.Unlock()
	}})

	require.Error(t, err)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, errors.ErrNotFound)
	assert.ErrorIs(t, results[2].Err, errors.ErrCancelled)
	assert.Equal(t, model.StatusComplete, status["ok"])
	assert.Equal(t, model.StatusError, status["gone"])
	assert.Equal(t, model.StatusCancelled, status["stop"])
}

func TestManager_SkipExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "have")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	fake := &fakeDownloader{bodies: map[string]string{"u/have": "hello world"}}
	m := NewManager(fake, nil)

	res := m.Fetch(context.Background(), Item{ID: "have", URL: "u/have", Path: path, Checksum: &checksum.Expected{Algorithm: checksum.SHA1, Digest: helloSHA1}}, Options{SkipExisting: true})
	require.NoError(t, res.Err)
	assert.True(t, res.Skipped)
	assert.Equal(t, int32(0), fake.calls.Load())

	// Size mismatch without a checksum forces a download.
	res = m.Fetch(context.Background(), Item{ID: "have", URL: "u/have", Path: path, Size: 99}, Options{SkipExisting: true})
	require.NoError(t, res.Err)
	assert.False(t, res.Skipped)
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestManager_InvalidItems(t *testing.T) {
	_, err := NewManager(&fakeDownloader{}, nil).FetchAll(context.Background(), []Item{{ID: "x"}}, Options{})
	assert.ErrorIs(t, err, errors.ErrInvalidPath)

	results, err := NewManager(&fakeDownloader{}, nil).FetchAll(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}
