package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataHelpers(t *testing.T) {
	meta := &Metadata{
		Identifier: "test_item",
		Files: []FileEntry{
			{Name: "a.txt", Size: SizePtr(100)},
			{Name: "b.PDF", Size: SizePtr(50)},
			{Name: "test_item_meta.xml"},
		},
	}

	f, ok := meta.File("b.PDF")
	require.True(t, ok)
	assert.Equal(t, "pdf", f.Extension())
	assert.True(t, f.HasSize())

	_, ok = meta.File("missing")
	assert.False(t, ok)

	assert.Equal(t, int64(150), meta.TotalSize())
	assert.Equal(t, int64(0), meta.Files[2].SizeOrZero())
	assert.False(t, meta.Files[2].HasSize())
}

func TestDownloadProgressLifecycle(t *testing.T) {
	p := NewDownloadProgress("a.txt")
	assert.Equal(t, StatusStarting, p.Status)
	assert.Equal(t, float64(-1), p.Percent())

	p.Update(5, 10)
	assert.Equal(t, StatusDownloading, p.Status)
	assert.InDelta(t, 50.0, p.Percent(), 0.001)

	p.Update(10, 10)
	p.Complete()
	assert.Equal(t, StatusComplete, p.Status)
	assert.True(t, p.Status.IsTerminal())

	// Updates after a terminal state are ignored.
	p.Update(1, 10)
	assert.Equal(t, int64(10), p.Downloaded)
}

func TestDownloadProgressUnknownTotal(t *testing.T) {
	p := NewDownloadProgress("stream.bin")
	p.Update(42, 0)
	p.Complete()
	assert.Equal(t, int64(42), p.Total)
}

func TestDownloadProgressFailAndCancel(t *testing.T) {
	p := NewDownloadProgress("x")
	boom := errors.New("boom")
	p.Fail(boom)
	assert.Equal(t, StatusError, p.Status)
	assert.Equal(t, boom, p.Err)

	c := NewDownloadProgress("y")
	c.Cancel()
	assert.True(t, c.Status.IsTerminal())
	assert.False(t, StatusPaused.IsTerminal())
}
