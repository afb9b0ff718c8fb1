package download

import (
	"context"

	"github.com/glorpus-work/iafetch/pkg/checksum"
	"github.com/glorpus-work/iafetch/pkg/model"
)

// FileDownloader streams one URL to one path.
type FileDownloader interface {
	DownloadFile(ctx context.Context, url, outputPath string, onProgress ProgressFunc) (string, error)
}

// Item represents one remote file to download.
type Item struct {
	ID   string // stable identifier, unique within a batch; usually the file name
	URL  string
	Path string // destination path
	// Checksum is verified after download when Options.Verify is set.
	Checksum *checksum.Expected
	// Size is the size archive.org declared, 0 when unknown.
	Size int64
	// Mtime is the remote modification time in Unix seconds. A downloaded
	// file gets it as its mtime; 0 leaves the local time alone.
	Mtime int64
}

// Options control a batch.
type Options struct {
	// Concurrency caps parallel transfers; <= 0 uses DefaultConcurrency.
	Concurrency int
	Verify      bool
	// SkipExisting reuses a file already at Item.Path when it matches the
	// item's checksum, or its size when no checksum is known.
	SkipExisting bool
	// OnProgress receives a snapshot after every state change of an item.
	// Calls for different items may arrive concurrently.
	OnProgress func(id string, p model.DownloadProgress)
}

// Result is the outcome for one item.
type Result struct {
	ID      string
	Path    string
	Bytes   int64
	Skipped bool
	Err     error
}
