package cache

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

// CacheOperation renders cache management results for the command line.
type CacheOperation struct {
	manager Manager
	logger  *slog.Logger
}

// NewCacheOperation creates a new cache operation instance.
func NewCacheOperation(manager Manager, logger *slog.Logger) *CacheOperation {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CacheOperation{
		manager: manager,
		logger:  logger,
	}
}

// Clean cleans the cache and returns a summary line.
func (op *CacheOperation) Clean(olderThan time.Duration) (string, error) {
	op.logger.Debug("Cleaning cache", "directory", op.manager.GetDirectory(), "older_than", olderThan)

	result, err := op.manager.Clean(CleanOptions{OlderThan: olderThan})
	if err != nil {
		return "", fmt.Errorf("failed to clean cache: %w", err)
	}

	if result.FilesRemoved == 0 {
		return "No files were removed from the cache.", nil
	}
	return fmt.Sprintf("Removed %d cached item(s), freed %s.",
		result.FilesRemoved, humanize.Bytes(uint64(result.TotalFreed))), nil
}

// GetInfo returns information about the cache.
func (op *CacheOperation) GetInfo() (string, error) {
	info, err := op.manager.GetInfo()
	if err != nil {
		return "", fmt.Errorf("failed to get cache info: %w", err)
	}

	age := func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return humanize.Time(t)
	}

	return fmt.Sprintf(`Cache Information:
  Directory:  %s
  Items:      %d
  Total Size: %s
  Oldest:     %s
  Newest:     %s`,
		info.Directory,
		info.MetadataFiles,
		humanize.Bytes(uint64(info.TotalSize)),
		age(info.Oldest),
		age(info.Newest),
	), nil
}

// GetDirectory returns the cache directory path.
func (op *CacheOperation) GetDirectory() string {
	return op.manager.GetDirectory()
}
