// Package cache keeps fetched item metadata on disk between runs, one JSON
// document per identifier, and reports on or cleans that directory.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/iafetch/pkg/errors"
	"github.com/glorpus-work/iafetch/pkg/fsutil"
	"github.com/glorpus-work/iafetch/pkg/metadata"
	"github.com/glorpus-work/iafetch/pkg/model"
)

// DefaultManager implements Manager and metadata.Store.
type DefaultManager struct {
	directory string
	now       func() time.Time
}

// NewManager creates a new cache manager rooted at directory.
func NewManager(directory string) *DefaultManager {
	return &DefaultManager{
		directory: directory,
		now:       time.Now,
	}
}

// NewDefaultManager creates a new cache manager with default directory.
func NewDefaultManager() (*DefaultManager, error) {
	cacheDir, err := fsutil.GetCacheDir()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get user cache directory")
	}

	if err := os.MkdirAll(cacheDir, CacheDirPerm); err != nil {
		return nil, errors.Wrapf(err, "failed to create cache directory")
	}

	return NewManager(cacheDir), nil
}

// Load returns the cached item if it exists and was written within maxAge.
// A zero maxAge accepts any age. Unreadable entries count as misses.
func (cm *DefaultManager) Load(identifier string, maxAge time.Duration) (*model.Metadata, bool) {
	path, err := cm.entryPath(identifier)
	if err != nil {
		return nil, false
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if maxAge > 0 && cm.now().Sub(info.ModTime()) > maxAge {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var meta model.Metadata
	if err := json.Unmarshal(data, &meta); err != nil || meta.Identifier != identifier {
		return nil, false
	}
	return &meta, true
}

// Save writes meta atomically, replacing any previous entry.
func (cm *DefaultManager) Save(meta *model.Metadata) error {
	path, err := cm.entryPath(meta.Identifier)
	if err != nil {
		return err
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return errors.Wrapf(err, "failed to encode metadata for %s", meta.Identifier)
	}

	tmp, err := fsutil.CreateTempBeside(path)
	if err != nil {
		return errors.Wrap(ErrCacheDirectory, err.Error())
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to write cache entry %s", path)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to write cache entry %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to replace cache entry %s", path)
	}
	return nil
}

// Remove deletes the entry for identifier. A missing entry is not an error.
func (cm *DefaultManager) Remove(identifier string) error {
	path, err := cm.entryPath(identifier)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove cache entry %s", path)
	}
	return nil
}

// Clean removes cached entries according to the specified options.
func (cm *DefaultManager) Clean(options CleanOptions) (*CleanResult, error) {
	result := &CleanResult{}
	cutoff := time.Time{}
	if options.OlderThan > 0 {
		cutoff = cm.now().Add(-options.OlderThan)
	}

	err := cm.walkEntries(func(path string, info os.FileInfo) error {
		if !cutoff.IsZero() && info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		result.TotalFreed += info.Size()
		result.FilesRemoved++
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(ErrCacheClean, err.Error())
	}
	return result, nil
}

// GetInfo returns information about the cache.
func (cm *DefaultManager) GetInfo() (*Info, error) {
	info := &Info{Directory: cm.directory}

	err := cm.walkEntries(func(_ string, fi os.FileInfo) error {
		info.TotalSize += fi.Size()
		info.MetadataFiles++
		mod := fi.ModTime()
		if info.Oldest.IsZero() || mod.Before(info.Oldest) {
			info.Oldest = mod
		}
		if mod.After(info.Newest) {
			info.Newest = mod
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(ErrCacheInfo, err.Error())
	}
	return info, nil
}

// GetDirectory returns the cache directory path.
func (cm *DefaultManager) GetDirectory() string {
	return cm.directory
}

// SetDirectory sets the cache directory path.
func (cm *DefaultManager) SetDirectory(dir string) error {
	if dir == "" {
		return ErrCacheDirectory
	}
	cm.directory = dir
	return nil
}

func (cm *DefaultManager) metadataDir() string {
	return filepath.Join(cm.directory, MetadataDir)
}

// entryPath maps an identifier to its file. The identifier charset has no
// separators, so validating it is enough to keep entries inside the cache.
func (cm *DefaultManager) entryPath(identifier string) (string, error) {
	if !metadata.ValidIdentifier(identifier) || identifier == "." || identifier == ".." {
		return "", errors.Wrapf(ErrCacheKey, "%q", identifier)
	}
	return filepath.Join(cm.metadataDir(), identifier+metadataExt), nil
}

// walkEntries visits every cache entry. Other files, including temp files
// from an interrupted Save, are ignored.
func (cm *DefaultManager) walkEntries(fn func(path string, info os.FileInfo) error) error {
	entries, err := os.ReadDir(cm.metadataDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), metadataExt) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if err := fn(filepath.Join(cm.metadataDir(), e.Name()), fi); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ Manager        = (*DefaultManager)(nil)
	_ metadata.Store = (*DefaultManager)(nil)
)
