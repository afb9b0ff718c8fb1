// Package model provides the data structures shared by the iafetch packages:
// archive.org items, their files, and the progress of a single transfer.
package model

import (
	"path"
	"strings"
)

// Source classifications archive.org assigns to files.
const (
	SourceOriginal   = "original"
	SourceDerivative = "derivative"
	SourceMetadata   = "metadata"
)

// Metadata represents one archive.org item. It is built fresh by every
// successful fetch and never updated in place.
type Metadata struct {
	Identifier string      `json:"identifier"`
	Files      []FileEntry `json:"files"`

	// Informational fields, zero when the server omits them.
	Server     string `json:"server,omitempty"`
	Dir        string `json:"dir,omitempty"`
	Created    int64  `json:"created,omitempty"`
	ItemSize   int64  `json:"item_size,omitempty"`
	FilesCount int    `json:"files_count,omitempty"`
}

// FileEntry is one downloadable file within an item.
type FileEntry struct {
	Name   string `json:"name"`
	Size   *int64 `json:"size,omitempty"`
	Format string `json:"format,omitempty"`
	Source string `json:"source,omitempty"`
	MD5    string `json:"md5,omitempty"`
	SHA1   string `json:"sha1,omitempty"`
	CRC32  string `json:"crc32,omitempty"`
	Mtime  int64  `json:"mtime,omitempty"`
}

// File returns the entry with the given name.
func (m *Metadata) File(name string) (FileEntry, bool) {
	for _, f := range m.Files {
		if f.Name == name {
			return f, true
		}
	}
	return FileEntry{}, false
}

// TotalSize sums the sizes of all files with a known size.
func (m *Metadata) TotalSize() int64 {
	var total int64
	for _, f := range m.Files {
		total += f.SizeOrZero()
	}
	return total
}

// SizeOrZero returns the declared size, or 0 when unknown.
func (f FileEntry) SizeOrZero() int64 {
	if f.Size == nil {
		return 0
	}
	return *f.Size
}

// HasSize reports whether the server declared a size for the file.
func (f FileEntry) HasSize() bool {
	return f.Size != nil
}

// Extension returns the lower-cased extension of the file name without the dot.
func (f FileEntry) Extension() string {
	ext := path.Ext(f.Name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// SizePtr is a helper for building entries with a known size.
func SizePtr(n int64) *int64 {
	return &n
}
