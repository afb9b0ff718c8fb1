// Package filter narrows an item's file list by format, size and source.
package filter

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/glorpus-work/iafetch/pkg/model"
)

// Criteria selects files. Zero values do not restrict.
type Criteria struct {
	// IncludeFormats keeps only files whose format label or extension
	// matches one of the entries, ignoring case and a leading dot.
	IncludeFormats []string
	// ExcludeFormats drops files matching any entry.
	ExcludeFormats []string
	// MaxSizeBytes drops files larger than the limit when positive. Files
	// with no declared size are kept.
	MaxSizeBytes int64
	// SourceTypes keeps only files from the listed sources, e.g. "original".
	SourceTypes []string
}

// IsEmpty reports whether c selects every file.
func (c Criteria) IsEmpty() bool {
	return len(c.IncludeFormats) == 0 && len(c.ExcludeFormats) == 0 && c.MaxSizeBytes <= 0 && len(c.SourceTypes) == 0
}

// Filter returns the files of meta matching c, preserving their order.
func Filter(meta *model.Metadata, c Criteria) []model.FileEntry {
	if meta == nil {
		return nil
	}
	include := normalize(c.IncludeFormats)
	exclude := normalize(c.ExcludeFormats)
	sources := normalize(c.SourceTypes)

	out := make([]model.FileEntry, 0, len(meta.Files))
	for _, f := range meta.Files {
		if len(include) > 0 && !matchesFormat(f, include) {
			continue
		}
		if len(exclude) > 0 && matchesFormat(f, exclude) {
			continue
		}
		if c.MaxSizeBytes > 0 && f.HasSize() && f.SizeOrZero() > c.MaxSizeBytes {
			continue
		}
		if len(sources) > 0 && !sources[strings.ToLower(f.Source)] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Names returns the names of files.
func Names(files []model.FileEntry) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}

func normalize(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(v)), ".")
		if v != "" {
			set[v] = true
		}
	}
	return set
}

func matchesFormat(f model.FileEntry, set map[string]bool) bool {
	if f.Format != "" && set[strings.ToLower(f.Format)] {
		return true
	}
	if ext := f.Extension(); ext != "" && set[ext] {
		return true
	}
	// Compound extensions such as tar.gz.
	lower := strings.ToLower(f.Name)
	for v := range set {
		if strings.Contains(v, ".") && strings.HasSuffix(lower, "."+v) {
			return true
		}
	}
	return false
}

// ParseSize parses sizes such as "100MB" (SI), "100MiB" (IEC) or "4096"
// (bytes).
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > 1<<62 {
		return 0, fmt.Errorf("invalid size %q: too large", s)
	}
	return int64(n), nil
}

// FormatSize renders n bytes for humans, e.g. "1.2 MB".
func FormatSize(n int64) string {
	if n < 0 {
		return "unknown"
	}
	return humanize.Bytes(uint64(n))
}
