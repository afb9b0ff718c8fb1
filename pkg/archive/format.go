package archive

import (
	"fmt"
	"strings"

	"github.com/glorpus-work/iafetch/pkg/errors"
	"github.com/glorpus-work/iafetch/pkg/fsutil"
)

// Format is an archive or compression format recognised by file name.
type Format int

// Supported formats.
const (
	FormatUnknown Format = iota
	FormatTarGz
	FormatTarBz2
	FormatTarXz
	FormatTar
	FormatZip
	FormatGz
	FormatBz2
	FormatXz
)

var formatNames = map[Format]string{
	FormatTarGz:  "tar.gz",
	FormatTarBz2: "tar.bz2",
	FormatTarXz:  "tar.xz",
	FormatTar:    "tar",
	FormatZip:    "zip",
	FormatGz:     "gz",
	FormatBz2:    "bz2",
	FormatXz:     "xz",
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return "unknown"
}

// SingleFile reports whether the format compresses one stream rather than
// holding a tree of entries.
func (f Format) SingleFile() bool {
	return f == FormatGz || f == FormatBz2 || f == FormatXz
}

// suffixes are checked in order; compound tar suffixes must precede their
// single-stream counterparts.
var suffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tgz", FormatTarGz},
	{".tar.bz2", FormatTarBz2},
	{".tbz2", FormatTarBz2},
	{".tar.xz", FormatTarXz},
	{".txz", FormatTarXz},
	{".tar", FormatTar},
	{".zip", FormatZip},
	{".gz", FormatGz},
	{".bz2", FormatBz2},
	{".xz", FormatXz},
}

// DetectFormat identifies the format of name from its suffix alone,
// ignoring case.
func DetectFormat(name string) (Format, error) {
	lower := strings.ToLower(fsutil.BaseName(name))
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format, nil
		}
	}
	return FormatUnknown, fmt.Errorf("%w: %s", errors.ErrUnsupportedFormat, name)
}

// IsArchive reports whether name has a recognised suffix.
func IsArchive(name string) bool {
	_, err := DetectFormat(name)
	return err == nil
}

// singleOutputName strips the compression suffix from the final segment of
// archivePath.
func singleOutputName(archivePath string, f Format) string {
	base := fsutil.BaseName(archivePath)
	ext := "." + f.String()
	if len(base) > len(ext) && strings.EqualFold(base[len(base)-len(ext):], ext) {
		return base[:len(base)-len(ext)]
	}
	return base + ".out"
}
