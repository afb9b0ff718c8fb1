// Package archive extracts downloaded archives. Formats are detected from the
// file name; tar, zip and the gzip, bzip2 and xz compressed forms are
// supported.
package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mholt/archives"

	"github.com/glorpus-work/iafetch/pkg/errors"
	"github.com/glorpus-work/iafetch/pkg/fsutil"
)

// Decompressor extracts archives into a directory.
type Decompressor struct {
	logger *slog.Logger
}

// NewDecompressor creates a Decompressor. logger may be nil.
func NewDecompressor(logger *slog.Logger) *Decompressor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Decompressor{logger: logger}
}

// Decompress extracts archivePath into outputDir, creating it if needed, and
// returns the paths of the extracted files (directories are not listed).
// Directory structure inside tar and zip archives is preserved. Entries
// whose names would land outside outputDir fail the extraction. Files
// written before a failure are left in place.
func Decompress(ctx context.Context, archivePath, outputDir string) ([]string, error) {
	return NewDecompressor(nil).Decompress(ctx, archivePath, outputDir)
}

// Decompress is the method form of the package level Decompress.
func (d *Decompressor) Decompress(ctx context.Context, archivePath, outputDir string) ([]string, error) {
	format, err := DetectFormat(archivePath)
	if err != nil {
		return nil, err
	}

	if err := fsutil.EnsureDir(outputDir); err != nil {
		return nil, fmt.Errorf("%w: failed to create output directory: %w", errors.ErrDecompression, err)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrFileNotFound, archivePath)
		}
		return nil, fmt.Errorf("%w: %w", errors.ErrDecompression, err)
	}
	defer func() { _ = f.Close() }()

	d.logger.Debug("decompressing", "archive", archivePath, "format", format.String(), "output", outputDir)

	var paths []string
	switch {
	case format.SingleFile():
		var path string
		path, err = d.decompressSingle(f, format, archivePath, outputDir)
		if err == nil {
			paths = []string{path}
		}
	case format == FormatZip:
		paths, err = d.extract(ctx, archives.Zip{}, f, outputDir)
	default:
		paths, err = d.extractTar(ctx, f, format, outputDir)
	}
	if err != nil {
		return paths, fmt.Errorf("%w: %s: %w", errors.ErrDecompression, archivePath, err)
	}
	return paths, nil
}

func decompressorFor(format Format) archives.Decompressor {
	switch format {
	case FormatGz, FormatTarGz:
		return archives.Gz{}
	case FormatBz2, FormatTarBz2:
		return archives.Bz2{}
	case FormatXz, FormatTarXz:
		return archives.Xz{}
	}
	return nil
}

func (d *Decompressor) extractTar(ctx context.Context, r io.Reader, format Format, outputDir string) ([]string, error) {
	if dec := decompressorFor(format); dec != nil {
		rc, err := dec.OpenReader(r)
		if err != nil {
			return nil, err
		}
		defer func() { _ = rc.Close() }()
		r = rc
	}
	return d.extract(ctx, archives.Tar{}, r, outputDir)
}

func (d *Decompressor) decompressSingle(r io.Reader, format Format, archivePath, outputDir string) (string, error) {
	rc, err := decompressorFor(format).OpenReader(r)
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	target := filepath.Join(outputDir, singleOutputName(archivePath, format))
	if err := writeFile(target, rc, fsutil.FileModeDefault); err != nil {
		_ = os.Remove(target)
		return "", err
	}
	return target, nil
}

func (d *Decompressor) extract(ctx context.Context, ex archives.Extractor, r io.Reader, outputDir string) ([]string, error) {
	var paths []string
	err := ex.Extract(ctx, r, func(ctx context.Context, info archives.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := fsutil.SafeJoin(outputDir, info.NameInArchive)
		if err != nil {
			return err
		}
		if target == filepath.Clean(outputDir) {
			return nil
		}

		switch {
		case info.IsDir():
			return fsutil.EnsureDir(target)
		case !info.Mode().IsRegular():
			d.logger.Debug("skipping non-regular entry", "name", info.NameInArchive, "mode", info.Mode().String())
			return nil
		}

		src, err := info.Open()
		if err != nil {
			return fmt.Errorf("failed to open entry %s: %w", info.NameInArchive, err)
		}
		defer func() { _ = src.Close() }()

		perm := info.Mode().Perm()
		if perm == 0 {
			perm = fsutil.FileModeDefault
		}
		if err := writeFile(target, src, perm); err != nil {
			return fmt.Errorf("failed to write entry %s: %w", info.NameInArchive, err)
		}
		if mt := info.ModTime(); !mt.IsZero() {
			_ = os.Chtimes(target, mt, mt)
		}
		paths = append(paths, target)
		return nil
	})
	return paths, err
}

func writeFile(target string, src io.Reader, perm fs.FileMode) error {
	if err := fsutil.EnsureFileDir(target); err != nil {
		return err
	}
	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}
