package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mholt/archives"
	"github.com/stretchr/testify/require"
)

// buildArchive packs sourceDir into archivePath, choosing the container
// from its suffix. Entry names are relative to sourceDir.
func buildArchive(t *testing.T, sourceDir, archivePath string) {
	t.Helper()
	format, err := DetectFormat(archivePath)
	require.NoError(t, err)

	var archiver archives.Archiver
	switch format {
	case FormatZip:
		archiver = archives.Zip{}
	case FormatTar:
		archiver = archives.Tar{}
	case FormatTarGz, FormatTarBz2, FormatTarXz:
		archiver = archives.CompressedArchive{
			Compression: decompressorFor(format).(archives.Compression),
			Archival:    archives.Tar{},
		}
	default:
		t.Fatalf("no archiver for %s", format)
	}

	abs, err := filepath.Abs(sourceDir)
	require.NoError(t, err)
	files, err := archives.FilesFromDisk(context.Background(), nil, map[string]string{
		abs + string(os.PathSeparator): "",
	})
	require.NoError(t, err)

	out, err := os.Create(archivePath)
	require.NoError(t, err)
	defer out.Close()
	require.NoError(t, archiver.Archive(context.Background(), out, files))
}
