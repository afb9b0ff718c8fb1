package checksum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/iafetch/pkg/errors"
	"github.com/glorpus-work/iafetch/pkg/model"
)

// Digests of "hello world".
const (
	helloMD5    = "5eb63bbbe01eeed093cb22bb8f5acdc3"
	helloSHA1   = "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"
	helloSHA256 = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
)

func writeHello(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))
	return path
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{in: "md5", want: MD5},
		{in: "MD5", want: MD5},
		{in: "Sha1", want: SHA1},
		{in: "SHA-256", want: SHA256},
		{in: " sha256 ", want: SHA256},
		{in: "crc32", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrUnsupportedHashAlgorithm)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	path := writeHello(t)

	tests := []struct {
		name     string
		expected string
		hashType string
		want     bool
	}{
		{name: "md5 match", expected: helloMD5, hashType: "md5", want: true},
		{name: "sha1 match", expected: helloSHA1, hashType: "sha1", want: true},
		{name: "sha256 match", expected: helloSHA256, hashType: "sha256", want: true},
		{name: "upper-case hex and type", expected: "5EB63BBBE01EEED093CB22BB8F5ACDC3", hashType: "MD5", want: true},
		{name: "mismatch", expected: helloMD5, hashType: "sha1", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := Validate(path, tt.expected, tt.hashType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	path := writeHello(t)

	ok, err := Validate(path, helloMD5, "crc32")
	assert.ErrorIs(t, err, errors.ErrUnsupportedHashAlgorithm)
	assert.False(t, ok)

	ok, err = Validate(filepath.Join(t.TempDir(), "missing"), helloMD5, "md5")
	assert.ErrorIs(t, err, errors.ErrFileNotFound)
	assert.False(t, ok)
}

func TestVerify(t *testing.T) {
	path := writeHello(t)
	assert.NoError(t, Verify(path, helloSHA1, SHA1))
	assert.ErrorIs(t, Verify(path, helloMD5, SHA1), errors.ErrChecksumMismatch)
}

func TestBestForEntry(t *testing.T) {
	e, ok := BestForEntry(model.FileEntry{Name: "a", MD5: "m", SHA1: "s"})
	require.True(t, ok)
	assert.Equal(t, Expected{Algorithm: SHA1, Digest: "s"}, e)

	e, ok = BestForEntry(model.FileEntry{Name: "a", MD5: "m", CRC32: "c"})
	require.True(t, ok)
	assert.Equal(t, MD5, e.Algorithm)

	_, ok = BestForEntry(model.FileEntry{Name: "a", CRC32: "c"})
	assert.False(t, ok)
}
