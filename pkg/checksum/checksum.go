// Package checksum computes file digests and compares them with the values
// archive.org publishes for each file.
package checksum

import (
	"crypto/md5"  //nolint:gosec // archive.org publishes md5 digests
	"crypto/sha1" //nolint:gosec // archive.org publishes sha1 digests
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/glorpus-work/iafetch/pkg/errors"
	"github.com/glorpus-work/iafetch/pkg/model"
)

// Algorithm is a supported digest.
type Algorithm string

// Supported algorithms.
const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
)

// Algorithms lists the supported algorithms, strongest first.
func Algorithms() []Algorithm {
	return []Algorithm{SHA256, SHA1, MD5}
}

// ParseAlgorithm maps a name such as "SHA1" or "sha-256" to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "")
	switch Algorithm(n) {
	case MD5, SHA1, SHA256:
		return Algorithm(n), nil
	}
	return "", fmt.Errorf("%w: %q", errors.ErrUnsupportedHashAlgorithm, name)
}

func (a Algorithm) String() string { return string(a) }

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case MD5:
		return md5.New(), nil //nolint:gosec
	case SHA1:
		return sha1.New(), nil //nolint:gosec
	case SHA256:
		return sha256.New(), nil
	}
	return nil, fmt.Errorf("%w: %q", errors.ErrUnsupportedHashAlgorithm, string(a))
}

// Compute returns the lower-case hex digest of the file at path.
func Compute(path string, algo Algorithm) (string, error) {
	h, err := algo.newHash()
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", errors.ErrFileNotFound, path)
		}
		return "", errors.Wrapf(err, "failed to open %s", path)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Validate reports whether the file's digest equals expected, compared
// case-insensitively. An unsupported hashType or a missing file is an error,
// never a false result.
func Validate(path, expected, hashType string) (bool, error) {
	algo, err := ParseAlgorithm(hashType)
	if err != nil {
		return false, err
	}
	got, err := Compute(path, algo)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(got, strings.TrimSpace(expected)), nil
}

// Verify is Validate with a mismatch reported as ErrChecksumMismatch.
func Verify(path, expected string, algo Algorithm) error {
	got, err := Compute(path, algo)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, strings.TrimSpace(expected)) {
		return fmt.Errorf("%w: %s %s: expected %s, got %s", errors.ErrChecksumMismatch, algo, path, expected, got)
	}
	return nil
}

// Expected is a digest published for a file.
type Expected struct {
	Algorithm Algorithm
	Digest    string
}

// BestForEntry picks the strongest digest archive.org listed for the file.
func BestForEntry(f model.FileEntry) (Expected, bool) {
	switch {
	case f.SHA1 != "":
		return Expected{Algorithm: SHA1, Digest: f.SHA1}, true
	case f.MD5 != "":
		return Expected{Algorithm: MD5, Digest: f.MD5}, true
	}
	return Expected{}, false
}
