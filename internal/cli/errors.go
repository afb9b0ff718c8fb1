package cli

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/glorpus-work/iafetch/pkg/errors"
)

var userMessages = []struct {
	kind error
	msg  string
}{
	{errors.ErrInvalidIdentifier, "That does not look like an archive.org identifier or item URL."},
	{errors.ErrNotFound, "The item or file does not exist on archive.org."},
	{errors.ErrForbidden, "Access denied. The item may be dark or restricted; configure IA-S3 keys if you have access."},
	{errors.ErrRateLimited, "archive.org is throttling requests. Wait a while and try again."},
	{errors.ErrServerError, "archive.org is having trouble right now. Try again later."},
	{errors.ErrTimeout, "The request timed out. Check your connection or raise settings.http_timeout."},
	{errors.ErrNetworkFailure, "Could not reach archive.org. Check your network connection."},
	{errors.ErrClientError, "archive.org rejected the request."},
	{errors.ErrParse, "archive.org returned a response iafetch could not understand."},
	{errors.ErrCancelled, "Download cancelled."},
	{errors.ErrChecksumMismatch, "A downloaded file failed checksum verification and was removed."},
	{errors.ErrUnsupportedHashAlgorithm, "Unsupported hash type. Use md5, sha1 or sha256."},
	{errors.ErrFileNotFound, "The file does not exist."},
	{errors.ErrUnsupportedFormat, "Unsupported archive format. Supported: zip, tar, tar.gz, tar.bz2, tar.xz, gz, bz2, xz."},
	{errors.ErrDecompression, "The archive could not be extracted; it may be corrupt."},
	{errors.ErrConfigValidation, "The configuration file is invalid."},
	{errors.ErrConfigParse, "The configuration file is not valid YAML."},
	{errors.ErrConfigVersion, "The configuration file was written by an incompatible iafetch version."},
}

// UserMessage turns an error into a one line explanation for people, with
// the technical detail appended.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if stderrors.Is(err, context.Canceled) {
		return "Interrupted."
	}
	for _, m := range userMessages {
		if stderrors.Is(err, m.kind) {
			return fmt.Sprintf("%s\n  (%v)", m.msg, err)
		}
	}
	return err.Error()
}
