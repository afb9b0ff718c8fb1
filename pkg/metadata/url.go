package metadata

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/glorpus-work/iafetch/pkg/errors"
)

// DefaultBaseURL is the archive.org API root.
const DefaultBaseURL = "https://archive.org"

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidIdentifier reports whether id uses only the archive.org identifier
// charset. "." and ".." are rejected since identifiers become directory names.
func ValidIdentifier(id string) bool {
	return id != "." && id != ".." && identifierPattern.MatchString(id)
}

// Resolved is the outcome of normalizing user input.
type Resolved struct {
	Identifier  string
	MetadataURL string
}

// ResolveURL turns an identifier or archive.org URL into the metadata endpoint
// for that item. Details and download URLs are rewritten to the metadata form
// on the same host; metadata URLs are kept as they are; any other URL
// contributes its last path segment as identifier. Bare identifiers are
// resolved against baseURL.
func ResolveURL(baseURL, input string) (Resolved, error) {
	input = strings.TrimSpace(input)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		if !ValidIdentifier(input) {
			return Resolved{}, fmt.Errorf("%w: %q", errors.ErrInvalidIdentifier, input)
		}
		return Resolved{Identifier: input, MetadataURL: metadataURL(baseURL, input)}, nil
	}

	u, err := url.Parse(input)
	if err != nil || u.Host == "" {
		return Resolved{}, fmt.Errorf("%w: %q", errors.ErrInvalidIdentifier, input)
	}
	segments := pathSegments(u.Path)
	if len(segments) == 0 {
		return Resolved{}, fmt.Errorf("%w: no identifier in %q", errors.ErrInvalidIdentifier, input)
	}

	origin := u.Scheme + "://" + u.Host
	switch {
	case len(segments) >= 2 && segments[0] == "metadata":
		if !ValidIdentifier(segments[1]) {
			return Resolved{}, fmt.Errorf("%w: %q", errors.ErrInvalidIdentifier, segments[1])
		}
		return Resolved{Identifier: segments[1], MetadataURL: input}, nil
	case len(segments) >= 2 && (segments[0] == "details" || segments[0] == "download"):
		id := segments[1]
		if !ValidIdentifier(id) {
			return Resolved{}, fmt.Errorf("%w: %q", errors.ErrInvalidIdentifier, id)
		}
		return Resolved{Identifier: id, MetadataURL: metadataURL(origin, id)}, nil
	default:
		id := segments[len(segments)-1]
		if !ValidIdentifier(id) {
			return Resolved{}, fmt.Errorf("%w: %q", errors.ErrInvalidIdentifier, id)
		}
		return Resolved{Identifier: id, MetadataURL: metadataURL(baseURL, id)}, nil
	}
}

// DownloadURL builds the download endpoint for one file of an item. Each
// segment of fileName is escaped; the slashes between them are kept.
func DownloadURL(baseURL, identifier, fileName string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parts := strings.Split(fileName, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.TrimRight(baseURL, "/") + "/download/" + url.PathEscape(identifier) + "/" + strings.Join(parts, "/")
}

func metadataURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/metadata/" + id
}

func pathSegments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
