package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/iafetch/pkg/errors"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantID  string
		wantURL string
		wantErr error
	}{
		{name: "bare identifier", input: "test_item", wantID: "test_item", wantURL: "https://archive.org/metadata/test_item"},
		{name: "identifier with dots and dashes", input: "a.b-c_d", wantID: "a.b-c_d", wantURL: "https://archive.org/metadata/a.b-c_d"},
		{name: "surrounding whitespace", input: "  item  ", wantID: "item", wantURL: "https://archive.org/metadata/item"},
		{name: "details url", input: "https://archive.org/details/X", wantID: "X", wantURL: "https://archive.org/metadata/X"},
		{name: "details url with trailing path", input: "https://archive.org/details/X/page/n5", wantID: "X", wantURL: "https://archive.org/metadata/X"},
		{name: "metadata url unchanged", input: "https://archive.org/metadata/X", wantID: "X", wantURL: "https://archive.org/metadata/X"},
		{name: "download url", input: "https://archive.org/download/X/file.zip", wantID: "X", wantURL: "https://archive.org/metadata/X"},
		{name: "other url uses last segment", input: "https://example.com/some/path/X", wantID: "X", wantURL: "https://archive.org/metadata/X"},
		{name: "space in identifier", input: "bad id", wantErr: errors.ErrInvalidIdentifier},
		{name: "slash in identifier", input: "bad/id", wantErr: errors.ErrInvalidIdentifier},
		{name: "empty", input: "", wantErr: errors.ErrInvalidIdentifier},
		{name: "unicode", input: "ïtem", wantErr: errors.ErrInvalidIdentifier},
		{name: "url without path", input: "https://archive.org", wantErr: errors.ErrInvalidIdentifier},
		{name: "dot", input: ".", wantErr: errors.ErrInvalidIdentifier},
		{name: "dot dot", input: "..", wantErr: errors.ErrInvalidIdentifier},
		{name: "details url with dot dot", input: "https://archive.org/details/..", wantErr: errors.ErrInvalidIdentifier},
		{name: "details url with bad id", input: "https://archive.org/details/b%20d", wantErr: errors.ErrInvalidIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveURL("", tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.Identifier)
			assert.Equal(t, tt.wantURL, got.MetadataURL)
		})
	}
}

func TestResolveURL_FormsAgree(t *testing.T) {
	inputs := []string{"https://archive.org/details/X", "https://archive.org/metadata/X", "X"}
	var urls []string
	for _, in := range inputs {
		r, err := ResolveURL(DefaultBaseURL, in)
		require.NoError(t, err)
		urls = append(urls, r.MetadataURL)
	}
	assert.Equal(t, urls[0], urls[1])
	assert.Equal(t, urls[1], urls[2])
}

func TestResolveURL_CustomBase(t *testing.T) {
	r, err := ResolveURL("http://127.0.0.1:8080/", "item")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/metadata/item", r.MetadataURL)
}

func TestDownloadURL(t *testing.T) {
	assert.Equal(t, "https://archive.org/download/item/a.txt", DownloadURL("", "item", "a.txt"))
	assert.Equal(t, "https://archive.org/download/item/dir/my%20file%231.mp3", DownloadURL("https://archive.org", "item", "dir/my file#1.mp3"))
	assert.Equal(t, "http://h/download/item/x", DownloadURL("http://h/", "item", "x"))
}
