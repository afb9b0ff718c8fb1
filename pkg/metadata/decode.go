package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/glorpus-work/iafetch/pkg/errors"
	"github.com/glorpus-work/iafetch/pkg/model"
)

// flexInt decodes numbers that archive.org sends either as JSON numbers or
// as decimal strings. An empty string or null leaves it unset.
type flexInt struct {
	value *int64
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some items report float sizes, e.g. "1234.0".
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		n = int64(fl)
	}
	f.value = &n
	return nil
}

func (f flexInt) orZero() int64 {
	if f.value == nil {
		return 0
	}
	return *f.value
}

type rawFile struct {
	Name   *string `json:"name"`
	Size   flexInt `json:"size"`
	Format string  `json:"format"`
	Source string  `json:"source"`
	MD5    string  `json:"md5"`
	SHA1   string  `json:"sha1"`
	CRC32  string  `json:"crc32"`
	Mtime  flexInt `json:"mtime"`
}

type rawMetadata struct {
	Files      *[]rawFile `json:"files"`
	Server     string     `json:"server"`
	Dir        string     `json:"dir"`
	Created    flexInt    `json:"created"`
	ItemSize   flexInt    `json:"item_size"`
	FilesCount flexInt    `json:"files_count"`
	Metadata   struct {
		Identifier json.RawMessage `json:"identifier"`
	} `json:"metadata"`
}

// Decode parses a metadata response body for the item the request resolved
// to. The identifier in the body is only consulted when identifier is empty,
// and must still pass ValidIdentifier. An empty object, which archive.org
// returns for unknown items, yields ErrNotFound.
func Decode(identifier string, body []byte) (*model.Metadata, error) {
	trimmed := bytes.TrimSpace(body)
	if bytes.Equal(trimmed, []byte("{}")) {
		return nil, fmt.Errorf("%w: %s", errors.ErrNotFound, identifier)
	}

	var raw rawMetadata
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrParse, err)
	}
	if raw.Files == nil {
		return nil, fmt.Errorf("%w: missing files array", errors.ErrParse)
	}

	if identifier == "" {
		identifier = metadataIdentifier(raw.Metadata.Identifier)
	}
	if !ValidIdentifier(identifier) {
		return nil, fmt.Errorf("%w: %q", errors.ErrInvalidIdentifier, identifier)
	}

	meta := &model.Metadata{
		Identifier: identifier,
		Files:      make([]model.FileEntry, 0, len(*raw.Files)),
		Server:     raw.Server,
		Dir:        raw.Dir,
		Created:    raw.Created.orZero(),
		ItemSize:   raw.ItemSize.orZero(),
		FilesCount: int(raw.FilesCount.orZero()),
	}
	for i, rf := range *raw.Files {
		if rf.Name == nil || *rf.Name == "" {
			return nil, fmt.Errorf("%w: file %d has no name", errors.ErrParse, i)
		}
		if rf.Size.value != nil && *rf.Size.value < 0 {
			return nil, fmt.Errorf("%w: file %q has negative size", errors.ErrParse, *rf.Name)
		}
		meta.Files = append(meta.Files, model.FileEntry{
			Name:   *rf.Name,
			Size:   rf.Size.value,
			Format: rf.Format,
			Source: rf.Source,
			MD5:    rf.MD5,
			SHA1:   rf.SHA1,
			CRC32:  rf.CRC32,
			Mtime:  rf.Mtime.orZero(),
		})
	}
	return meta, nil
}

// metadataIdentifier accepts both "id" and ["id"], the two shapes seen in
// the metadata block.
func metadataIdentifier(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}
