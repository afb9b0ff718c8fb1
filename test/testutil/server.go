// Package testutil provides an in-process stand-in for the archive.org
// metadata and download endpoints.
package testutil

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// File is one file of a fake item.
type File struct {
	Name   string
	Data   []byte
	Format string
	Source string
	// Stall sends the first byte and then holds the response open until the
	// client goes away.
	Stall bool
	// NoChecksum leaves md5 and sha1 out of the metadata.
	NoChecksum bool
}

// ArchiveServer serves /metadata/<id> and /download/<id>/<name>.
type ArchiveServer struct {
	*httptest.Server

	mu       sync.Mutex
	items    map[string][]File
	requests map[string]int
	once     sync.Once

	// Started is closed when the first stalled download begins streaming.
	Started chan struct{}
	// Identifiers overrides metadata.identifier in the body for an item.
	Identifiers map[string]string
}

// NewArchiveServer starts a server for items and closes it with the test.
func NewArchiveServer(t *testing.T, items map[string][]File) *ArchiveServer {
	t.Helper()
	s := &ArchiveServer{
		items:       items,
		requests:    make(map[string]int),
		Started:     make(chan struct{}),
		Identifiers: make(map[string]string),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/metadata/", s.serveMetadata)
	mux.HandleFunc("/download/", s.serveDownload)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Requests returns how often path was requested.
func (s *ArchiveServer) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

func (s *ArchiveServer) record(path string) {
	s.mu.Lock()
	s.requests[path]++
	s.mu.Unlock()
}

func (s *ArchiveServer) serveMetadata(w http.ResponseWriter, r *http.Request) {
	s.record(r.URL.Path)
	id := strings.TrimPrefix(r.URL.Path, "/metadata/")
	files, ok := s.items[id]
	if !ok {
		// archive.org answers unknown identifiers with an empty object
		_, _ = w.Write([]byte("{}"))
		return
	}

	type rawFile struct {
		Name   string `json:"name"`
		Size   string `json:"size"`
		Format string `json:"format,omitempty"`
		Source string `json:"source,omitempty"`
		MD5    string `json:"md5,omitempty"`
		SHA1   string `json:"sha1,omitempty"`
	}
	doc := struct {
		Files    []rawFile `json:"files"`
		Server   string    `json:"server"`
		Dir      string    `json:"dir"`
		Metadata struct {
			Identifier string `json:"identifier"`
		} `json:"metadata"`
	}{Server: r.Host, Dir: "/items/" + id}
	doc.Metadata.Identifier = id
	s.mu.Lock()
	if override, ok := s.Identifiers[id]; ok {
		doc.Metadata.Identifier = override
	}
	s.mu.Unlock()

	for _, f := range files {
		rf := rawFile{
			Name:   f.Name,
			Size:   strconv.Itoa(len(f.Data)),
			Format: f.Format,
			Source: f.Source,
		}
		if !f.NoChecksum {
			m := md5.Sum(f.Data)
			s1 := sha1.Sum(f.Data)
			rf.MD5 = hex.EncodeToString(m[:])
			rf.SHA1 = hex.EncodeToString(s1[:])
		}
		doc.Files = append(doc.Files, rf)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

func (s *ArchiveServer) serveDownload(w http.ResponseWriter, r *http.Request) {
	s.record(r.URL.Path)
	rest := strings.TrimPrefix(r.URL.Path, "/download/")
	id, name, _ := strings.Cut(rest, "/")
	for _, f := range s.items[id] {
		if f.Name != name {
			continue
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
		if !f.Stall {
			_, _ = w.Write(f.Data)
			return
		}
		_, _ = w.Write(f.Data[:1])
		if fl, ok := w.(http.Flusher); ok {
			fl.Flush()
		}
		s.once.Do(func() { close(s.Started) })
		<-r.Context().Done()
		return
	}
	http.NotFound(w, r)
}

// WriteConfig writes a config file pointing at the server and returns its
// path. Extra lines are appended under the settings section.
func (s *ArchiveServer) WriteConfig(t *testing.T, dir string, settings ...string) string {
	t.Helper()
	content := "version: \"1.0\"\nsettings:\n" +
		"  base_url: " + s.URL + "\n" +
		"  cache_dir: " + filepath.Join(dir, "cache") + "\n" +
		"  output_dir: " + filepath.Join(dir, "out") + "\n"
	for _, line := range settings {
		content += "  " + line + "\n"
	}
	content += "retry:\n  max_retries: 1\n  base_delay_secs: 0\n  backoff_multiplier: 1\n  max_backoff_secs: 0\n  min_request_delay_ms: 0\n"

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
