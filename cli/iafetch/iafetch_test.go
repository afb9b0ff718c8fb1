package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/iafetch/test/testutil"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runRoot(t, "version")
	require.NoError(t, err, "version command should not return an error")
	assert.Contains(t, out, "iafetch version")
}

func TestHelpCommand(t *testing.T) {
	out, err := runRoot(t, "help")
	require.NoError(t, err)
	for _, sub := range []string{"metadata", "download", "verify", "decompress", "config", "cache", "hook"} {
		assert.Contains(t, out, sub)
	}
}

func TestDownloadWithSizeLimits(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	srv := testutil.NewArchiveServer(t, map[string][]testutil.File{
		"test_item": {
			{Name: "a.txt", Data: bytes.Repeat([]byte("a"), 30), Format: "Text"},
			{Name: "b.txt", Data: bytes.Repeat([]byte("b"), 120), Format: "Text"},
			{Name: "c.txt", Data: bytes.Repeat([]byte("c"), 300), Format: "Text"},
		},
	})
	cfg := srv.WriteConfig(t, dir)

	tests := []struct {
		limit string
		want  []string
	}{
		{limit: "50", want: []string{"a.txt"}},
		{limit: "200", want: []string{"a.txt", "b.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.limit, func(t *testing.T) {
			out := filepath.Join(dir, "limit-"+tt.limit)
			_, err := runRoot(t, "--config", cfg, "--no-color", "download", "test_item", "--max-size", tt.limit, "-d", out)
			require.NoError(t, err)

			entries, err := os.ReadDir(filepath.Join(out, "test_item"))
			require.NoError(t, err)
			var names []string
			for _, e := range entries {
				names = append(names, e.Name())
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestUnknownLogFormat(t *testing.T) {
	_, err := runRoot(t, "--log-format", "xml", "version")
	assert.Error(t, err)
}
