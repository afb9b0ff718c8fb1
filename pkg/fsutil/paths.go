package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AppName is the name of the application used in paths.
const AppName = "iafetch"

// GetCacheDir returns the platform-specific cache directory for the application.
// On Linux: ~/.cache/iafetch/
// On macOS: ~/Library/Caches/iafetch/
// On Windows: %LOCALAPPDATA%\iafetch\
func GetCacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, AppName), nil
}

// GetConfigDir returns the platform-specific configuration directory.
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}

// BaseName returns the final segment of name, treating both '/' and '\' as
// separators regardless of the host OS.
func BaseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

// SafeJoin joins an untrusted relative name onto root and rejects results
// that would land outside root.
func SafeJoin(root, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes %s", name, root)
	}
	joined := filepath.Join(root, cleaned)
	rel, err := filepath.Rel(root, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes %s", name, root)
	}
	return joined, nil
}
