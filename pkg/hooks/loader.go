package hooks

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/iafetch/pkg/errors"
)

// HookFileExtension is the extension of hook scripts found in a directory.
const HookFileExtension = ".tengo"

// LoadHooks registers the scripts named in paths, keyed by hook type as
// written in the config file.
func LoadHooks(manager HookManager, paths map[string]string) error {
	for name, path := range paths {
		hookType, err := ParseHookType(name)
		if err != nil {
			return err
		}
		if err := loadFile(manager, hookType, path); err != nil {
			return err
		}
	}
	return nil
}

// LoadHooksFromDir registers every <dir>/<hook-type>.tengo file. Files with
// other names are ignored. A missing directory loads nothing.
func LoadHooksFromDir(manager HookManager, dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(ErrHookLoad, "failed to read hooks directory %s: %v", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != HookFileExtension {
			continue
		}
		hookType, err := ParseHookType(strings.TrimSuffix(entry.Name(), HookFileExtension))
		if err != nil {
			continue
		}
		if err := loadFile(manager, hookType, filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func loadFile(manager HookManager, hookType HookType, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(ErrHookLoad, "error reading hook file %s: %v", path, err)
	}
	if err := manager.AddHook(Hook{Type: hookType, Content: string(content)}); err != nil {
		return errors.Wrapf(err, "error adding hook %s", hookType)
	}
	return nil
}

// HookTemplate generates a starting point for a hook script.
func HookTemplate(hookType HookType) string {
	switch hookType {
	case PreDownload:
		return `// Pre-download hook
// Runs before each selected file is downloaded.
// Available variables:
// - identifier: string - archive.org item identifier
// - fileName: string - name of the file within the item
// - outputDir: string - directory the item is downloaded into
// - any custom variables from the config file
// Set err to a message to skip this file.

/*
if text.has_suffix(fileName, ".iso") {
    err = "refusing to download disk images"
}
*/`

	case PostDownload:
		return `// Post-download hook
// Runs after each file was downloaded and verified.
// Available variables: same as pre-download, plus
// - filePath: string - local path of the downloaded file

/*
fmt.println("fetched " + filePath)
*/`

	case PostExtract:
		return `// Post-extract hook
// Runs after an archive was extracted.
// Available variables: same as post-download, plus
// - extractedFiles: array of strings

/*
fmt.println(len(extractedFiles), " files extracted from ", fileName)
*/`

	default:
		return "// Unknown hook type: " + string(hookType)
	}
}
