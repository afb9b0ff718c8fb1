package hooks

import "context"

// HookType names the point in the pipeline a hook runs at.
type HookType string

// Supported hook types.
const (
	PreDownload  HookType = "pre-download"
	PostDownload HookType = "post-download"
	PostExtract  HookType = "post-extract"
)

// Types returns every supported hook type in pipeline order.
func Types() []HookType {
	return []HookType{PreDownload, PostDownload, PostExtract}
}

// ParseHookType validates name.
func ParseHookType(name string) (HookType, error) {
	for _, t := range Types() {
		if string(t) == name {
			return t, nil
		}
	}
	return "", ErrUnsupportedHookEvent(name)
}

// Hook represents a hook script with its type and content.
type Hook struct {
	Type    HookType
	Content string
}

// HookContext contains the information passed to a hook script.
type HookContext struct {
	Identifier string
	FileName   string
	// FilePath is the downloaded file, empty for pre-download.
	FilePath  string
	OutputDir string
	// ExtractedFiles is set for post-extract.
	ExtractedFiles []string
	Vars           map[string]interface{}
}

// HookManager runs hooks by type.
type HookManager interface {
	// Execute runs the hook of the given type; a missing hook is not an error.
	Execute(ctx context.Context, hookType HookType, hctx HookContext) error
	AddHook(hook Hook) error
	RemoveHook(hookType HookType) error
	HasHook(hookType HookType) bool
}
