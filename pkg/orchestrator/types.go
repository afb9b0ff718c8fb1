//go:generate mockgen -destination=./mocks/orchestrator.go . MetadataSource,Downloader,Extractor,ScriptRunner

package orchestrator

import (
	"context"

	"github.com/glorpus-work/iafetch/pkg/download"
	"github.com/glorpus-work/iafetch/pkg/filter"
	"github.com/glorpus-work/iafetch/pkg/hooks"
	"github.com/glorpus-work/iafetch/pkg/model"
)

// MetadataSource is the subset of the metadata fetcher used by the orchestrator.
type MetadataSource interface {
	FetchMetadata(ctx context.Context, identifierOrURL string) (*model.Metadata, error)
}

// Downloader handles batched file downloads.
type Downloader interface {
	FetchAll(ctx context.Context, items []download.Item, opts download.Options) ([]download.Result, error)
}

// Extractor unpacks a downloaded archive.
type Extractor interface {
	Decompress(ctx context.Context, archivePath, outputDir string) ([]string, error)
}

// ScriptRunner runs user hook scripts. A missing script is not an error.
type ScriptRunner interface {
	Execute(ctx context.Context, hookType hooks.HookType, hctx hooks.HookContext) error
}

// Orchestrator ties the metadata fetcher, the download manager and the
// decompressor together for one item at a time.
type Orchestrator struct {
	Metadata  MetadataSource
	DL        Downloader
	Extractor Extractor
	Scripts   ScriptRunner // optional
	Hooks     Hooks        // Hooks for progress and event notifications
	// BaseURL roots the download URLs; empty uses archive.org.
	BaseURL string
}

// Event phases.
const (
	PhaseResolving   = "resolving"
	PhasePlanning    = "planning"
	PhaseDownloading = "downloading"
	PhaseVerified    = "verified"
	PhaseExtracting  = "extracting"
	PhaseHook        = "hook"
	PhaseDone        = "done"
	PhaseError       = "error"
)

// Event represents a simple progress notification.
type Event struct {
	RunID string
	Phase string
	ID    string // file name, empty for item level events
	Msg   string
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
	// OnProgress receives transfer snapshots; calls for different files may
	// be concurrent.
	OnProgress func(name string, p model.DownloadProgress)
}

// Request describes one run.
type Request struct {
	// Input is an identifier or an archive.org URL.
	Input string
	// OutputDir receives <identifier>/<file name> for every downloaded file.
	OutputDir string
	Criteria  filter.Criteria
	// Verify checks each file against the digest archive.org published.
	Verify bool
	// Decompress extracts recognised archives next to the download.
	Decompress   bool
	SkipExisting bool
	// Concurrency caps parallel downloads; <= 0 uses the download default.
	Concurrency int
	// DryRun fetches and filters but writes nothing.
	DryRun bool
	// Vars are exposed to hook scripts.
	Vars map[string]interface{}
}

// FileResult is the outcome for one selected file.
type FileResult struct {
	Entry     model.FileEntry
	Path      string
	Bytes     int64
	Skipped   bool
	Verified  bool
	Extracted []string
	Err       error
}

// Result is the outcome of Run.
type Result struct {
	RunID    string
	Metadata *model.Metadata
	Files    []FileResult
}

// Failed returns the results carrying an error.
func (r *Result) Failed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}
