// Package orchestrator runs the full fetch, filter, download, verify and
// extract pipeline for one archive.org item.
package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/glorpus-work/iafetch/pkg/archive"
	"github.com/glorpus-work/iafetch/pkg/checksum"
	"github.com/glorpus-work/iafetch/pkg/download"
	"github.com/glorpus-work/iafetch/pkg/errors"
	"github.com/glorpus-work/iafetch/pkg/filter"
	"github.com/glorpus-work/iafetch/pkg/fsutil"
	"github.com/glorpus-work/iafetch/pkg/hooks"
	"github.com/glorpus-work/iafetch/pkg/metadata"
	"github.com/glorpus-work/iafetch/pkg/model"
)

// New constructs an Orchestrator from existing components. Helper for wiring.
// scripts may be nil.
func New(meta MetadataSource, dl Downloader, ex Extractor, scripts ScriptRunner, h Hooks) *Orchestrator {
	return &Orchestrator{
		Metadata:  meta,
		DL:        dl,
		Extractor: ex,
		Scripts:   scripts,
		Hooks:     h,
	}
}

type run struct {
	o     *Orchestrator
	id    string
	req   Request
	meta  *model.Metadata
	dir   string
	files []FileResult
}

func (r *run) emit(phase, id, msg string) {
	if r.o.Hooks.OnEvent != nil {
		r.o.Hooks.OnEvent(Event{RunID: r.id, Phase: phase, ID: id, Msg: msg})
	}
}

// Run fetches the item named by req.Input, selects files with req.Criteria
// and downloads them under req.OutputDir/<identifier>/. The returned Result
// lists every selected file even on error; the error is the first file
// failure, or the metadata failure when nothing could be planned.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if o.Metadata == nil {
		return nil, fmt.Errorf("metadata source is not configured")
	}
	r := &run{o: o, id: uuid.NewString(), req: req}

	r.emit(PhaseResolving, "", req.Input)
	meta, err := o.Metadata.FetchMetadata(ctx, req.Input)
	if err != nil {
		r.emit(PhaseError, "", err.Error())
		return nil, err
	}
	if !metadata.ValidIdentifier(meta.Identifier) {
		err := fmt.Errorf("%w: %q", errors.ErrInvalidIdentifier, meta.Identifier)
		r.emit(PhaseError, "", err.Error())
		return nil, err
	}
	r.meta = meta
	r.dir = filepath.Join(req.OutputDir, meta.Identifier)

	selected := filter.Filter(meta, req.Criteria)
	r.files = make([]FileResult, len(selected))
	for i, f := range selected {
		r.files[i] = FileResult{Entry: f}
		target, err := fsutil.SafeJoin(r.dir, f.Name)
		if err != nil {
			r.files[i].Err = fmt.Errorf("%w: %w", errors.ErrInvalidPath, err)
			continue
		}
		r.files[i].Path = target
		r.emit(PhasePlanning, f.Name, sizeLabel(f))
	}

	result := &Result{RunID: r.id, Metadata: meta, Files: r.files}
	if req.DryRun {
		r.emit(PhaseDone, "", "dry-run")
		return result, firstError(r.files)
	}
	if len(selected) == 0 {
		r.emit(PhaseDone, "", "no files selected")
		return result, nil
	}
	if o.DL == nil {
		return result, fmt.Errorf("download manager is not configured")
	}

	items, index := r.plan(ctx)
	if len(items) > 0 {
		r.emit(PhaseDownloading, "", fmt.Sprintf("%d file(s)", len(items)))
		results, err := o.DL.FetchAll(ctx, items, download.Options{
			Concurrency:  req.Concurrency,
			Verify:       req.Verify,
			SkipExisting: req.SkipExisting,
			OnProgress:   o.Hooks.OnProgress,
		})
		if results == nil && err != nil {
			r.emit(PhaseError, "", err.Error())
			return result, err
		}
		for k, res := range results {
			r.finish(ctx, index[k], items[k], res)
		}
	}

	err = firstError(r.files)
	if err != nil {
		r.emit(PhaseError, "", err.Error())
	} else {
		r.emit(PhaseDone, "", fmt.Sprintf("%d file(s)", len(r.files)))
	}
	return result, err
}

// plan runs pre-download hooks and builds the download batch. index maps
// each item back to its FileResult.
func (r *run) plan(ctx context.Context) ([]download.Item, []int) {
	items := make([]download.Item, 0, len(r.files))
	index := make([]int, 0, len(r.files))
	for i := range r.files {
		fr := &r.files[i]
		if fr.Err != nil {
			continue
		}
		if err := r.script(ctx, hooks.PreDownload, fr, nil); err != nil {
			fr.Err = err
			continue
		}
		item := download.Item{
			ID:    fr.Entry.Name,
			URL:   metadata.DownloadURL(r.o.BaseURL, r.meta.Identifier, fr.Entry.Name),
			Path:  fr.Path,
			Size:  fr.Entry.SizeOrZero(),
			Mtime: fr.Entry.Mtime,
		}
		if r.req.Verify {
			if want, ok := checksum.BestForEntry(fr.Entry); ok {
				item.Checksum = &want
			}
		}
		items = append(items, item)
		index = append(index, i)
	}
	return items, index
}

func (r *run) finish(ctx context.Context, i int, item download.Item, res download.Result) {
	fr := &r.files[i]
	fr.Bytes = res.Bytes
	fr.Skipped = res.Skipped
	if res.Err != nil {
		fr.Err = res.Err
		return
	}
	fr.Path = res.Path
	if item.Checksum != nil {
		fr.Verified = true
		r.emit(PhaseVerified, fr.Entry.Name, item.Checksum.Algorithm.String())
	}
	if err := r.script(ctx, hooks.PostDownload, fr, nil); err != nil {
		fr.Err = err
		return
	}

	if !r.req.Decompress || !archive.IsArchive(fr.Entry.Name) || r.o.Extractor == nil {
		return
	}
	r.emit(PhaseExtracting, fr.Entry.Name, "")
	extracted, err := r.o.Extractor.Decompress(ctx, fr.Path, filepath.Dir(fr.Path))
	if err != nil {
		fr.Err = err
		return
	}
	fr.Extracted = extracted
	if err := r.script(ctx, hooks.PostExtract, fr, extracted); err != nil {
		fr.Err = err
	}
}

func (r *run) script(ctx context.Context, t hooks.HookType, fr *FileResult, extracted []string) error {
	if r.o.Scripts == nil {
		return nil
	}
	hctx := hooks.HookContext{
		Identifier:     r.meta.Identifier,
		FileName:       fr.Entry.Name,
		OutputDir:      r.dir,
		ExtractedFiles: extracted,
		Vars:           r.req.Vars,
	}
	if t != hooks.PreDownload {
		hctx.FilePath = fr.Path
	}
	if err := r.o.Scripts.Execute(ctx, t, hctx); err != nil {
		r.emit(PhaseHook, fr.Entry.Name, fmt.Sprintf("%s: %v", t, err))
		return err
	}
	return nil
}

// firstError prefers a cancellation over other failures so callers can tell
// an interrupted run from a broken one.
func firstError(files []FileResult) error {
	var first error
	for _, f := range files {
		if f.Err == nil {
			continue
		}
		if stderrors.Is(f.Err, errors.ErrCancelled) {
			return f.Err
		}
		if first == nil {
			first = f.Err
		}
	}
	return first
}

func sizeLabel(f model.FileEntry) string {
	if !f.HasSize() {
		return filter.FormatSize(-1)
	}
	return filter.FormatSize(f.SizeOrZero())
}
