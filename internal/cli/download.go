package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/iafetch/internal/logger"
	"github.com/glorpus-work/iafetch/pkg/model"
	"github.com/glorpus-work/iafetch/pkg/orchestrator"
)

type downloadFlags struct {
	filterFlags
	outputDir    string
	concurrency  int
	verify       bool
	noVerify     bool
	decompress   bool
	dryRun       bool
	skipExisting bool
}

// NewDownloadCmd creates the download command.
func NewDownloadCmd() *cobra.Command {
	var flags downloadFlags

	cmd := &cobra.Command{
		Use:   "download IDENTIFIER|URL",
		Short: "Download the files of an item",
		Long: `Download the selected files of an archive.org item into
<dir>/<identifier>/, verifying each against the checksum archive.org
publishes and optionally extracting archives.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, args[0], flags)
		},
	}

	addFilterFlags(cmd, &flags.filterFlags)
	cmd.Flags().StringVarP(&flags.outputDir, "dir", "d", "", "Output directory (defaults to settings.output_dir)")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "Number of parallel downloads (0=config)")
	cmd.Flags().BoolVar(&flags.verify, "verify", false, "Verify checksums (default from settings.verify_checksums)")
	cmd.Flags().BoolVar(&flags.noVerify, "no-verify", false, "Skip checksum verification")
	cmd.Flags().BoolVar(&flags.decompress, "decompress", false, "Extract downloaded archives")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "List what would be downloaded without downloading")
	cmd.Flags().BoolVar(&flags.skipExisting, "skip-existing", false, "Keep files that are already present and intact")
	cmd.MarkFlagsMutuallyExclusive("verify", "no-verify")

	return cmd
}

func runDownload(cmd *cobra.Command, input string, flags downloadFlags) error {
	criteria, err := flags.criteria()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := newStack(cfg, stackOpts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	progress := newProgressPrinter(out, Verbose != nil && *Verbose)
	orch := s.orchestrator(orchestrator.Hooks{
		OnEvent:    progress.event,
		OnProgress: progress.update,
	})

	req := orchestrator.Request{
		Input:        input,
		OutputDir:    flags.outputDir,
		Criteria:     criteria,
		Verify:       (cfg.Settings.VerifyChecksums || flags.verify) && !flags.noVerify,
		Decompress:   flags.decompress,
		SkipExisting: flags.skipExisting,
		Concurrency:  flags.concurrency,
		DryRun:       flags.dryRun,
	}
	if req.OutputDir == "" {
		req.OutputDir = cfg.Settings.OutputDir
	}
	if req.Concurrency <= 0 {
		req.Concurrency = cfg.Settings.MaxConcurrent
	}

	res, err := orch.Run(cmd.Context(), req)
	if res != nil {
		summarize(out, res, req.DryRun)
	}
	return err
}

func summarize(w io.Writer, res *orchestrator.Result, dryRun bool) {
	if dryRun {
		printFiles(w, res.Metadata, entries(res.Files))
		return
	}
	var total int64
	done, skipped := 0, 0
	for _, f := range res.Files {
		switch {
		case f.Err != nil:
		case f.Skipped:
			skipped++
		default:
			done++
			total += f.Bytes
		}
	}
	_, _ = fmt.Fprintf(w, "%s: %d downloaded (%s), %d skipped, %d failed\n",
		res.Metadata.Identifier, done, humanize.Bytes(uint64(total)), skipped, len(res.Failed()))
	for _, f := range res.Failed() {
		_, _ = fmt.Fprintf(w, "  %s %s: %v\n", paint(ansiRed, "failed"), f.Entry.Name, f.Err)
	}
	logger.Debug("run finished", logger.Fields{"run_id": res.RunID})
}

func entries(files []orchestrator.FileResult) []model.FileEntry {
	out := make([]model.FileEntry, len(files))
	for i, f := range files {
		out[i] = f.Entry
	}
	return out
}

// progressPrinter renders orchestrator callbacks. Downloads run in
// parallel, so every write holds the mutex.
type progressPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
	shown   map[string]float64
}

func newProgressPrinter(w io.Writer, verbose bool) *progressPrinter {
	return &progressPrinter{w: w, verbose: verbose, shown: make(map[string]float64)}
}

func (p *progressPrinter) event(e orchestrator.Event) {
	if !p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	logger.Debug(e.Msg, logger.Fields{"phase": e.Phase, "file": e.ID, "run_id": e.RunID})
}

func (p *progressPrinter) update(name string, dp model.DownloadProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch dp.Status {
	case model.StatusComplete:
		_, _ = fmt.Fprintf(p.w, "%s %s (%s)\n", paint(ansiGreen, "done"), name, humanize.Bytes(uint64(dp.Downloaded)))
	case model.StatusCancelled:
		_, _ = fmt.Fprintf(p.w, "%s %s\n", paint(ansiYellow, "cancelled"), name)
	case model.StatusDownloading:
		if !p.verbose {
			return
		}
		pct := dp.Percent()
		if pct < 0 || pct-p.shown[name] < progressStep {
			return
		}
		p.shown[name] = pct
		_, _ = fmt.Fprintf(p.w, "  %s %3.0f%% %s/%s\n", name, pct,
			humanize.Bytes(uint64(dp.Downloaded)), humanize.Bytes(uint64(dp.Total)))
	}
}
