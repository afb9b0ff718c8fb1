package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/iafetch/internal/logger"
	"github.com/glorpus-work/iafetch/pkg/archive"
)

// NewDecompressCmd creates the decompress command.
func NewDecompressCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "decompress ARCHIVE",
		Short: "Extract a local archive",
		Long: `Extract a zip, tar, tar.gz, tar.bz2, tar.xz, gz, bz2 or xz file.
Entries that would land outside the output directory are rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := outputDir
			if dir == "" {
				dir = filepath.Dir(args[0])
			}
			files, err := archive.NewDecompressor(logger.GetLogger()).Decompress(cmd.Context(), args[0], dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, f := range files {
				_, _ = fmt.Fprintln(out, f)
			}
			_, _ = fmt.Fprintf(out, "%s %d file(s) into %s\n", paint(ansiGreen, "extracted"), len(files), dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "dir", "d", "", "Output directory (defaults to the archive's directory)")

	return cmd
}
