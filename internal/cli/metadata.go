package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/iafetch/pkg/filter"
	"github.com/glorpus-work/iafetch/pkg/model"
)

// NewMetadataCmd creates the metadata command.
func NewMetadataCmd() *cobra.Command {
	var (
		flags   filterFlags
		asJSON  bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "metadata IDENTIFIER|URL",
		Short: "List the files of an item",
		Long: `Fetch item metadata from archive.org and list its files, optionally
narrowed by format, size and source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetadata(cmd, args[0], flags, asJSON, refresh)
		},
	}

	addFilterFlags(cmd, &flags)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the filtered item as JSON")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the metadata cache")

	return cmd
}

func addFilterFlags(cmd *cobra.Command, f *filterFlags) {
	cmd.Flags().StringSliceVar(&f.include, "include-format", nil, "Only files with these formats or extensions (repeatable)")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude-format", nil, "Skip files with these formats or extensions (repeatable)")
	cmd.Flags().StringVar(&f.maxSize, "max-size", "", "Skip files larger than this, e.g. 100MB")
	cmd.Flags().StringSliceVar(&f.sources, "source", nil, "Only files from these sources: original, derivative, metadata")
}

func runMetadata(cmd *cobra.Command, input string, flags filterFlags, asJSON, refresh bool) error {
	criteria, err := flags.criteria()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts := stackOpts
	opts.noCache = opts.noCache || refresh
	s, err := newStack(cfg, opts)
	if err != nil {
		return err
	}

	meta, err := s.meta.FetchMetadata(cmd.Context(), input)
	if err != nil {
		return err
	}
	files := filter.Filter(meta, criteria)

	if asJSON {
		out := *meta
		out.Files = files
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printFiles(cmd.OutOrStdout(), meta, files)
	return nil
}

func printFiles(w io.Writer, meta *model.Metadata, files []model.FileEntry) {
	_, _ = fmt.Fprintf(w, "%s: %d of %d file(s)\n\n", meta.Identifier, len(files), len(meta.Files))

	tw := tabwriter.NewWriter(w, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tFORMAT\tSOURCE\tSIZE")
	var total int64
	for _, f := range files {
		size := filter.FormatSize(-1)
		if f.HasSize() {
			size = filter.FormatSize(f.SizeOrZero())
			total += f.SizeOrZero()
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Name, f.Format, f.Source, size)
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintf(w, "\nTotal: %s\n", filter.FormatSize(total))
}
