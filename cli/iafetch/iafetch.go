package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/iafetch/internal/cli"
	"github.com/glorpus-work/iafetch/internal/logger"
)

var (
	configPath string
	verbose    bool
	noColor    bool
	logFormat  string
)

func main() {
	logger.InitLogger("info", logger.FormatText)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", cli.UserMessage(err))
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iafetch",
		Short: "Download items from the Internet Archive",
		Long: `iafetch fetches archive.org item metadata and downloads its files with:
- format, source and size filters
- checksum verification and archive extraction
- Tengo hook scripts around each download`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			switch logger.OutputFormat(logFormat) {
			case logger.FormatText, logger.FormatJSON:
				logger.SetOutputFormat(logger.OutputFormat(logFormat))
				return nil
			default:
				return fmt.Errorf("unknown log format %q (want text or json)", logFormat)
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: $IAFETCH_CONFIG or the user config dir)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", string(logger.FormatText), "log format (text, json)")

	// Set up CLI variables
	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.NoColor = &noColor

	cmd.AddCommand(
		cli.NewMetadataCmd(),
		cli.NewDownloadCmd(),
		cli.NewVerifyCmd(),
		cli.NewDecompressCmd(),
		cli.NewHookCmd(),
		cli.NewConfigCmd(),
		cli.NewCacheCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
