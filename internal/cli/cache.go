package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/iafetch/internal/logger"
	"github.com/glorpus-work/iafetch/pkg/cache"
)

// NewCacheCmd creates the cache command with subcommands
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the metadata cache",
		Long:  "Show information about and clean the cached item metadata",
	}

	cmd.AddCommand(
		newCacheCleanCmd(),
		newCacheInfoCmd(),
		newCacheDirCmd(),
	)

	return cmd
}

func newCacheCleanCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the metadata cache",
		Long:  "Remove cached item metadata, optionally only entries older than a duration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			op, err := cacheOperation()
			if err != nil {
				return err
			}
			msg, err := op.Clean(olderThan)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove entries older than this, e.g. 72h")

	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache information",
		Long:  "Display the location, size and age of the metadata cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			op, err := cacheOperation()
			if err != nil {
				return err
			}
			msg, err := op.GetInfo()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func newCacheDirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dir",
		Short: "Show cache directory path",
		Long:  "Display the path to the cache directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			op, err := cacheOperation()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), op.GetDirectory())
			return nil
		},
	}
}

func cacheOperation() (*cache.CacheOperation, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	dir, err := cfg.GetCacheDir()
	if err != nil {
		return nil, err
	}
	return cache.NewCacheOperation(cache.NewManager(dir), logger.GetLogger()), nil
}
