package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/glorpus-work/iafetch/internal/logger"
	"github.com/glorpus-work/iafetch/pkg/config"
	"github.com/glorpus-work/iafetch/pkg/filter"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
	NoColor    *bool
)

// loadConfig reads the config file and applies the global flags.
func loadConfig() (*config.Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Settings.LogLevel
	if Verbose != nil && *Verbose {
		level = "debug"
	}
	logger.SetLevel(level)
	return cfg, nil
}

func getConfigPath() (string, error) {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath, nil
	}
	p, err := config.GetDefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to get default config path: %w", err)
	}
	return p, nil
}

// colorEnabled honours --no-color and the NO_COLOR convention.
func colorEnabled() bool {
	if NoColor != nil && *NoColor {
		return false
	}
	return os.Getenv("NO_COLOR") == ""
}

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func paint(color, s string) string {
	if !colorEnabled() {
		return s
	}
	return color + s + ansiReset
}

// filterFlags are shared by the metadata and download commands.
type filterFlags struct {
	include []string
	exclude []string
	maxSize string
	sources []string
}

func (f *filterFlags) criteria() (filter.Criteria, error) {
	c := filter.Criteria{
		IncludeFormats: f.include,
		ExcludeFormats: f.exclude,
		SourceTypes:    f.sources,
	}
	if strings.TrimSpace(f.maxSize) != "" {
		n, err := filter.ParseSize(f.maxSize)
		if err != nil {
			return filter.Criteria{}, err
		}
		c.MaxSizeBytes = n
	}
	return c, nil
}
