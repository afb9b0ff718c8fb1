package cli

import (
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/glorpus-work/iafetch/internal/logger"
	"github.com/glorpus-work/iafetch/pkg/archive"
	"github.com/glorpus-work/iafetch/pkg/cache"
	"github.com/glorpus-work/iafetch/pkg/config"
	"github.com/glorpus-work/iafetch/pkg/download"
	"github.com/glorpus-work/iafetch/pkg/fsutil"
	"github.com/glorpus-work/iafetch/pkg/hooks"
	"github.com/glorpus-work/iafetch/pkg/metadata"
	"github.com/glorpus-work/iafetch/pkg/orchestrator"
	"github.com/glorpus-work/iafetch/pkg/ratelimit"
	"github.com/glorpus-work/iafetch/pkg/transport"
)

// stack holds the components one command invocation shares. The metadata
// fetcher and the downloader use the same limiter so request spacing holds
// across both.
type stack struct {
	cfg     *config.Config
	log     *slog.Logger
	client  *transport.Client
	limiter *ratelimit.Limiter
	meta    metadata.Source
	dl      *download.Manager
	scripts *hooks.DefaultHookManager
}

// stackOptions lets tests point the stack at a fake server. noCache also
// skips the per-user hooks directory so tests stay hermetic.
type stackOptions struct {
	httpClient *http.Client
	noCache    bool
}

// stackOpts is replaced by tests.
var stackOpts stackOptions

func newStack(cfg *config.Config, opts stackOptions) (*stack, error) {
	log := logger.GetLogger()
	policy := cfg.RetryPolicy()

	client := transport.New(transport.Options{
		Timeout:    cfg.Settings.HTTPTimeout,
		Version:    Version,
		Auth:       cfg.Authenticator(),
		HTTPClient: opts.httpClient,
		Logger:     log,
	})
	limiter := ratelimit.New(cfg.MinRequestDelay())

	fetcher := metadata.NewFetcher(client, limiter,
		metadata.WithBaseURL(cfg.Settings.BaseURL),
		metadata.WithPolicy(policy),
		metadata.WithLogger(log),
	)
	var source metadata.Source = fetcher
	if !opts.noCache {
		cacheOpts := []metadata.CacheOption{}
		if dir, err := cfg.GetCacheDir(); err == nil {
			cacheOpts = append(cacheOpts, metadata.WithStore(cache.NewManager(dir)))
		} else {
			log.Debug("metadata cache disabled", "error", err)
		}
		source = metadata.NewCachedFetcher(fetcher, cfg.Settings.CacheTTL, cacheOpts...)
	}

	downloader := download.NewDownloader(client, limiter,
		download.WithChunkSize(cfg.Settings.ChunkSize),
		download.WithBandwidth(ratelimit.NewBandwidthLimiter(cfg.Settings.MaxBytesPerSec)),
		download.WithPolicy(policy),
		download.WithLogger(log),
	)

	scripts := hooks.NewHookManager()
	if len(cfg.Hooks) > 0 {
		if err := hooks.LoadHooks(scripts, cfg.Hooks); err != nil {
			return nil, err
		}
	} else if dir, err := fsutil.GetConfigDir(); err == nil && !opts.noCache {
		// <config dir>/hooks/<type>.tengo when the config names none
		if err := hooks.LoadHooksFromDir(scripts, filepath.Join(dir, "hooks")); err != nil {
			return nil, err
		}
	}

	return &stack{
		cfg:     cfg,
		log:     log,
		client:  client,
		limiter: limiter,
		meta:    source,
		dl:      download.NewManager(downloader, log),
		scripts: scripts,
	}, nil
}

func (s *stack) orchestrator(h orchestrator.Hooks) *orchestrator.Orchestrator {
	o := orchestrator.New(s.meta, s.dl, archive.NewDecompressor(s.log), s.scripts, h)
	o.BaseURL = s.cfg.Settings.BaseURL
	return o
}
