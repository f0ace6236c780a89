// Package commands implements the docsite CLI commands.
package commands

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/docsite/internal/build"
	"git.home.luguber.info/inful/docsite/internal/cache"
	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/gitmeta"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/markdown"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/notify"
	"git.home.luguber.info/inful/docsite/internal/retry"
	"git.home.luguber.info/inful/docsite/internal/search"
)

// LogLevelEnv overrides the log level when --verbose is not given.
const LogLevelEnv = "DOCSITE_LOG_LEVEL"

// Global is shared state passed to every command.
type Global struct {
	Context context.Context
	Logger  *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"config.json" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd   `cmd:"" help:"Build the documentation site"`
	Serve    ServeCmd   `cmd:"" help:"Serve the built site"`
	Dev      DevCmd     `cmd:"" help:"Build, serve and rebuild on changes with live reload"`
	Snapshot VersionCmd `cmd:"" name:"version" help:"Snapshot the current docs as a new version"`
	Search   SearchCmd  `cmd:"" help:"Search the built site"`
	Builds   BuildsCmd  `cmd:"" help:"List recent builds recorded in the build cache"`
	Init     InitCmd    `cmd:"" help:"Create an example configuration and docs directory"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose)}))
	slog.SetDefault(logger)
	return nil
}

// parseLogLevel maps --verbose and DOCSITE_LOG_LEVEL to a level. The flag
// wins.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(LogLevelEnv))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// notifyRetry bounds how long a build waits for an unreachable broker.
var notifyRetry = retry.NewPolicy(retry.BackoffExponential, 250*time.Millisecond, 2*time.Second, 2)

// runtime holds the resources shared by every build of one command run.
type runtime struct {
	history  gitmeta.Lookup
	store    *cache.Store
	notifier *notify.Notifier
	recorder metrics.Recorder
	renderer *markdown.Renderer
}

// newRuntime opens the optional build cache and notification connection
// configured in cfg. Notification failures only disable notifications.
func newRuntime(ctx context.Context, cfg *config.Config, recorder metrics.Recorder) (*runtime, error) {
	rt := &runtime{
		history:  gitmeta.Default(),
		recorder: recorder,
		renderer: markdown.New(markdown.Options{}),
	}
	if rt.recorder == nil {
		rt.recorder = metrics.NoopRecorder{}
	}

	if cfg.Cache.Path != "" {
		store, err := cache.Open(cfg.Resolve(cfg.Cache.Path))
		if err != nil {
			return nil, err
		}
		rt.store = store
		rt.history = &gitmeta.Cached{Source: gitmeta.Default(), Store: store}
	}

	if cfg.Notify.NatsURL != "" {
		n, err := notify.Connect(ctx, cfg.Notify.NatsURL, cfg.Notify.Subject, notifyRetry)
		if err != nil {
			slog.Warn("Build notifications disabled", logfields.Error(err))
		} else {
			rt.notifier = n
		}
	}
	return rt, nil
}

func (rt *runtime) builder(cfg *config.Config) *build.Builder {
	opts := []build.Option{
		build.WithHistory(rt.history),
		build.WithRecorder(rt.recorder),
		build.WithRenderer(rt.renderer),
	}
	var observers build.Observers
	if rt.store != nil {
		opts = append(opts, build.WithPageCache(rt.store))
		observers = append(observers, build.LogTo(rt.store))
	}
	if rt.notifier != nil {
		observers = append(observers, rt.notifier.Observer())
	}
	if len(observers) > 0 {
		opts = append(opts, build.WithObserver(observers))
	}
	return build.New(cfg, opts...)
}

func (rt *runtime) Close() {
	rt.notifier.Close()
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			slog.Debug("Closing build cache failed", logfields.Error(err))
		}
	}
}

// newRegistry returns a Prometheus registry with the runtime collectors and
// a recorder registered on it.
func newRegistry() (*prom.Registry, *metrics.PrometheusRecorder) {
	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg, metrics.NewPrometheusRecorder(reg)
}

func searchOptions(cfg *config.Config) search.Options {
	return search.Options{
		MaxResults:     cfg.Search.MaxResults,
		FuzzyThreshold: cfg.Search.FuzzyThreshold,
		MinMatchLength: cfg.Search.MinMatchLength,
		BaseURL:        cfg.BaseURL,
	}
}
