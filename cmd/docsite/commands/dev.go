package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/server"
	"git.home.luguber.info/inful/docsite/internal/watch"
)

// DevCmd implements the 'dev' command.
type DevCmd struct {
	Port            int           `short:"p" help:"Port to listen on (default: server.port or PORT)"`
	BasePath        string        `name:"base-path" help:"URL path the site is mounted under"`
	RebuildInterval time.Duration `name:"rebuild-interval" help:"Also rebuild periodically, e.g. 10m, to refresh git metadata (0 disables)"`
}

func (d *DevCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	reg, recorder := newRegistry()
	rt, err := newRuntime(g.Context, cfg, recorder)
	if err != nil {
		return err
	}
	defer rt.Close()

	// The config file is re-read on every rebuild; the server keeps the
	// output directory and base path it started with.
	rebuild := func(ctx context.Context) error {
		next, err := config.Load(cfg.Path())
		if err != nil {
			return err
		}
		report, err := rt.builder(next).Build(ctx)
		if err != nil {
			return err
		}
		printReport(report, next.Resolve(next.OutputDir))
		return nil
	}

	if err := rebuild(g.Context); err != nil {
		slog.Error("Initial build failed", logfields.Error(err))
	}

	hub := server.NewHub()
	srv, idx := newServer(cfg, d.BasePath, recorder, reg, hub)
	defer idx.Close()

	w := watch.New(rebuild, watch.Options{
		Dirs: []string{
			cfg.Resolve(cfg.DocsDir),
			cfg.Resolve(cfg.Theme.Dir),
			cfg.VersionsRoot(),
			cfg.SidebarsRoot(),
		},
		Files:    []string{cfg.Path()},
		Interval: d.RebuildInterval,
		OnRebuild: func(err error) {
			hash := strconv.FormatInt(time.Now().UnixNano(), 10)
			if err != nil {
				hash = "error:" + hash
			}
			hub.Broadcast(hash)
		},
	})

	fmt.Printf("Dev server at http://localhost:%d%s (Ctrl-C to stop)\n", port(d.Port, cfg), basePath(d.BasePath, cfg))
	eg, ctx := errgroup.WithContext(g.Context)
	eg.Go(func() error { return srv.Serve(ctx, fmt.Sprintf(":%d", port(d.Port, cfg))) })
	eg.Go(func() error { return w.Run(ctx) })
	return eg.Wait()
}
