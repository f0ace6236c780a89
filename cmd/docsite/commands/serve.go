package commands

import (
	"fmt"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docsite/internal/build"
	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/search"
	"git.home.luguber.info/inful/docsite/internal/server"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Port     int    `short:"p" help:"Port to listen on (default: server.port or PORT)"`
	BasePath string `name:"base-path" help:"URL path the site is mounted under (default: server.basePath, else the path of baseUrl)"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	reg, recorder := newRegistry()
	srv, idx := newServer(cfg, s.BasePath, recorder, reg, nil)
	defer idx.Close()

	fmt.Printf("Serving %s at http://localhost:%d%s\n", cfg.Resolve(cfg.OutputDir), port(s.Port, cfg), basePath(s.BasePath, cfg))
	return srv.Serve(g.Context, fmt.Sprintf(":%d", port(s.Port, cfg)))
}

func port(flag int, cfg *config.Config) int {
	if flag > 0 {
		return flag
	}
	return cfg.Server.Port
}

func basePath(flag string, cfg *config.Config) string {
	return server.ResolveBasePath(flag, cfg.Server.BasePath, cfg.BaseURL)
}

func newServer(cfg *config.Config, flagBase string, recorder metrics.Recorder, reg *prom.Registry, hub *server.Hub) (*server.Server, *search.FileIndex) {
	out := cfg.Resolve(cfg.OutputDir)
	idx := search.NewFileIndex(filepath.Join(out, build.SearchIndexFile), searchOptions(cfg))
	return server.New(server.Options{
		Dir:        out,
		BasePath:   basePath(flagBase, cfg),
		Search:     idx,
		Registry:   reg,
		Recorder:   recorder,
		LiveReload: hub,
	}), idx
}
