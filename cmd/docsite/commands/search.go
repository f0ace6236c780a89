package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/build"
	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/search"
)

// SearchCmd implements the 'search' command.
type SearchCmd struct {
	Query []string `arg:"" help:"Search terms"`
}

func (s *SearchCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	path := filepath.Join(cfg.Resolve(cfg.OutputDir), build.SearchIndexFile)
	idx, err := search.Load(path, searchOptions(cfg))
	if err != nil {
		return fmt.Errorf("%w (run 'docsite build' first)", err)
	}
	defer idx.Close()

	hits, err := idx.Search(g.Context, strings.Join(s.Query, " "))
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Println("No results")
		return nil
	}
	for _, h := range hits {
		fmt.Printf("%-40s %s\n", h.Title, h.URL)
		if h.Description != "" {
			fmt.Printf("    %s\n", h.Description)
		}
	}
	return nil
}
