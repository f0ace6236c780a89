package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"git.home.luguber.info/inful/docsite/internal/build"
	"git.home.luguber.info/inful/docsite/internal/cache"
	"git.home.luguber.info/inful/docsite/internal/config"
	derrors "git.home.luguber.info/inful/docsite/internal/errors"
)

// BuildsCmd implements the 'builds' command.
type BuildsCmd struct {
	Limit int `short:"n" help:"Number of builds to show" default:"10"`
}

func (b *BuildsCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if cfg.Cache.Path == "" {
		return derrors.New(derrors.CategoryConfig, derrors.SeverityFatal,
			"build cache is not configured (set cache.path)")
	}
	store, err := cache.Open(cfg.Resolve(cfg.Cache.Path))
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.RecentBuilds(g.Context, b.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No builds recorded")
		return nil
	}
	for _, r := range records {
		var s build.Summary
		if err := json.Unmarshal(r.Payload, &s); err != nil {
			fmt.Printf("%s  (unreadable record %d)\n", r.FinishedAt.Format(time.RFC3339), r.ID)
			continue
		}
		fmt.Printf("%s  %-8s pages=%d brokenLinks=%d brokenImages=%d duration=%dms\n",
			r.FinishedAt.Format(time.RFC3339), s.Outcome, s.Pages, s.BrokenLinks, s.BrokenImages, s.DurationMS)
	}
	return nil
}
