package commands

import (
	"context"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/docsite/internal/build"
	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output string `short:"o" help:"Override the configured output directory"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if b.Output != "" {
		cfg.OutputDir = b.Output
	}
	_, err = RunBuild(g.Context, cfg, nil)
	return err
}

// RunBuild performs one build and prints a summary. Broken links and images
// are reported but do not fail the build.
func RunBuild(ctx context.Context, cfg *config.Config, recorder metrics.Recorder) (*build.Report, error) {
	// Provide friendly user-facing messages on stdout.
	fmt.Println("Building documentation site...")

	rt, err := newRuntime(ctx, cfg, recorder)
	if err != nil {
		return nil, err
	}
	defer rt.Close()

	report, err := rt.builder(cfg).Build(ctx)
	if err != nil {
		fmt.Println("Build failed")
		return report, err
	}
	printReport(report, cfg.Resolve(cfg.OutputDir))
	return report, nil
}

func printReport(r *build.Report, outputDir string) {
	if r.SkipReason == build.SkipNoMarkdown {
		fmt.Println("No markdown files found; nothing to build")
		return
	}
	for _, v := range r.Versions {
		fmt.Printf("Built %d pages for %s\n", v.Pages, v.Version)
	}
	if n := len(r.BrokenLinks); n > 0 {
		fmt.Printf("Warning: %d broken link(s)\n", n)
	}
	if n := len(r.BrokenImages); n > 0 {
		fmt.Printf("Warning: %d broken image(s)\n", n)
	}
	for _, w := range r.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	fmt.Printf("Build complete in %dms: %s\n", r.Duration().Milliseconds(), outputDir)
	slog.Debug("Build summary", slog.String("outcome", string(r.Outcome)), slog.Int("cache_hits", r.CacheHits))
}
