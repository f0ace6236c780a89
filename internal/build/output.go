package build

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/docsite/internal/docmodel"
	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/images"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/markdown"
	"git.home.luguber.info/inful/docsite/internal/nav"
	"git.home.luguber.info/inful/docsite/internal/page"
	"git.home.luguber.info/inful/docsite/internal/theme"
)

// Output file names at the output directory root.
const (
	SearchIndexFile  = "search-index.json"
	SearchConfigFile = "search-config.json"
	IndexFile        = "index.html"
)

// The output directory is a public site served by other users' processes.
const (
	publicDirMode  os.FileMode = 0o755
	publicFileMode os.FileMode = 0o644
)

func (b *Builder) site() page.Site {
	links := make([]page.NavLink, len(b.cfg.Navbar.Links))
	for i, l := range b.cfg.Navbar.Links {
		links[i] = page.NavLink{Label: l.Label, Href: l.Href, To: l.To}
	}
	return page.Site{
		Title:       b.cfg.Title,
		Description: b.cfg.Description,
		BaseURL:     b.cfg.BaseURL,
		NavbarTitle: b.cfg.Navbar.Title,
		NavLinks:    links,
		Copyright:   b.cfg.Footer.Copyright,
		FuseURL:     b.cfg.Theme.FuseURL,
	}
}

// renderAll writes one page per document of v and returns the page count.
func (b *Builder) renderAll(ctx context.Context, v *docsVersion, opts []page.Option) (int, error) {
	gen, err := page.New(b.site(), opts...)
	if err != nil {
		return 0, err
	}
	for i, doc := range v.docs {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		html, err := gen.Generate(doc, v.docs, v.sidebar)
		if err != nil {
			return i, derrors.RenderFailed(doc.SourcePath, err)
		}
		target := filepath.Join(v.outputRoot, filepath.FromSlash(doc.Slug)+".html")
		if err := writeFile(target, []byte(html)); err != nil {
			return i, err
		}
	}
	slog.Info("Built pages", logfields.Version(v.label), logfields.Count(len(v.docs)))
	return len(v.docs), nil
}

// buildShared runs the stages that operate on the current docs only.
func (b *Builder) buildShared(ctx context.Context, r *Report, current *docsVersion, outputDir string) error {
	if err := b.runStage(ctx, r, StageCopyAssets, current.label, func(context.Context) (bool, error) {
		written, err := theme.Write(outputDir, b.cfg.Resolve(b.cfg.Theme.Dir), b.cfg.Theme.CodeStyle)
		if err != nil {
			return false, err
		}
		r.Assets = written
		return false, b.writeSearchConfig(outputDir)
	}); err != nil {
		return err
	}

	if err := b.runStage(ctx, r, StageProcessImages, current.label, func(ctx context.Context) (bool, error) {
		res, err := images.Process(ctx, current.docs, current.docsRoot, outputDir)
		if err != nil {
			return false, err
		}
		r.CopiedImages = res.Copied
		r.BrokenImages = res.Broken
		for _, img := range res.Broken {
			slog.Warn("Broken image reference", logfields.File(img.File), logfields.Image(img.Image))
		}
		return len(res.Broken) > 0, nil
	}); err != nil {
		return err
	}

	if err := b.runStage(ctx, r, StageWriteSearchIndex, current.label, func(ctx context.Context) (bool, error) {
		entries, err := searchEntries(ctx, current.docs)
		if err != nil {
			return false, err
		}
		return false, writeJSON(filepath.Join(outputDir, SearchIndexFile), entries)
	}); err != nil {
		return err
	}

	return b.runStage(ctx, r, StageWriteIndexRedirect, current.label, func(context.Context) (bool, error) {
		flat := nav.Flatten(current.sidebar)
		if len(flat) == 0 {
			return false, nil
		}
		return false, writeFile(filepath.Join(outputDir, IndexFile), []byte(redirectPage(current.urlBase+flat[0]+".html")))
	})
}

type searchConfig struct {
	MaxResults     int     `json:"maxResults"`
	FuzzyThreshold float64 `json:"fuzzyThreshold"`
	MinMatchLength int     `json:"minMatchLength"`
	BaseURL        string  `json:"baseUrl"`
}

func (b *Builder) writeSearchConfig(outputDir string) error {
	return writeJSON(filepath.Join(outputDir, SearchConfigFile), searchConfig{
		MaxResults:     b.cfg.Search.MaxResults,
		FuzzyThreshold: b.cfg.Search.FuzzyThreshold,
		MinMatchLength: b.cfg.Search.MinMatchLength,
		BaseURL:        b.cfg.BaseURL,
	})
}

// searchEntries projects every document into a search record. Projections
// are independent and run concurrently; the result keeps document order.
func searchEntries(ctx context.Context, docs []*docmodel.Document) ([]docmodel.SearchEntry, error) {
	entries := make([]docmodel.SearchEntry, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries[i] = docmodel.SearchEntry{
				Title:       doc.Title,
				Slug:        doc.Slug,
				Description: doc.Description,
				Content:     markdown.PlainText(doc.Body),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func redirectPage(target string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta http-equiv="refresh" content="0;url=%[1]s">
</head>
<body>
  <p>Redirecting to <a href="%[1]s">documentation</a>...</p>
</body>
</html>`, target)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), publicDirMode); err != nil {
		return derrors.WriteFailed(path, err)
	}
	// #nosec G306 -- generated site files are public
	if err := os.WriteFile(path, data, publicFileMode); err != nil {
		return derrors.WriteFailed(path, err)
	}
	return nil
}
