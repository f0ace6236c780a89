package build

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docsite/internal/cache"
	"git.home.luguber.info/inful/docsite/internal/docmodel"
	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/frontmatter"
	"git.home.luguber.info/inful/docsite/internal/gitmeta"
	"git.home.luguber.info/inful/docsite/internal/linkcheck"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/markdown"
)

// readAll reads and renders every discovered file in order. The first
// failure aborts the build.
func (b *Builder) readAll(ctx context.Context, r *Report, v *docsVersion) error {
	v.docs = make([]*docmodel.Document, 0, len(v.files))
	hits := 0
	for _, path := range v.files {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, hit, err := b.readDocument(ctx, v.docsRoot, path)
		if err != nil {
			return err
		}
		if hit {
			hits++
		}
		v.docs = append(v.docs, doc)
	}
	r.CacheHits += hits
	b.recorder.AddRenderCacheHits(hits)
	return nil
}

func (b *Builder) readDocument(ctx context.Context, docsRoot, path string) (*docmodel.Document, bool, error) {
	// #nosec G304 -- path was discovered below the configured docs directory
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, derrors.ReadFailed(path, err)
	}
	m, err := frontmatter.Parse(content)
	if err != nil {
		return nil, false, derrors.FrontMatterInvalid(path, err)
	}

	rel, err := filepath.Rel(docsRoot, path)
	if err != nil {
		return nil, false, derrors.ReadFailed(path, err)
	}
	slug := docmodel.Slug(rel)

	html, hit, err := b.render(ctx, m)
	if err != nil {
		return nil, false, derrors.RenderFailed(path, err)
	}

	hist, err := b.history.History(ctx, path)
	if err != nil {
		return nil, false, err
	}

	doc := &docmodel.Document{
		Slug:        slug,
		Title:       frontmatter.String(m.Attributes, "title"),
		Description: frontmatter.String(m.Attributes, "description"),
		HTML:        html,
		Attributes:  m.Attributes,
		SourcePath:  path,
		Body:        m.Body,
		Metadata:    metadataOf(m.Attributes, hist),
	}
	if doc.Title == "" {
		doc.Title = slug
	}
	return doc, hit, nil
}

func metadataOf(attrs map[string]any, h *gitmeta.History) docmodel.Metadata {
	meta := docmodel.Metadata{Author: frontmatter.String(attrs, "author")}
	if h != nil {
		meta.Created = h.Created
		meta.CreatedBy = h.CreatedBy
		meta.LastUpdated = h.LastUpdated
		meta.LastUpdatedBy = h.LastUpdatedBy
	}
	return meta
}

// render converts the Markdown body, consulting the page cache when one is
// configured. Cache failures only cost a re-render.
func (b *Builder) render(ctx context.Context, m *frontmatter.Matter) (string, bool, error) {
	if b.pages == nil {
		html, err := b.renderer.Render(m.Body)
		return html, false, err
	}

	key := cache.PageKey(m.Raw, m.Body, markdown.Version)
	html, ok, err := b.pages.GetPage(ctx, key)
	if err != nil {
		slog.Debug("Render cache lookup failed", logfields.Error(err))
	}
	if ok {
		return html, true, nil
	}

	html, err = b.renderer.Render(m.Body)
	if err != nil {
		return "", false, err
	}
	if err := b.pages.PutPage(ctx, key, html); err != nil {
		slog.Debug("Render cache store failed", logfields.Error(err))
	}
	return html, false, nil
}

// validateLinks checks the internal links of every document of v against
// the files of v.
func validateLinks(v *docsVersion) []docmodel.BrokenLink {
	known := linkcheck.KnownFiles(v.files)
	var broken []docmodel.BrokenLink
	for _, doc := range v.docs {
		broken = append(broken, linkcheck.Validate(doc, v.docsRoot, known)...)
	}
	for _, l := range broken {
		slog.Warn("Broken internal link",
			logfields.File(l.File), logfields.Link(l.Link), slog.String("text", l.Text))
	}
	return broken
}
