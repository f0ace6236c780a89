package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/docmodel"
	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/gitmeta"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/markdown"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/nav"
	"git.home.luguber.info/inful/docsite/internal/page"
)

// SkipNoMarkdown is the SkipReason of a build whose docs directory holds no
// Markdown files.
const SkipNoMarkdown = "no_markdown_files"

// PageCache stores rendered Markdown bodies keyed by source fingerprint.
type PageCache interface {
	GetPage(ctx context.Context, key string) (string, bool, error)
	PutPage(ctx context.Context, key, html string) error
}

// Builder turns the configured docs tree into a static site. A Builder holds
// no per-build state and may run repeatedly, but not concurrently.
type Builder struct {
	cfg      *config.Config
	renderer *markdown.Renderer
	history  gitmeta.Lookup
	pages    PageCache
	recorder metrics.Recorder
	observer Observer
}

// Option configures a Builder.
type Option func(*Builder)

// WithHistory sets the git history lookup (default: no history).
func WithHistory(h gitmeta.Lookup) Option {
	return func(b *Builder) { b.history = h }
}

// WithPageCache enables the render cache.
func WithPageCache(c PageCache) Option {
	return func(b *Builder) { b.pages = c }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) { b.recorder = r }
}

func WithObserver(o Observer) Option {
	return func(b *Builder) { b.observer = o }
}

func WithRenderer(r *markdown.Renderer) Option {
	return func(b *Builder) { b.renderer = r }
}

// New creates a Builder for cfg.
func New(cfg *config.Config, opts ...Option) *Builder {
	b := &Builder{
		cfg:      cfg,
		renderer: markdown.New(markdown.Options{}),
		history:  gitmeta.Noop{},
		recorder: metrics.NoopRecorder{},
		observer: NoopObserver{},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// docsVersion is the working set of one docs version during a build.
type docsVersion struct {
	label       string
	docsRoot    string
	outputRoot  string
	urlBase     string
	sidebarFile string // empty for the current docs

	files   []string
	docs    []*docmodel.Document
	sidebar []docmodel.SidebarEntry
}

// Build runs every stage and returns the report. The report is returned even
// when err is non-nil.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	r := newReport()
	err := b.build(ctx, r)
	r.finish(err)

	b.recorder.ObserveBuildDuration(r.Duration())
	b.recorder.IncBuildOutcome(r.Outcome)
	b.recorder.SetBrokenLinks(len(r.BrokenLinks))
	b.recorder.SetBrokenImages(len(r.BrokenImages))
	b.observer.OnBuildComplete(ctx, r)
	return r, err
}

func (b *Builder) build(ctx context.Context, r *Report) error {
	outputDir := b.cfg.Resolve(b.cfg.OutputDir)
	if err := os.MkdirAll(outputDir, publicDirMode); err != nil {
		return derrors.WriteFailed(outputDir, err)
	}

	planned := b.plan(outputDir)
	var versions []*docsVersion
	for i, v := range planned {
		if err := b.runStage(ctx, r, StageDiscover, v.label, func(context.Context) (bool, error) {
			return false, v.discover()
		}); err != nil {
			return err
		}
		if len(v.files) > 0 {
			versions = append(versions, v)
			continue
		}
		if i == 0 {
			slog.Info("No markdown files found", logfields.Path(v.docsRoot))
			r.SkipReason = SkipNoMarkdown
			return nil
		}
		r.Warnings = append(r.Warnings, fmt.Sprintf("version %s has no markdown files; skipped", v.label))
	}

	switcher := b.switcher(versions)
	for i, v := range versions {
		var opts []page.Option
		opts = append(opts, page.WithDocsBase(v.urlBase))
		if switcher != nil {
			opts = append(opts, page.WithVersions(&page.Versions{Entries: switcher, Selected: i}))
		}
		if err := b.buildVersion(ctx, r, v, opts); err != nil {
			return err
		}
	}

	return b.buildShared(ctx, r, versions[0], outputDir)
}

// plan lists the current docs followed by every configured version whose
// snapshot directory exists.
func (b *Builder) plan(outputDir string) []*docsVersion {
	versions := []*docsVersion{{
		label:      CurrentVersion,
		docsRoot:   b.cfg.Resolve(b.cfg.DocsDir),
		outputRoot: filepath.Join(outputDir, "docs"),
		urlBase:    b.cfg.BaseURL + "docs/",
	}}
	for _, v := range b.cfg.AvailableVersions() {
		root := filepath.Join(b.cfg.VersionsRoot(), "version-"+v)
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			slog.Warn("Version directory missing; skipped", logfields.Version(v), logfields.Path(root))
			continue
		}
		versions = append(versions, &docsVersion{
			label:       v,
			docsRoot:    root,
			outputRoot:  filepath.Join(outputDir, v, "docs"),
			urlBase:     b.cfg.BaseURL + v + "/docs/",
			sidebarFile: filepath.Join(b.cfg.SidebarsRoot(), "version-"+v+"-sidebars.json"),
		})
	}
	return versions
}

// discover collects every .md file below the docs root, sorted. A missing
// docs root yields no files.
func (v *docsVersion) discover() error {
	v.files = nil
	err := filepath.WalkDir(v.docsRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".md") {
			v.files = append(v.files, path)
		}
		return nil
	})
	if err != nil {
		return derrors.ReadFailed(v.docsRoot, err)
	}
	sort.Strings(v.files)
	return nil
}

// stubIndex maps the slugs of the discovered files to placeholder documents.
func (v *docsVersion) stubIndex() map[string]*docmodel.Document {
	idx := make(map[string]*docmodel.Document, len(v.files))
	for _, f := range v.files {
		rel, err := filepath.Rel(v.docsRoot, f)
		if err != nil {
			continue
		}
		slug := docmodel.Slug(rel)
		idx[slug] = &docmodel.Document{Slug: slug}
	}
	return idx
}

// sidebarFor returns the generated sidebar for the current docs and the
// versioned sidebar file for snapshots, falling back to a generated one when
// the file is missing or unreadable.
func (v *docsVersion) sidebarFor(known map[string]*docmodel.Document) ([]docmodel.SidebarEntry, error) {
	docs := make([]*docmodel.Document, 0, len(known))
	for _, d := range known {
		docs = append(docs, d)
	}
	if v.sidebarFile == "" {
		return nav.GenerateSidebar(docs), nil
	}
	sidebar, err := nav.LoadSidebar(v.sidebarFile, known)
	if err != nil {
		return nav.GenerateSidebar(docs), err
	}
	return sidebar, nil
}

// switcher builds the navbar version entries. It returns nil for a single
// version.
func (b *Builder) switcher(versions []*docsVersion) []page.VersionEntry {
	if len(versions) < 2 {
		return nil
	}
	latest := ""
	if b.cfg.Versions != nil {
		latest = b.cfg.Versions.Latest
	}

	entries := make([]page.VersionEntry, 0, len(versions))
	for _, v := range versions {
		known := v.stubIndex()
		slugs := make(map[string]bool, len(known))
		for s := range known {
			slugs[s] = true
		}
		sidebar, _ := v.sidebarFor(known)
		first := ""
		if flat := nav.Flatten(sidebar); len(flat) > 0 {
			first = flat[0]
		}

		label := "Current"
		if v.label != CurrentVersion {
			label = v.label
			if v.label == latest {
				label += " (latest)"
			}
		}
		entries = append(entries, page.VersionEntry{Label: label, Base: v.urlBase, Slugs: slugs, First: first})
	}
	return entries
}

// buildVersion runs the per-version stages after discovery.
func (b *Builder) buildVersion(ctx context.Context, r *Report, v *docsVersion, opts []page.Option) error {
	if err := b.runStage(ctx, r, StageReadAll, v.label, func(ctx context.Context) (bool, error) {
		return false, b.readAll(ctx, r, v)
	}); err != nil {
		return err
	}

	if err := b.runStage(ctx, r, StageValidateLinks, v.label, func(context.Context) (bool, error) {
		broken := validateLinks(v)
		r.BrokenLinks = append(r.BrokenLinks, broken...)
		return len(broken) > 0, nil
	}); err != nil {
		return err
	}

	if err := b.runStage(ctx, r, StageBuildNav, v.label, func(context.Context) (bool, error) {
		sidebar, err := v.sidebarFor(docmodel.Index(v.docs))
		v.sidebar = sidebar
		if err != nil {
			slog.Warn("Versioned sidebar unavailable; using generated sidebar",
				logfields.Version(v.label), logfields.Error(err))
			r.Warnings = append(r.Warnings, fmt.Sprintf("version %s: %v", v.label, err))
			return true, nil
		}
		return false, nil
	}); err != nil {
		return err
	}

	return b.runStage(ctx, r, StageRenderAll, v.label, func(ctx context.Context) (bool, error) {
		n, err := b.renderAll(ctx, v, opts)
		r.Versions = append(r.Versions, VersionReport{Version: v.label, Pages: n, OutputDir: v.outputRoot})
		b.recorder.AddPagesRendered(v.label, n)
		return false, err
	})
}

// CurrentSidebar returns the generated sidebar of the current docs without
// reading their contents.
func CurrentSidebar(cfg *config.Config) ([]docmodel.SidebarEntry, error) {
	v := &docsVersion{label: CurrentVersion, docsRoot: cfg.Resolve(cfg.DocsDir)}
	if err := v.discover(); err != nil {
		return nil, err
	}
	return v.sidebarFor(v.stubIndex())
}
