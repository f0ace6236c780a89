package build

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/docmodel"
	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/gitmeta"
	"git.home.luguber.info/inful/docsite/internal/metrics"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
}

func loadConfig(t *testing.T, root, raw string) *config.Config {
	t.Helper()
	p := filepath.Join(root, "config.json")
	require.NoError(t, os.WriteFile(p, []byte(raw), 0o600))
	cfg, err := config.Load(p)
	require.NoError(t, err)
	return cfg
}

const baseConfig = `{
	"title": "Test Docs",
	"description": "Site description",
	"navbar": {"title": "Test", "links": [{"label": "Home", "to": "docs/index"}]},
	"footer": {"copyright": "(c) Test"}
}`

func sampleProject(t *testing.T) (string, *config.Config) {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"docs/index.md": "---\ntitle: Welcome\ndescription: Start here\nauthor: Ada\n---\n# Welcome\n\nSee the [guide](./guides/getting-started.md).\n",
		"docs/guides/getting-started.md": "---\ntitle: Getting Started\n---\n## Install\n\n" +
			"Back to [home](../index.md) or [nowhere](./missing.md).\n\n" +
			"![Logo](/images/logo.png)\n![Gone](nope.png)\n\n" +
			"```go title=\"main.go\" {1}\npackage main\n```\n",
		"images/logo.png": "png-bytes",
	})
	return root, loadConfig(t, root, baseConfig)
}

func readOut(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, "build", filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestBuild_WritesSite(t *testing.T) {
	root, cfg := sampleProject(t)

	report, err := New(cfg).Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, metrics.BuildOutcomeWarning, report.Outcome)
	require.Equal(t, 2, report.Pages())
	require.Empty(t, report.SkipReason)

	require.Len(t, report.BrokenLinks, 1)
	require.Equal(t, docmodel.BrokenLink{File: "guides/getting-started.md", Link: "./missing.md", Text: "nowhere"}, report.BrokenLinks[0])
	require.Len(t, report.BrokenImages, 1)
	require.Equal(t, "nope.png", report.BrokenImages[0].Image)
	require.Equal(t, []string{"images/logo.png"}, report.CopiedImages)

	index := readOut(t, root, "docs/index.html")
	require.Contains(t, index, "<title>Welcome")
	require.Contains(t, index, "Ada")
	require.Contains(t, index, `<script src="/fuse.min.js"></script>`)

	guide := readOut(t, root, "docs/guides/getting-started.html")
	require.Contains(t, guide, `id="heading-0"`)
	require.Contains(t, guide, "main.go")
	require.Contains(t, guide, `href="/docs/index.html"`)

	require.Equal(t, "png-bytes", readOut(t, root, "images/logo.png"))
	for _, asset := range []string{"styles.css", "highlight.css", "search.js", "tabs.js", "dark-mode.js", "fuse.min.js"} {
		require.Contains(t, report.Assets, asset)
		readOut(t, root, asset)
	}

	var entries []docmodel.SearchEntry
	require.NoError(t, json.Unmarshal([]byte(readOut(t, root, SearchIndexFile)), &entries))
	require.Len(t, entries, 2)
	require.Equal(t, "guides/getting-started", entries[0].Slug)
	require.Equal(t, "Getting Started", entries[0].Title)
	require.NotContains(t, entries[0].Content, "package main")

	var sc map[string]any
	require.NoError(t, json.Unmarshal([]byte(readOut(t, root, SearchConfigFile)), &sc))
	require.Equal(t, map[string]any{"maxResults": 10.0, "fuzzyThreshold": 0.3, "minMatchLength": 2.0, "baseUrl": "/"}, sc)

	redirect := readOut(t, root, IndexFile)
	require.Contains(t, redirect, `content="0;url=/docs/index.html"`)

	for _, stage := range Stages {
		_, ok := report.StageDurations[stage]
		require.True(t, ok, stage)
	}
}

func TestBuild_OutputIsWorldReadable(t *testing.T) {
	root, cfg := sampleProject(t)
	_, err := New(cfg).Build(context.Background())
	require.NoError(t, err)

	for _, rel := range []string{"docs/index.html", "docs/guides/getting-started.html", IndexFile, SearchIndexFile, SearchConfigFile, "styles.css", "search.js"} {
		info, err := os.Stat(filepath.Join(root, "build", filepath.FromSlash(rel)))
		require.NoError(t, err)
		require.NotZero(t, info.Mode().Perm()&0o004, "%s mode %v", rel, info.Mode())
	}
	for _, rel := range []string{".", "docs", "docs/guides"} {
		info, err := os.Stat(filepath.Join(root, "build", rel))
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o005), info.Mode().Perm()&0o005, "%s mode %v", rel, info.Mode())
	}
}

func TestBuild_TitleDefaultsToSlug(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"docs/reference/api.md": "No front matter here.\n"})
	cfg := loadConfig(t, root, baseConfig)

	_, err := New(cfg).Build(context.Background())
	require.NoError(t, err)

	var entries []docmodel.SearchEntry
	require.NoError(t, json.Unmarshal([]byte(readOut(t, root, SearchIndexFile)), &entries))
	require.Equal(t, "reference/api", entries[0].Title)
	require.Contains(t, readOut(t, root, IndexFile), "/docs/reference/api.html")
}

func snapshotTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		require.NoError(t, err)
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		rel, _ := filepath.Rel(dir, path)
		out[rel] = string(data)
		return nil
	}))
	return out
}

func TestBuild_IsIdempotent(t *testing.T) {
	root, cfg := sampleProject(t)
	hist := gitmeta.Static{
		filepath.Join(root, "docs", "index.md"): {Created: "January 5, 2023", CreatedBy: "Ada", LastUpdated: "March 10, 2024", LastUpdatedBy: "Grace"},
	}
	b := New(cfg, WithHistory(hist))

	_, err := b.Build(context.Background())
	require.NoError(t, err)
	first := snapshotTree(t, filepath.Join(root, "build"))

	_, err = b.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, snapshotTree(t, filepath.Join(root, "build")))
	require.Contains(t, first[filepath.Join("docs", "index.html")], "March 10, 2024")
}

func TestBuild_NoMarkdownFiles(t *testing.T) {
	root := t.TempDir()
	cfg := loadConfig(t, root, baseConfig)

	report, err := New(cfg).Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, SkipNoMarkdown, report.SkipReason)
	require.Equal(t, metrics.BuildOutcomeSuccess, report.Outcome)
	_, err = os.Stat(filepath.Join(root, "build", SearchIndexFile))
	require.True(t, os.IsNotExist(err))
}

func TestBuild_InvalidFrontMatterAborts(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"docs/bad.md": "---\ntitle: [unclosed\n---\nbody\n"})
	cfg := loadConfig(t, root, baseConfig)

	report, err := New(cfg).Build(context.Background())
	require.Error(t, err)
	require.True(t, derrors.IsCategory(err, derrors.CategoryContent))
	require.Equal(t, metrics.BuildOutcomeFailed, report.Outcome)
}

func TestBuild_Canceled(t *testing.T) {
	_, cfg := sampleProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(cfg).Build(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, metrics.BuildOutcomeCanceled, report.Outcome)
}

type memPages struct {
	mu    sync.Mutex
	pages map[string]string
}

func (m *memPages) GetPage(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	html, ok := m.pages[key]
	return html, ok, nil
}

func (m *memPages) PutPage(_ context.Context, key, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[key] = html
	return nil
}

func TestBuild_RenderCache(t *testing.T) {
	_, cfg := sampleProject(t)
	pages := &memPages{pages: map[string]string{}}
	b := New(cfg, WithPageCache(pages))

	report, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.CacheHits)
	require.Len(t, pages.pages, 2)

	report, err = b.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.CacheHits)
}

func TestBuild_ObserverReceivesReport(t *testing.T) {
	_, cfg := sampleProject(t)
	var got *Report
	var stages []Stage
	obs := Observers{
		BuildCompleteFunc(func(_ context.Context, r *Report) { got = r }),
		stageRecorder{stages: &stages},
	}

	report, err := New(cfg, WithObserver(obs)).Build(context.Background())
	require.NoError(t, err)
	require.Same(t, report, got)
	require.Equal(t, Stages, stages)

	s := report.Summary()
	require.Equal(t, "warning", s.Outcome)
	require.Equal(t, 2, s.Pages)
	require.Equal(t, 1, s.BrokenLinks)
	require.Equal(t, []VersionReport{{Version: CurrentVersion, Pages: 2, OutputDir: filepath.Join(filepath.Dir(cfg.Path()), "build", "docs")}}, s.Versions)
}

type stageRecorder struct{ stages *[]Stage }

func (s stageRecorder) OnStageComplete(stage Stage, _ string, _ time.Duration, _ metrics.ResultLabel) {
	*s.stages = append(*s.stages, stage)
}
func (stageRecorder) OnBuildComplete(context.Context, *Report) {}

func TestBuild_Versions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"docs/intro.md":                          "---\ntitle: Intro\n---\nCurrent intro\n",
		"docs/guides/new.md":                     "---\ntitle: New\n---\nOnly in current\n",
		"versioned_docs/version-1.0.0/intro.md":  "---\ntitle: Old Intro\n---\nOld intro\n",
		"versioned_docs/version-0.9.0/legacy.md": "---\ntitle: Legacy\n---\nLegacy\n",
		"versioned_sidebars/version-1.0.0-sidebars.json": `[{"type":"category","label":"Basics","items":["intro","removed"]}]`,
	})
	cfg := loadConfig(t, root, `{
	"title": "Versioned",
	"versions": {"current": "0.9.0", "latest": "1.0.0", "available": ["1.0.0", "0.9.0", "0.1.0"]},
	"versionsDir": "versioned_docs"
}`)

	report, err := New(cfg).Build(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Versions, 3)
	require.Equal(t, []string{CurrentVersion, "1.0.0", "0.9.0"},
		[]string{report.Versions[0].Version, report.Versions[1].Version, report.Versions[2].Version})
	// 0.9.0 has no sidebar file.
	require.Len(t, report.Warnings, 1)

	old := readOut(t, root, "1.0.0/docs/intro.html")
	require.Contains(t, old, "Old intro")
	require.Contains(t, old, "Basics")
	require.Contains(t, old, `<option value="/1.0.0/docs/intro.html" selected>1.0.0 (latest)</option>`)
	require.Contains(t, old, `<option value="/docs/intro.html">Current</option>`)
	require.Contains(t, old, `<option value="/0.9.0/docs/legacy.html">0.9.0</option>`)

	current := readOut(t, root, "docs/guides/new.html")
	require.Contains(t, current, `<option value="/1.0.0/docs/intro.html">1.0.0 (latest)</option>`)

	readOut(t, root, "0.9.0/docs/legacy.html")

	var entries []docmodel.SearchEntry
	require.NoError(t, json.Unmarshal([]byte(readOut(t, root, SearchIndexFile)), &entries))
	require.Len(t, entries, 2)
}
