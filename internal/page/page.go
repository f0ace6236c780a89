// Package page assembles complete HTML documentation pages.
package page

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"git.home.luguber.info/inful/docsite/internal/docmodel"
	"git.home.luguber.info/inful/docsite/internal/nav"
)

//go:embed templates/page.html.tmpl
var pageTemplate string

// FuseScript is the bundled Fuse.js asset at the output root.
const FuseScript = "fuse.min.js"

// NavLink is a navbar link. Href links open externally; To is a site path
// without extension.
type NavLink struct {
	Label string
	Href  string
	To    string
}

// Site carries the site-wide values interpolated into every page. Values are
// trusted and written unescaped.
type Site struct {
	Title       string
	Description string
	BaseURL     string
	NavbarTitle string
	NavLinks    []NavLink
	Copyright   string
	// FuseURL is where the browser loads Fuse.js from. Empty means the
	// bundled FuseScript under BaseURL.
	FuseURL string
}

// VersionEntry is one selectable docs version.
type VersionEntry struct {
	Label string
	// Base is the URL prefix of the version's pages, e.g. "/1.0.0/docs/".
	Base  string
	Slugs map[string]bool
	First string
}

// Versions is the version switcher shown in the navbar.
type Versions struct {
	Entries  []VersionEntry
	Selected int
}

// Generator renders documents into pages. It holds no per-build state.
type Generator struct {
	site     Site
	docsBase string
	versions *Versions
	tmpl     *template.Template
}

// Option configures a Generator.
type Option func(*Generator)

// WithDocsBase sets the URL prefix of page links (default BaseURL + "docs/").
func WithDocsBase(base string) Option {
	return func(g *Generator) { g.docsBase = base }
}

// WithVersions enables the navbar version switcher.
func WithVersions(v *Versions) Option {
	return func(g *Generator) { g.versions = v }
}

// New parses the page template.
func New(site Site, opts ...Option) (*Generator, error) {
	tmpl, err := template.New("page").Option("missingkey=error").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	if site.FuseURL == "" {
		site.FuseURL = site.BaseURL + FuseScript
	}
	g := &Generator{site: site, docsBase: site.BaseURL + "docs/", tmpl: tmpl}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// PageURL returns the URL of the page for slug.
func (g *Generator) PageURL(slug string) string {
	return g.docsBase + slug + ".html"
}

type navLinkView struct {
	Label    string
	Href     string
	External bool
}

type sidebarItemView struct {
	Title  string
	Href   string
	Active bool
}

type sidebarCategoryView struct {
	Label  string
	Active bool
	Items  []sidebarItemView
}

type crumbView struct {
	Label string
	Href  string
	Last  bool
}

type versionOptionView struct {
	Label    string
	Href     string
	Selected bool
}

type pageData struct {
	Site        Site
	Title       string
	Description string
	NavLinks    []navLinkView
	Versions    []versionOptionView
	Sidebar     []sidebarCategoryView
	Breadcrumbs []crumbView
	Metadata    []MetadataRow
	Content     string
	TOC         []Heading
	Prev        string
	Next        string
}

// Generate renders the complete HTML page for doc.
func (g *Generator) Generate(doc *docmodel.Document, docs []*docmodel.Document, sidebar []docmodel.SidebarEntry) (string, error) {
	toc, content := TableOfContents(doc.HTML)

	data := pageData{
		Site:        g.site,
		Title:       doc.Title,
		Description: doc.Description,
		NavLinks:    g.navLinks(),
		Versions:    g.versionOptions(doc.Slug),
		Sidebar:     g.sidebar(sidebar, doc.Slug, docs),
		Breadcrumbs: crumbs(nav.Breadcrumbs(sidebar, doc.Slug, doc.Title, g.site.BaseURL)),
		Metadata:    MetadataRows(doc.Metadata),
		Content:     content,
		TOC:         toc,
	}
	if data.Description == "" {
		data.Description = g.site.Description
	}
	p := nav.Paginate(sidebar, doc.Slug)
	if p.Prev != "" {
		data.Prev = g.PageURL(p.Prev)
	}
	if p.Next != "" {
		data.Next = g.PageURL(p.Next)
	}

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render page %s: %w", doc.Slug, err)
	}
	return buf.String(), nil
}

func (g *Generator) navLinks() []navLinkView {
	out := make([]navLinkView, 0, len(g.site.NavLinks))
	for _, l := range g.site.NavLinks {
		if l.Href != "" {
			out = append(out, navLinkView{Label: l.Label, Href: l.Href, External: true})
			continue
		}
		out = append(out, navLinkView{Label: l.Label, Href: g.site.BaseURL + strings.TrimPrefix(l.To, "/") + ".html"})
	}
	return out
}

func (g *Generator) sidebar(entries []docmodel.SidebarEntry, current string, docs []*docmodel.Document) []sidebarCategoryView {
	titles := make(map[string]string, len(docs))
	for _, d := range docs {
		titles[d.Slug] = d.Title
	}

	out := make([]sidebarCategoryView, 0, len(entries))
	for _, e := range entries {
		if e.Type != docmodel.CategoryType {
			continue
		}
		cat := sidebarCategoryView{Label: e.Label}
		for _, slug := range e.Items {
			title := titles[slug]
			if title == "" {
				title = slug[strings.LastIndex(slug, "/")+1:]
			}
			active := slug == current
			cat.Active = cat.Active || active
			cat.Items = append(cat.Items, sidebarItemView{Title: title, Href: g.PageURL(slug), Active: active})
		}
		out = append(out, cat)
	}
	return out
}

func crumbs(in []nav.Crumb) []crumbView {
	out := make([]crumbView, len(in))
	for i, c := range in {
		out[i] = crumbView{Label: c.Label, Href: c.Href, Last: i == len(in)-1}
	}
	return out
}

func (g *Generator) versionOptions(slug string) []versionOptionView {
	if g.versions == nil || len(g.versions.Entries) < 2 {
		return nil
	}
	out := make([]versionOptionView, 0, len(g.versions.Entries))
	for i, e := range g.versions.Entries {
		target := slug
		if !e.Slugs[slug] {
			target = e.First
		}
		out = append(out, versionOptionView{
			Label:    e.Label,
			Href:     e.Base + target + ".html",
			Selected: i == g.versions.Selected,
		})
	}
	return out
}
