// Package nav derives the sidebar, breadcrumbs and previous/next links of a
// documentation site from its document slugs.
package nav

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/docsite/internal/docmodel"
)

// RootCategoryLabel labels the category holding top-level documents.
const RootCategoryLabel = "Getting Started"

// CategoryLabel turns a kebab-case folder name into a label: each word gets
// an upper-case first letter and keeps the rest unchanged.
func CategoryLabel(folder string) string {
	caser := cases.Title(language.Und, cases.NoLower)
	words := strings.Split(folder, "-")
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

// GenerateSidebar groups documents by their first path segment. Root
// documents come first under RootCategoryLabel; the other categories follow
// ordered by folder name. Items are sorted by slug.
func GenerateSidebar(docs []*docmodel.Document) []docmodel.SidebarEntry {
	var root []string
	categories := map[string][]string{}
	for _, d := range docs {
		folder, _, nested := strings.Cut(d.Slug, "/")
		if !nested {
			root = append(root, d.Slug)
			continue
		}
		categories[folder] = append(categories[folder], d.Slug)
	}

	var sidebar []docmodel.SidebarEntry
	if len(root) > 0 {
		sort.Strings(root)
		sidebar = append(sidebar, docmodel.SidebarEntry{Type: docmodel.CategoryType, Label: RootCategoryLabel, Items: root})
	}

	folders := make([]string, 0, len(categories))
	for f := range categories {
		folders = append(folders, f)
	}
	sort.Strings(folders)
	for _, f := range folders {
		items := categories[f]
		sort.Strings(items)
		sidebar = append(sidebar, docmodel.SidebarEntry{Type: docmodel.CategoryType, Label: CategoryLabel(f), Items: items})
	}
	return sidebar
}

// Flatten lists every sidebar slug in display order.
func Flatten(sidebar []docmodel.SidebarEntry) []string {
	var out []string
	for _, e := range sidebar {
		if e.Type != docmodel.CategoryType {
			continue
		}
		out = append(out, e.Items...)
	}
	return out
}

// Crumb is one breadcrumb. Href is empty for non-link crumbs.
type Crumb struct {
	Label string
	Href  string
}

// Breadcrumbs returns Home, the category and the page title for slug, or nil
// when slug is not in the sidebar.
func Breadcrumbs(sidebar []docmodel.SidebarEntry, slug, title, baseURL string) []Crumb {
	for _, e := range sidebar {
		if e.Type != docmodel.CategoryType {
			continue
		}
		for _, item := range e.Items {
			if item == slug {
				return []Crumb{
					{Label: "Home", Href: baseURL},
					{Label: e.Label},
					{Label: title},
				}
			}
		}
	}
	return nil
}

// Pagination holds the neighbours of a page in sidebar order.
type Pagination struct {
	Prev string
	Next string
}

// Paginate finds the previous and next slugs around slug. A slug missing from
// the sidebar gets only a Next link to the first page, mirroring index -1.
func Paginate(sidebar []docmodel.SidebarEntry, slug string) Pagination {
	flat := Flatten(sidebar)
	idx := -1
	for i, s := range flat {
		if s == slug {
			idx = i
			break
		}
	}
	var p Pagination
	if idx > 0 {
		p.Prev = flat[idx-1]
	}
	if idx < len(flat)-1 {
		p.Next = flat[idx+1]
	}
	return p
}

// LoadSidebar reads a sidebar JSON file and drops items whose slug is not in
// known. Categories left empty are removed.
func LoadSidebar(path string, known map[string]*docmodel.Document) ([]docmodel.SidebarEntry, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- sidebar path derived from configuration
	if err != nil {
		return nil, err
	}
	var raw []docmodel.SidebarEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode sidebar %s: %w", path, err)
	}

	out := make([]docmodel.SidebarEntry, 0, len(raw))
	for _, e := range raw {
		if e.Type == "" {
			e.Type = docmodel.CategoryType
		}
		items := make([]string, 0, len(e.Items))
		for _, s := range e.Items {
			if _, ok := known[s]; ok {
				items = append(items, s)
			}
		}
		if len(items) == 0 {
			continue
		}
		e.Items = items
		out = append(out, e)
	}
	return out, nil
}

// WriteSidebar stores sidebar as indented JSON.
func WriteSidebar(path string, sidebar []docmodel.SidebarEntry) error {
	data, err := json.MarshalIndent(sidebar, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
