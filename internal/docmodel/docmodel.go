// Package docmodel holds the immutable values passed between build stages.
package docmodel

import (
	"path/filepath"
	"strings"
)

// Metadata is the optional authorship and history of a document.
// Empty strings mean absent.
type Metadata struct {
	Author        string
	Created       string
	CreatedBy     string
	LastUpdated   string
	LastUpdatedBy string
}

// IsZero reports whether no metadata field is present.
func (m Metadata) IsZero() bool {
	return m == Metadata{}
}

// Document is one Markdown source file, fully read and rendered.
type Document struct {
	Slug        string
	Title       string
	Description string
	HTML        string
	Attributes  map[string]any
	SourcePath  string
	Body        []byte
	Metadata    Metadata
}

// SidebarEntry is one category group of the sidebar.
type SidebarEntry struct {
	Type  string   `json:"type"`
	Label string   `json:"label"`
	Items []string `json:"items"`
}

// CategoryType is the only sidebar entry type.
const CategoryType = "category"

// BrokenLink is an internal link whose target does not exist.
type BrokenLink struct {
	File string `json:"file"`
	Link string `json:"link"`
	Text string `json:"text"`
}

// BrokenImage is a local image reference whose file does not exist.
type BrokenImage struct {
	File  string `json:"file"`
	Image string `json:"image"`
	Alt   string `json:"alt"`
}

// SearchEntry is one record of search-index.json.
type SearchEntry struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

// Slug derives the document slug from a path relative to the docs root:
// the .md extension is stripped and separators become forward slashes.
func Slug(relPath string) string {
	s := filepath.ToSlash(relPath)
	s = strings.ReplaceAll(s, `\`, "/")
	return strings.TrimSuffix(s, ".md")
}

// Index maps slugs to documents.
func Index(docs []*Document) map[string]*Document {
	m := make(map[string]*Document, len(docs))
	for _, d := range docs {
		m[d.Slug] = d
	}
	return m
}
