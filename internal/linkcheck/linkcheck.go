// Package linkcheck finds relative Markdown links that do not resolve to a
// known documentation file.
package linkcheck

import (
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/docmodel"
)

var linkPattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// Link is an internal link found in a Markdown body.
type Link struct {
	Text     string
	Target   string
	Position int
}

// IsInternal reports whether target refers to a file inside the site rather
// than an external URL, an in-page anchor or a mail address.
func IsInternal(target string) bool {
	for _, p := range []string{"http://", "https://", "#", "mailto:"} {
		if strings.HasPrefix(target, p) {
			return false
		}
	}
	return true
}

// ExtractInternalLinks returns every [text](target) link in body whose target
// is internal. Image references are skipped.
func ExtractInternalLinks(body []byte) []Link {
	var links []Link
	for _, m := range linkPattern.FindAllSubmatchIndex(body, -1) {
		if m[0] > 0 && body[m[0]-1] == '!' {
			continue
		}
		target := string(body[m[4]:m[5]])
		if !IsInternal(target) {
			continue
		}
		links = append(links, Link{
			Text:     string(body[m[2]:m[3]]),
			Target:   target,
			Position: m[0],
		})
	}
	return links
}

// stripSuffixes drops a #fragment or ?query from a link target.
func stripSuffixes(target string) string {
	if i := strings.IndexAny(target, "#?"); i >= 0 {
		return target[:i]
	}
	return target
}

// KnownFiles normalizes a list of Markdown paths for Validate.
func KnownFiles(paths []string) map[string]bool {
	known := make(map[string]bool, len(paths))
	for _, p := range paths {
		known[normalize(p)] = true
	}
	return known
}

func normalize(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return filepath.ToSlash(filepath.Clean(p))
}

// Validate resolves each internal link of doc relative to the document's
// directory and reports the ones that do not name a known file.
func Validate(doc *docmodel.Document, docsRoot string, known map[string]bool) []docmodel.BrokenLink {
	dir := filepath.Dir(doc.SourcePath)
	rel, err := filepath.Rel(docsRoot, doc.SourcePath)
	if err != nil {
		rel = doc.SourcePath
	}
	rel = filepath.ToSlash(rel)

	var broken []docmodel.BrokenLink
	for _, l := range ExtractInternalLinks(doc.Body) {
		target := stripSuffixes(l.Target)
		if target == "" {
			continue
		}
		resolved := normalize(filepath.Join(dir, filepath.FromSlash(target)))
		if filepath.IsAbs(target) {
			resolved = normalize(target)
		}
		if known[resolved] {
			continue
		}
		broken = append(broken, docmodel.BrokenLink{File: rel, Link: l.Target, Text: l.Text})
	}
	return broken
}
