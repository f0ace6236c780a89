// Package theme provides the site's static assets: stylesheets and the
// client-side scripts for search, code blocks, tabs and dark mode.
package theme

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
)

//go:embed assets/*
var embedded embed.FS

// DefaultCodeStyle is the chroma style used for highlight.css.
const DefaultCodeStyle = "github-dark"

// HighlightCSS is the name of the generated syntax highlighting stylesheet.
const HighlightCSS = "highlight.css"

// Asset is a file written to the output directory root.
type Asset struct {
	Path    string // slash-separated, relative to the output directory
	Content []byte
}

// Assets returns the embedded defaults plus the generated highlight.css,
// sorted by path.
func Assets(codeStyle string) ([]*Asset, error) {
	entries, err := fs.ReadDir(embedded, "assets")
	if err != nil {
		return nil, fmt.Errorf("read embedded assets: %w", err)
	}
	out := make([]*Asset, 0, len(entries)+1)
	for _, e := range entries {
		data, err := embedded.ReadFile("assets/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded asset %s: %w", e.Name(), err)
		}
		out = append(out, &Asset{Path: e.Name(), Content: data})
	}

	css, err := GenerateHighlightCSS(codeStyle)
	if err != nil {
		return nil, err
	}
	out = append(out, &Asset{Path: HighlightCSS, Content: css})

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// GenerateHighlightCSS renders the CSS classes for a chroma style. Unknown
// style names fall back to the default style.
func GenerateHighlightCSS(codeStyle string) ([]byte, error) {
	style, ok := styles.Registry[codeStyle]
	if !ok {
		style = styles.Get(DefaultCodeStyle)
	}
	var buf bytes.Buffer
	if err := html.New(html.WithClasses(true)).WriteCSS(&buf, style); err != nil {
		return nil, fmt.Errorf("generate %s: %w", HighlightCSS, err)
	}
	return buf.Bytes(), nil
}

// Overlay reads every regular file under dir. A missing dir yields no assets.
func Overlay(dir string) ([]*Asset, error) {
	if dir == "" {
		return nil, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var out []*Asset
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out = append(out, &Asset{Path: filepath.ToSlash(rel), Content: data})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read theme overlay %s: %w", dir, err)
	}
	return out, nil
}

// Write copies the theme into outputDir. Files in overlayDir replace the
// embedded asset of the same path or add new ones. It returns the written
// paths.
func Write(outputDir, overlayDir, codeStyle string) ([]string, error) {
	assets, err := Assets(codeStyle)
	if err != nil {
		return nil, err
	}
	overlay, err := Overlay(overlayDir)
	if err != nil {
		return nil, err
	}

	byPath := make(map[string]*Asset, len(assets)+len(overlay))
	for _, a := range assets {
		byPath[a.Path] = a
	}
	for _, a := range overlay {
		byPath[a.Path] = a
	}

	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		target := filepath.Join(outputDir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("create asset dir: %w", err)
		}
		// #nosec G306 -- theme assets are public
		if err := os.WriteFile(target, byPath[p].Content, 0o644); err != nil {
			return nil, fmt.Errorf("write asset %s: %w", p, err)
		}
	}
	return paths, nil
}
