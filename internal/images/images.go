// Package images validates local image references in documentation bodies
// and copies the referenced files into the output tree.
package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/docsite/internal/docmodel"
	"git.home.luguber.info/inful/docsite/internal/logfields"
)

var (
	markdownImage = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	htmlImage     = regexp.MustCompile(`<img[^>]+src=["']([^"']+)["']`)
)

// copyConcurrency bounds parallel file copies.
const copyConcurrency = 8

// Reference is one local image referenced from a document.
type Reference struct {
	Alt  string
	Path string
}

func isRemote(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

func clean(p string) string {
	p, _, _ = strings.Cut(p, "?")
	p, _, _ = strings.Cut(p, "#")
	return p
}

// ExtractReferences returns the local images of body: Markdown images first,
// then HTML <img> tags, each with query and fragment removed.
func ExtractReferences(body []byte) []Reference {
	var refs []Reference
	for _, m := range markdownImage.FindAllSubmatch(body, -1) {
		if p := string(m[2]); !isRemote(p) {
			refs = append(refs, Reference{Alt: string(m[1]), Path: clean(p)})
		}
	}
	for _, m := range htmlImage.FindAllSubmatch(body, -1) {
		if p := string(m[1]); !isRemote(p) {
			refs = append(refs, Reference{Path: clean(p)})
		}
	}
	return refs
}

// Result summarizes an image pass.
type Result struct {
	// Copied lists output-relative paths, sorted.
	Copied []string
	Broken []docmodel.BrokenImage
}

type copyJob struct {
	source   string
	relative string
}

// Process resolves every image referenced by docs, copies the existing ones
// to outputDir keeping their path relative to the parent of docsRoot, and
// reports the missing ones. Root-relative paths (/img/a.png) resolve against
// the parent of docsRoot; other paths against the referencing document.
func Process(ctx context.Context, docs []*docmodel.Document, docsRoot, outputDir string) (*Result, error) {
	base := filepath.Dir(filepath.Clean(docsRoot))
	if err := os.MkdirAll(filepath.Join(outputDir, "images"), 0o755); err != nil {
		return nil, fmt.Errorf("create images directory: %w", err)
	}

	res := &Result{}
	seen := map[copyJob]bool{}
	var jobs []copyJob

	for _, doc := range docs {
		docRel, err := filepath.Rel(docsRoot, doc.SourcePath)
		if err != nil {
			docRel = doc.SourcePath
		}
		for _, ref := range ExtractReferences(doc.Body) {
			var source string
			if strings.HasPrefix(ref.Path, "/") {
				source = filepath.Join(base, filepath.FromSlash(ref.Path))
			} else {
				source = filepath.Join(filepath.Dir(doc.SourcePath), filepath.FromSlash(ref.Path))
			}

			if _, err := os.Stat(source); err != nil {
				res.Broken = append(res.Broken, docmodel.BrokenImage{
					File:  filepath.ToSlash(docRel),
					Image: ref.Path,
					Alt:   ref.Alt,
				})
				continue
			}

			rel, err := filepath.Rel(base, source)
			if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				slog.Warn("Skipping image outside the project", logfields.Image(ref.Path), logfields.File(docRel))
				continue
			}
			job := copyJob{source: source, relative: filepath.ToSlash(rel)}
			if !seen[job] {
				seen[job] = true
				jobs = append(jobs, job)
			}
		}
	}

	copied := make([]bool, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(copyConcurrency)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			target := filepath.Join(outputDir, filepath.FromSlash(job.relative))
			if err := copyFile(job.source, target); err != nil {
				slog.Warn("Failed to copy image", logfields.Image(job.relative), logfields.Error(err))
				return nil
			}
			copied[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, ok := range copied {
		if ok {
			res.Copied = append(res.Copied, jobs[i].relative)
		}
	}
	sort.Strings(res.Copied)
	return res, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src) // #nosec G304 -- path resolved from a referenced, existing image
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst) // #nosec G304 -- destination inside the output directory
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
