// Package search answers queries against a built site's search index with
// an in-memory bleve index. It backs the search command and the server's
// search API; the browser uses Fuse.js over the same search-index.json.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"git.home.luguber.info/inful/docsite/internal/docmodel"
)

// fields lists the indexed fields with the boost their matches get.
var fields = []struct {
	name  string
	boost float64
}{
	{"title", 3},
	{"description", 2},
	{"content", 1},
}

// Options tunes query behaviour. Values mirror the search config section.
type Options struct {
	MaxResults     int
	FuzzyThreshold float64
	MinMatchLength int
	// BaseURL prefixes hit URLs.
	BaseURL string
}

// Hit is one search result.
type Hit struct {
	Title       string  `json:"title"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	Score       float64 `json:"score"`
}

// Index is a queryable in-memory index of search entries.
type Index struct {
	idx     bleve.Index
	entries map[string]docmodel.SearchEntry
	opts    Options
}

// Fuzziness maps a Fuse-style threshold (0 exact, 1 anything) to the
// Levenshtein distance used for fuzzy term queries.
func Fuzziness(threshold float64) int {
	switch {
	case threshold < 0.1:
		return 0
	case threshold < 0.4:
		return 1
	default:
		return 2
	}
}

// Load reads a search-index.json file and indexes it.
func Load(path string, opts Options) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read search index: %w", err)
	}
	var entries []docmodel.SearchEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode search index %s: %w", path, err)
	}
	return New(entries, opts)
}

// New indexes entries in memory.
func New(entries []docmodel.SearchEntry, opts Options) (*Index, error) {
	idx, err := bleve.NewMemOnly(indexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	byslug := make(map[string]docmodel.SearchEntry, len(entries))
	batch := idx.NewBatch()
	for _, e := range entries {
		byslug[e.Slug] = e
		if err := batch.Index(e.Slug, map[string]any{
			"title":       e.Title,
			"description": e.Description,
			"content":     e.Content,
		}); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("index %s: %w", e.Slug, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to index search entries: %w", err)
	}
	return &Index{idx: idx, entries: byslug, opts: opts}, nil
}

func indexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	// standard: lowercase and tokenize without stemming, closest to Fuse.
	text.Analyzer = standard.Name
	for _, f := range fields {
		doc.AddFieldMappingsAt(f.name, text)
	}
	im.DefaultMapping = doc
	return im
}

// Len is the number of indexed entries.
func (ix *Index) Len() int { return len(ix.entries) }

// Close releases the index.
func (ix *Index) Close() error { return ix.idx.Close() }

// Search returns the best hits for q, at most MaxResults. Queries shorter
// than MinMatchLength return no hits.
func (ix *Index) Search(ctx context.Context, q string) ([]Hit, error) {
	q = strings.TrimSpace(q)
	if q == "" || len([]rune(q)) < ix.opts.MinMatchLength {
		return nil, nil
	}
	terms := strings.Fields(strings.ToLower(q))

	req := bleve.NewSearchRequest(buildQuery(terms, Fuzziness(ix.opts.FuzzyThreshold)))
	if ix.opts.MaxResults > 0 {
		req.Size = ix.opts.MaxResults
	}
	res, err := ix.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		e, ok := ix.entries[h.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{
			Title:       e.Title,
			Slug:        e.Slug,
			Description: e.Description,
			URL:         ix.opts.BaseURL + "docs/" + e.Slug + ".html",
			Score:       h.Score,
		})
	}
	return hits, nil
}

// buildQuery requires every term to match some field. A term matches by
// prefix or, when fuzziness is positive, within that edit distance.
func buildQuery(terms []string, fuzziness int) blevequery.Query {
	must := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		var alts []blevequery.Query
		for _, f := range fields {
			pq := bleve.NewPrefixQuery(term)
			pq.SetField(f.name)
			pq.SetBoost(f.boost)
			alts = append(alts, pq)
			if fuzziness > 0 {
				fq := bleve.NewFuzzyQuery(term)
				fq.SetFuzziness(fuzziness)
				fq.SetField(f.name)
				fq.SetBoost(f.boost)
				alts = append(alts, fq)
			}
		}
		must = append(must, bleve.NewDisjunctionQuery(alts...))
	}
	return bleve.NewConjunctionQuery(must...)
}
