package build

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/docsite/internal/docmodel"
	"git.home.luguber.info/inful/docsite/internal/metrics"
)

// CurrentVersion labels the working docs directory in reports and metrics.
const CurrentVersion = "current"

// VersionReport describes the output of one docs version.
type VersionReport struct {
	Version   string `json:"version"`
	Pages     int    `json:"pages"`
	OutputDir string `json:"outputDir"`
}

// Report captures the outcome of one build.
type Report struct {
	Start          time.Time
	End            time.Time
	Outcome        metrics.BuildOutcomeLabel
	Versions       []VersionReport
	BrokenLinks    []docmodel.BrokenLink
	BrokenImages   []docmodel.BrokenImage
	CopiedImages   []string
	Assets         []string
	Warnings       []string // advisory issues other than broken links and images
	CacheHits      int
	StageDurations map[Stage]time.Duration

	// SkipReason is set when the build stopped early without error.
	SkipReason string

	// Err is the error that ended the build, if any.
	Err error
}

func newReport() *Report {
	return &Report{Start: time.Now(), StageDurations: map[Stage]time.Duration{}}
}

// Pages is the number of pages written across all versions.
func (r *Report) Pages() int {
	n := 0
	for _, v := range r.Versions {
		n += v.Pages
	}
	return n
}

// Duration is the wall time of the build.
func (r *Report) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// HasWarnings reports whether any advisory issue was found.
func (r *Report) HasWarnings() bool {
	return len(r.BrokenLinks) > 0 || len(r.BrokenImages) > 0 || len(r.Warnings) > 0
}

func (r *Report) finish(err error) {
	r.End = time.Now()
	r.Err = err
	switch {
	case err != nil && isCanceled(err):
		r.Outcome = metrics.BuildOutcomeCanceled
	case err != nil:
		r.Outcome = metrics.BuildOutcomeFailed
	case r.HasWarnings():
		r.Outcome = metrics.BuildOutcomeWarning
	default:
		r.Outcome = metrics.BuildOutcomeSuccess
	}
}

// Summary is the serializable digest of a Report published to build
// listeners and stored in the build log.
type Summary struct {
	Outcome      string          `json:"outcome"`
	Pages        int             `json:"pages"`
	BrokenLinks  int             `json:"brokenLinks"`
	BrokenImages int             `json:"brokenImages"`
	CopiedImages int             `json:"copiedImages"`
	CacheHits    int             `json:"cacheHits"`
	DurationMS   int64           `json:"durationMs"`
	Versions     []VersionReport `json:"versions"`
	SkipReason   string          `json:"skipReason,omitempty"`
	Error        string          `json:"error,omitempty"`
	FinishedAt   time.Time       `json:"finishedAt"`
}

// Summary digests the report.
func (r *Report) Summary() Summary {
	errMsg := ""
	if r.Err != nil {
		errMsg = r.Err.Error()
	}
	return Summary{
		Outcome:      string(r.Outcome),
		Pages:        r.Pages(),
		BrokenLinks:  len(r.BrokenLinks),
		BrokenImages: len(r.BrokenImages),
		CopiedImages: len(r.CopiedImages),
		CacheHits:    r.CacheHits,
		DurationMS:   r.Duration().Milliseconds(),
		Versions:     r.Versions,
		SkipReason:   r.SkipReason,
		Error:        errMsg,
		FinishedAt:   r.End.UTC(),
	}
}

// SummaryJSON encodes Summary.
func (r *Report) SummaryJSON() ([]byte, error) {
	return json.Marshal(r.Summary())
}
