// Package gitmeta looks up the creation and last-update history of a file
// from git. Every failure is soft: an untracked file or a directory outside a
// repository simply has no history.
package gitmeta

import (
	"context"
	"os/exec"
	"time"
)

// DateLayout is the human-readable layout used for history dates.
const DateLayout = "January 2, 2006"

// History is the authorship timeline of one file.
type History struct {
	Created       string `json:"created,omitempty"`
	CreatedBy     string `json:"createdBy,omitempty"`
	LastUpdated   string `json:"lastUpdated"`
	LastUpdatedBy string `json:"lastUpdatedBy"`
}

// Lookup returns the history of the file at path, or nil when it has none.
// Only context cancellation is reported as an error.
type Lookup interface {
	History(ctx context.Context, path string) (*History, error)
}

// Source is a Lookup that can also name the commit its answers are valid for.
type Source interface {
	Lookup
	Head(ctx context.Context, path string) (string, error)
}

// Default returns the git CLI lookup when a git binary is available, and the
// go-git implementation otherwise.
func Default() Source {
	if _, err := exec.LookPath("git"); err == nil {
		return &CLI{}
	}
	return &GoGit{}
}

// Noop never finds any history.
type Noop struct{}

func (Noop) History(ctx context.Context, _ string) (*History, error) {
	return nil, ctx.Err()
}

// Static serves histories from a map keyed by path.
type Static map[string]*History

func (s Static) History(ctx context.Context, path string) (*History, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s[path], nil
}

func formatUnix(sec int64) string {
	return time.Unix(sec, 0).Format(DateLayout)
}
