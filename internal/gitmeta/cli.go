package gitmeta

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// CLI reads history by shelling out to git. It follows renames when
// resolving the creating commit.
type CLI struct {
	// Binary overrides the git executable; empty means "git".
	Binary string
}

const logFormat = "--format=%at|%an|%ae"

func (c *CLI) git(ctx context.Context, path string, args ...string) (string, error) {
	bin := c.Binary
	if bin == "" {
		bin = "git"
	}
	full := append([]string{"-C", filepath.Dir(path)}, args...)
	// #nosec G204 -- arguments are fixed flags plus a file path
	cmd := exec.CommandContext(ctx, bin, full...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (c *CLI) History(ctx context.Context, path string) (*History, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil
	}

	last, err := c.git(ctx, abs, "log", "-1", logFormat, "--", abs)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil || last == "" {
		return nil, nil
	}
	ts, author, ok := parseLogLine(last)
	if !ok {
		return nil, nil
	}
	h := &History{LastUpdated: formatUnix(ts), LastUpdatedBy: author}

	first, err := c.git(ctx, abs, "log", "--diff-filter=A", "--follow", logFormat, "--", abs)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err == nil && first != "" {
		lines := strings.Split(first, "\n")
		if ts, author, ok := parseLogLine(lines[len(lines)-1]); ok {
			h.Created = formatUnix(ts)
			h.CreatedBy = author
		}
	}
	return h, nil
}

func (c *CLI) Head(ctx context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return c.git(ctx, abs, "rev-parse", "HEAD")
}

func parseLogLine(line string) (int64, string, bool) {
	parts := strings.SplitN(strings.TrimSpace(line), "|", 3)
	if len(parts) < 2 {
		return 0, "", false
	}
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return ts, parts[1], true
}
