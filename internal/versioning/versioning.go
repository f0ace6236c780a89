// Package versioning snapshots the current docs as a named release.
package versioning

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"git.home.luguber.info/inful/docsite/internal/build"
	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/docmodel"
	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/nav"
)

var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Snapshot is the outcome of Create.
type Snapshot struct {
	Version     string
	DocsDir     string
	SidebarFile string
}

// Validate checks v against the snapshot naming rules and the versions
// already recorded in cfg.
func Validate(cfg *config.Config, v string) error {
	if v == "" {
		return derrors.VersionUsage()
	}
	if !semverPattern.MatchString(v) {
		return derrors.VersionInvalid(v)
	}
	if slices.Contains(cfg.AvailableVersions(), v) {
		return derrors.VersionExists(v)
	}
	return nil
}

// Create copies the docs directory to the versions directory, stores the
// current sidebar next to it and records v in the config file.
func Create(cfg *config.Config, v string) (*Snapshot, error) {
	if err := Validate(cfg, v); err != nil {
		return nil, err
	}

	target := filepath.Join(cfg.VersionsRoot(), "version-"+v)
	if _, err := os.Stat(target); err == nil {
		return nil, derrors.VersionExists(v).WithContext("path", target)
	}

	docsDir := cfg.Resolve(cfg.DocsDir)
	if info, err := os.Stat(docsDir); err != nil {
		return nil, derrors.ReadFailed(docsDir, err)
	} else if !info.IsDir() {
		return nil, derrors.ReadFailed(docsDir, errors.New("not a directory"))
	}
	sidebar, err := build.CurrentSidebar(cfg)
	if err != nil {
		return nil, err
	}

	sidebarFile := filepath.Join(cfg.SidebarsRoot(), "version-"+v+"-sidebars.json")
	if err := snapshot(cfg, v, docsDir, target, sidebarFile, sidebar); err != nil {
		// A partial snapshot would make the next attempt fail as existing.
		if rmErr := os.RemoveAll(target); rmErr != nil {
			slog.Warn("Failed to remove partial snapshot", logfields.Path(target), logfields.Error(rmErr))
		}
		_ = os.Remove(sidebarFile)
		return nil, err
	}

	slog.Info("Version created", logfields.Version(v), logfields.Path(target))
	return &Snapshot{Version: v, DocsDir: target, SidebarFile: sidebarFile}, nil
}

func snapshot(cfg *config.Config, v, docsDir, target, sidebarFile string, sidebar []docmodel.SidebarEntry) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return derrors.WriteFailed(target, err)
	}
	if err := copyTree(docsDir, target, map[string]bool{}); err != nil {
		return derrors.WriteFailed(target, err)
	}

	if err := os.MkdirAll(cfg.SidebarsRoot(), 0o750); err != nil {
		return derrors.WriteFailed(sidebarFile, err)
	}
	if err := nav.WriteSidebar(sidebarFile, sidebar); err != nil {
		return derrors.WriteFailed(sidebarFile, err)
	}
	return config.AddVersion(cfg.Path(), v)
}

// copyTree copies src into dst, following symlinks. seen holds the resolved
// directories on the current path so link cycles stop.
func copyTree(src, dst string, seen map[string]bool) error {
	resolved, err := filepath.EvalSymlinks(src)
	if err != nil {
		return err
	}
	if seen[resolved] {
		return fmt.Errorf("symlink cycle at %s", src)
	}
	seen[resolved] = true
	defer delete(seen, resolved)

	if err := os.MkdirAll(dst, 0o750); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		from := filepath.Join(src, e.Name())
		to := filepath.Join(dst, e.Name())
		info, err := os.Stat(from)
		if err != nil {
			return err
		}
		switch {
		case info.IsDir():
			err = copyTree(from, to, seen)
		case info.Mode().IsRegular():
			err = copyFile(from, to)
		default:
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 -- file inside the docs tree
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304 -- inside the versions directory
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
