package gitmeta

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// Store persists histories keyed by commit and path.
type Store interface {
	GetHistory(ctx context.Context, head, path string) (h *History, found bool, err error)
	PutHistory(ctx context.Context, head, path string, h *History) error
}

// Cached answers from a Store when the repository HEAD has not moved since the
// history was recorded, and falls through to Source otherwise.
type Cached struct {
	Source Source
	Store  Store
}

func (c *Cached) History(ctx context.Context, path string) (*History, error) {
	head, err := c.Source.Head(ctx, path)
	if err != nil || head == "" {
		return c.Source.History(ctx, path)
	}

	if h, found, err := c.Store.GetHistory(ctx, head, path); err == nil && found {
		return h, nil
	} else if err != nil {
		slog.Debug("git history cache read failed", logfields.Path(path), logfields.Error(err))
	}

	h, err := c.Source.History(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := c.Store.PutHistory(ctx, head, path, h); err != nil {
		slog.Debug("git history cache write failed", logfields.Path(path), logfields.Error(err))
	}
	return h, nil
}
