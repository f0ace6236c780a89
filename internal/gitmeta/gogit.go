package gitmeta

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// GoGit reads history with go-git. It does not follow renames: the creating
// commit is the oldest commit that touched the current path.
type GoGit struct{}

func open(path string) (*git.Repository, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	repo, err := git.PlainOpenWithOptions(filepath.Dir(abs), &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, "", err
	}
	root := wt.Filesystem.Root()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return nil, "", err
	}
	return repo, filepath.ToSlash(rel), nil
}

func (GoGit) History(ctx context.Context, path string) (*History, error) {
	repo, rel, err := open(path)
	if err != nil {
		return nil, nil
	}
	iter, err := repo.Log(&git.LogOptions{FileName: &rel, Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, nil
	}
	defer iter.Close()

	var newest, oldest *object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if newest == nil {
			newest = c
		}
		oldest = c
		return nil
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, nil
	}
	if newest == nil {
		return nil, nil
	}
	return &History{
		Created:       oldest.Author.When.Local().Format(DateLayout),
		CreatedBy:     oldest.Author.Name,
		LastUpdated:   newest.Author.When.Local().Format(DateLayout),
		LastUpdatedBy: newest.Author.Name,
	}, nil
}

func (GoGit) Head(_ context.Context, path string) (string, error) {
	repo, _, err := open(path)
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}
