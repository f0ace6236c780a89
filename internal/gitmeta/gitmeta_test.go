package gitmeta

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

var (
	created = time.Date(2023, time.January, 5, 12, 0, 0, 0, time.UTC)
	updated = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
)

// newRepo creates a repository where docs/guide.md is added by Ada and later
// edited by Grace, and docs/draft.md exists but is never committed.
func newRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o750))

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	commit := func(content, who string, when time.Time) {
		require.NoError(t, os.WriteFile(filepath.Join(docs, "guide.md"), []byte(content), 0o600))
		_, err := wt.Add("docs/guide.md")
		require.NoError(t, err)
		sig := &object.Signature{Name: who, Email: who + "@example.com", When: when}
		_, err = wt.Commit("update guide", &git.CommitOptions{Author: sig, Committer: sig})
		require.NoError(t, err)
	}
	commit("# Guide\n", "Ada", created)
	commit("# Guide\n\nMore.\n", "Grace", updated)

	require.NoError(t, os.WriteFile(filepath.Join(docs, "draft.md"), []byte("# Draft\n"), 0o600))
	return dir
}

func expected() *History {
	return &History{
		Created:       created.Local().Format(DateLayout),
		CreatedBy:     "Ada",
		LastUpdated:   updated.Local().Format(DateLayout),
		LastUpdatedBy: "Grace",
	}
}

func TestGoGit_History(t *testing.T) {
	dir := newRepo(t)
	ctx := context.Background()

	h, err := GoGit{}.History(ctx, filepath.Join(dir, "docs", "guide.md"))
	require.NoError(t, err)
	require.Equal(t, expected(), h)

	h, err = GoGit{}.History(ctx, filepath.Join(dir, "docs", "draft.md"))
	require.NoError(t, err)
	require.Nil(t, h, "untracked file has no history")

	head, err := GoGit{}.Head(ctx, filepath.Join(dir, "docs", "guide.md"))
	require.NoError(t, err)
	require.Len(t, head, 40)
}

func TestGoGit_OutsideRepository(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	h, err := GoGit{}.History(context.Background(), path)
	require.NoError(t, err)
	require.Nil(t, h)
}

func TestCLI_History(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	dir := newRepo(t)
	ctx := context.Background()

	h, err := (&CLI{}).History(ctx, filepath.Join(dir, "docs", "guide.md"))
	require.NoError(t, err)
	require.Equal(t, expected(), h)

	h, err = (&CLI{}).History(ctx, filepath.Join(dir, "docs", "draft.md"))
	require.NoError(t, err)
	require.Nil(t, h)
}

func TestCLI_MissingBinaryIsSoft(t *testing.T) {
	h, err := (&CLI{Binary: "definitely-not-git-binary"}).History(context.Background(), "docs/a.md")
	require.NoError(t, err)
	require.Nil(t, h)
}

func TestParseLogLine(t *testing.T) {
	ts, who, ok := parseLogLine("1700000000|Ada Lovelace|ada@example.com")
	require.True(t, ok)
	require.Equal(t, int64(1700000000), ts)
	require.Equal(t, "Ada Lovelace", who)

	_, _, ok = parseLogLine("garbage")
	require.False(t, ok)
}

func TestNoopAndStatic(t *testing.T) {
	ctx := context.Background()
	h, err := Noop{}.History(ctx, "a.md")
	require.NoError(t, err)
	require.Nil(t, h)

	s := Static{"a.md": {LastUpdated: "May 1, 2024", LastUpdatedBy: "Ada"}}
	h, err = s.History(ctx, "a.md")
	require.NoError(t, err)
	require.Equal(t, "Ada", h.LastUpdatedBy)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.History(cancelled, "a.md")
	require.ErrorIs(t, err, context.Canceled)
}

type memStore struct {
	mu   sync.Mutex
	data map[string]*History
	puts int
}

func (m *memStore) GetHistory(_ context.Context, head, path string) (*History, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.data[head+"|"+path]
	return h, ok, nil
}

func (m *memStore) PutHistory(_ context.Context, head, path string, h *History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[head+"|"+path] = h
	m.puts++
	return nil
}

type countingSource struct {
	Static
	head  string
	calls int
}

func (c *countingSource) History(ctx context.Context, path string) (*History, error) {
	c.calls++
	return c.Static.History(ctx, path)
}

func (c *countingSource) Head(context.Context, string) (string, error) { return c.head, nil }

func TestCached_ReusesEntriesUntilHeadMoves(t *testing.T) {
	src := &countingSource{Static: Static{"a.md": {LastUpdatedBy: "Ada"}}, head: "abc"}
	store := &memStore{data: map[string]*History{}}
	c := &Cached{Source: src, Store: store}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		h, err := c.History(ctx, "a.md")
		require.NoError(t, err)
		require.Equal(t, "Ada", h.LastUpdatedBy)
	}
	require.Equal(t, 1, src.calls)

	src.head = "def"
	_, err := c.History(ctx, "a.md")
	require.NoError(t, err)
	require.Equal(t, 2, src.calls)
	require.Equal(t, 2, store.puts)
}
