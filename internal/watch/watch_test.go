package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShouldIgnore(t *testing.T) {
	for _, p := range []string{"docs/.hidden.md", "docs/a.md~", "docs/.a.md.swp", "docs/#a.md#", "docs/x.tmp", "docs/4913"} {
		require.True(t, shouldIgnore(p), p)
	}
	for _, p := range []string{"docs/a.md", "config.json", "theme/styles.css"} {
		require.False(t, shouldIgnore(p), p)
	}
}

func TestRelevant(t *testing.T) {
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	cfg := filepath.Join(dir, "config.json")
	w := New(func(context.Context) error { return nil }, Options{Dirs: []string{docs}, Files: []string{cfg}})

	require.True(t, w.relevant(filepath.Join(docs, "guide", "a.md")))
	require.True(t, w.relevant(cfg))
	require.False(t, w.relevant(filepath.Join(dir, "build", "index.html")))
	require.False(t, w.relevant(filepath.Join(dir, "docs2", "a.md")))
}

func TestRequestDuringRebuildSchedulesOneFollowUp(t *testing.T) {
	var runs atomic.Int32
	started := make(chan struct{}, 10)
	release := make(chan struct{})
	w := New(func(context.Context) error {
		runs.Add(1)
		started <- struct{}{}
		<-release
		return nil
	}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.work(ctx)

	w.Request()
	<-started
	w.Request()
	w.Request()
	w.Request()
	release <- struct{}{}

	<-started
	release <- struct{}{}

	require.Never(t, func() bool { return runs.Load() > 2 }, 200*time.Millisecond, 10*time.Millisecond)
	require.Equal(t, int32(2), runs.Load())
}

func TestTriggerDebounces(t *testing.T) {
	var runs atomic.Int32
	var results atomic.Int32
	w := New(func(context.Context) error {
		runs.Add(1)
		return nil
	}, Options{Debounce: 50 * time.Millisecond, OnRebuild: func(error) { results.Add(1) }})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.work(ctx)

	for range 5 {
		w.Trigger()
		time.Sleep(5 * time.Millisecond)
	}
	require.Eventually(t, func() bool { return results.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Never(t, func() bool { return runs.Load() > 1 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestRunRebuildsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "guide"), 0o750))
	cfg := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(cfg, []byte("{}"), 0o600))

	var runs atomic.Int32
	w := New(func(context.Context) error {
		runs.Add(1)
		return nil
	}, Options{Dirs: []string{docs, filepath.Join(dir, "theme")}, Files: []string{cfg}, Debounce: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(docs, "guide", "a.md"), []byte("# A"), 0o600))
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)

	before := runs.Load()
	require.NoError(t, os.WriteFile(cfg, []byte(`{"title":"x"}`), 0o600))
	require.Eventually(t, func() bool { return runs.Load() > before }, 3*time.Second, 10*time.Millisecond)

	before = runs.Load()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o600))
	require.Never(t, func() bool { return runs.Load() > before }, 300*time.Millisecond, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRunPeriodicRebuild(t *testing.T) {
	var runs atomic.Int32
	w := New(func(context.Context) error {
		runs.Add(1)
		return nil
	}, Options{Interval: 100 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 5*time.Second, 20*time.Millisecond)
}
