// Package watch rebuilds the site when sources change. File events are
// debounced into a single request and rebuilds never overlap; a request
// that arrives while a rebuild runs schedules exactly one follow-up.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// DefaultDebounce is the quiet period after the last file event.
const DefaultDebounce = 300 * time.Millisecond

// RebuildFunc rebuilds the site.
type RebuildFunc func(ctx context.Context) error

// Options configures a Watcher.
type Options struct {
	// Dirs are watched recursively.
	Dirs []string

	// Files are watched individually through their parent directory so
	// editors that replace files on save are still seen.
	Files []string

	Debounce time.Duration

	// Interval schedules an unconditional rebuild; zero disables it.
	Interval time.Duration

	// OnRebuild is called after every rebuild with its result.
	OnRebuild func(err error)
}

// Watcher drives rebuilds from file events and an optional schedule.
type Watcher struct {
	rebuild RebuildFunc
	opts    Options

	requests chan struct{}

	mu    sync.Mutex
	timer *time.Timer

	dirs  []string
	files map[string]bool
}

// New returns a Watcher that calls rebuild.
func New(rebuild RebuildFunc, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.OnRebuild == nil {
		opts.OnRebuild = func(error) {}
	}
	w := &Watcher{
		rebuild:  rebuild,
		opts:     opts,
		requests: make(chan struct{}, 1),
		files:    map[string]bool{},
	}
	for _, d := range opts.Dirs {
		w.dirs = append(w.dirs, absPath(d))
	}
	for _, f := range opts.Files {
		w.files[absPath(f)] = true
	}
	return w
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// Request asks for a rebuild without debouncing. At most one request is
// held while a rebuild runs.
func (w *Watcher) Request() {
	select {
	case w.requests <- struct{}{}:
	default:
	}
}

// Trigger requests a rebuild once no further Trigger call arrives within
// the debounce window.
func (w *Watcher) Trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, w.Request)
}

// Run watches until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fw.Close() }()

	for _, d := range w.dirs {
		if err := addDirsRecursive(fw, d); err != nil {
			return err
		}
	}
	parents := map[string]bool{}
	for f := range w.files {
		parents[filepath.Dir(f)] = true
	}
	for p := range parents {
		if err := fw.Add(p); err != nil {
			slog.Warn("watch add failed", logfields.Path(p), logfields.Error(err))
		}
	}

	if w.opts.Interval > 0 {
		sched, err := w.schedule(w.opts.Interval)
		if err != nil {
			return err
		}
		defer func() { _ = sched.Shutdown() }()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.work(ctx)
	}()

	slog.Info("Watching for changes", logfields.Count(len(w.dirs)+len(w.files)))
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			<-done
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// work runs rebuilds one at a time.
func (w *Watcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.requests:
			slog.Info("Change detected; rebuilding site")
			err := w.rebuild(ctx)
			if err != nil && ctx.Err() == nil {
				slog.Warn("rebuild failed", logfields.Error(err))
			}
			w.opts.OnRebuild(err)
		}
	}
}

func (w *Watcher) schedule(interval time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if _, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(w.Request),
		gocron.WithName("periodic-rebuild"),
	); err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create periodic rebuild job: %w", err)
	}
	s.Start()
	slog.Info("Periodic rebuild scheduled", slog.Duration("interval", interval))
	return s, nil
}

func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event) {
	if shouldIgnore(ev.Name) || !w.relevant(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(fw, ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	w.Trigger()
}

// relevant reports whether path is a watched file or lies in a watched dir.
func (w *Watcher) relevant(path string) bool {
	path = filepath.Clean(path)
	if w.files[path] {
		return true
	}
	for _, d := range w.dirs {
		if path == d || strings.HasPrefix(path, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		slog.Debug("watch root missing", logfields.Path(root))
		return nil
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if err := fw.Add(path); err != nil {
				slog.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnore filters hidden files and editor temp files.
func shouldIgnore(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "4913", base == "Thumbs.db":
		return true
	}
	return false
}
