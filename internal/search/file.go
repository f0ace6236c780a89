package search

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// FileIndex serves queries from a search-index.json that may be rewritten
// by later builds. The index is rebuilt whenever the file's modification
// time or size changes.
type FileIndex struct {
	path string
	opts Options

	mu      sync.Mutex
	ix      *Index
	modTime time.Time
	size    int64
}

// NewFileIndex returns a FileIndex over path. The file is read on first use.
func NewFileIndex(path string, opts Options) *FileIndex {
	return &FileIndex{path: path, opts: opts}
}

// Search queries the current contents of the index file.
func (f *FileIndex) Search(ctx context.Context, q string) ([]Hit, error) {
	ix, err := f.current()
	if err != nil {
		return nil, err
	}
	return ix.Search(ctx, q)
}

func (f *FileIndex) current() (*Index, error) {
	st, err := os.Stat(f.path)
	if err != nil {
		return nil, fmt.Errorf("search index unavailable: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ix != nil && st.ModTime().Equal(f.modTime) && st.Size() == f.size {
		return f.ix, nil
	}
	ix, err := Load(f.path, f.opts)
	if err != nil {
		return nil, err
	}
	if f.ix != nil {
		_ = f.ix.Close()
	}
	f.ix, f.modTime, f.size = ix, st.ModTime(), st.Size()
	return ix, nil
}

// Close releases the loaded index, if any.
func (f *FileIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ix == nil {
		return nil
	}
	err := f.ix.Close()
	f.ix = nil
	return err
}
