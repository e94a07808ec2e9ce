package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"echofm/logger"

	"github.com/fsnotify/fsnotify"
)

// Watcher feeds files dropped into a local directory through the ingest
// pipeline. The first path segment below the root becomes the song's folder
// label, mirroring how folder uploads carry their top-level directory name.
type Watcher struct {
	root     string
	pipeline *Pipeline
	watcher  *fsnotify.Watcher

	// settleDelay is how long a file must go without writes before it is
	// considered fully copied. Each Write event pushes the deadline out.
	settleDelay time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher rooted at dir.
func NewWatcher(dir string, pipeline *Pipeline) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watcher := &Watcher{
		root:        dir,
		pipeline:    pipeline,
		watcher:     w,
		settleDelay: 500 * time.Millisecond,
		pending:     make(map[string]*time.Timer),
	}

	if err := watcher.addRecursive(dir); err != nil {
		w.Close()
		return nil, err
	}
	return watcher, nil
}

// Run processes events until the context is cancelled. The loop itself never
// blocks on file contents; ingestion happens on settle-timer goroutines.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	logger.Info("watching drop directory", logger.String("dir", w.root))

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.handleEvent(ctx, event.Name, event.Op)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error", logger.ErrorField(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, path string, op fsnotify.Op) {
	if op&fsnotify.Create != 0 {
		info, err := os.Stat(path)
		if err != nil {
			logger.Warn("failed to stat created path", logger.String("path", path), logger.ErrorField(err))
			return
		}
		if info.IsDir() {
			if err := w.addRecursive(path); err != nil {
				logger.Warn("failed to watch new directory", logger.String("path", path), logger.ErrorField(err))
			}
			return
		}
	}

	w.schedule(ctx, path)
}

// schedule (re)arms the settle timer for path. A file still being copied
// keeps producing Write events, each pushing the timer out; the ingest fires
// only once the writes go quiet.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settleDelay)
		return
	}
	w.pending[path] = time.AfterFunc(w.settleDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.ingestFile(ctx, path)
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("failed to open dropped file", logger.String("path", path), logger.ErrorField(err))
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		logger.Warn("failed to stat dropped file", logger.String("path", path), logger.ErrorField(err))
		return
	}

	if _, err := w.pipeline.Ingest(ctx, File{
		Name:   filepath.Base(path),
		Folder: w.folderFor(path),
		Data:   f,
		Size:   stat.Size(),
	}); err != nil {
		// Rejects and duplicates have already been logged by the pipeline.
		logger.Debug("dropped file not ingested", logger.String("path", path), logger.ErrorField(err))
	}
}

// folderFor derives the folder label from the first path segment under root.
// Files directly in the root carry no folder.
func (w *Watcher) folderFor(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}
