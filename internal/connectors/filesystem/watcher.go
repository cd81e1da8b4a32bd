package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/policycite/internal/logger"
)

// Default watcher timings.
const (
	DefaultDebounce = 500 * time.Millisecond
	DefaultInterval = 2 * time.Second
)

// ErrWatcherClosed is returned by Watch after Close.
var ErrWatcherClosed = errors.New("watcher closed")

// ChangeType classifies a file change.
type ChangeType int

// Change types.
const (
	ChangeUpserted ChangeType = iota
	ChangeRemoved
)

// Batch is a set of coalesced changes. A path appears in at most one list.
type Batch struct {
	Upserted []string
	Removed  []string
}

// Empty reports whether the batch holds no changes.
func (b Batch) Empty() bool {
	return len(b.Upserted) == 0 && len(b.Removed) == 0
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period after the last event before a batch is
// emitted.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithInterval sets the minimum time between batches.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// Watcher reports supported files created, written, removed or renamed under
// a root directory, coalesced into batches.
type Watcher struct {
	root     string
	debounce time.Duration
	limiter  *rate.Limiter

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for root.
func NewWatcher(root string, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		debounce: DefaultDebounce,
		limiter:  rate.NewLimiter(rate.Every(DefaultInterval), 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch starts watching. The returned channel is closed when ctx is done or
// the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan Batch, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrWatcherClosed
	}

	root, err := filepath.Abs(w.root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addRecursive(fsw, root); err != nil {
		fsw.Close()
		return nil, err
	}
	w.root = root
	w.watcher = fsw

	batches := make(chan Batch)
	go w.run(ctx, fsw, batches)
	return batches, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Batch) {
	defer close(out)

	pending := make(map[string]ChangeType)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			change, ok := handleFsEvent(fsw, event)
			if !ok {
				continue
			}
			pending[event.Name] = change
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Watch error: %v", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			if err := w.limiter.Wait(ctx); err != nil {
				return
			}
			batch := toBatch(pending)
			pending = make(map[string]ChangeType)
			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleFsEvent maps an fsnotify event to a change. New directories are
// added to the watch and produce no change.
func handleFsEvent(fsw *fsnotify.Watcher, event fsnotify.Event) (ChangeType, bool) {
	if isHidden(filepath.Base(event.Name)) {
		return 0, false
	}

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return 0, false
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) {
				if err := addRecursive(fsw, event.Name); err != nil {
					logger.Warn("Cannot watch %s: %v", event.Name, err)
				}
			}
			return 0, false
		}
		if !IsSupported(event.Name) {
			return 0, false
		}
		return ChangeUpserted, true

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if !IsSupported(event.Name) {
			return 0, false
		}
		return ChangeRemoved, true
	}
	return 0, false
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func toBatch(pending map[string]ChangeType) Batch {
	var batch Batch
	for path, change := range pending {
		if change == ChangeRemoved {
			batch.Removed = append(batch.Removed, path)
		} else {
			batch.Upserted = append(batch.Upserted, path)
		}
	}
	slices.Sort(batch.Upserted)
	slices.Sort(batch.Removed)
	return batch
}
