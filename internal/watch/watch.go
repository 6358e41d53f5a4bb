// Package watch observes a workspace for source file changes and invokes
// a rescan callback per changed file, debounced so editor save bursts
// collapse into one rescan.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vremyavnikuda/anchora/internal/config"
)

// Handler receives a changed file path. It runs on the watcher's
// goroutine, so slow handlers delay later notifications.
type Handler func(path string)

// Debouncer coalesces repeated triggers per key into one firing after a
// quiet interval.
type Debouncer struct {
	interval time.Duration
	fire     func(key string)

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewDebouncer builds a debouncer that calls fire on each key's own
// timer goroutine once the key has been quiet for interval.
func NewDebouncer(interval time.Duration, fire func(key string)) *Debouncer {
	return &Debouncer{
		interval: interval,
		fire:     fire,
		pending:  make(map[string]*time.Timer),
	}
}

// Trigger schedules (or reschedules) a firing for key.
func (d *Debouncer) Trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.pending[key]; ok {
		t.Reset(d.interval)
		return
	}
	d.pending[key] = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		delete(d.pending, key)
		d.mu.Unlock()
		d.fire(key)
	})
}

// Stop cancels all pending firings.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, t := range d.pending {
		t.Stop()
		delete(d.pending, key)
	}
}

// Watcher follows a workspace tree. Directories are registered
// recursively; directories created while watching are picked up from
// their create events.
type Watcher struct {
	workspace string
	cfg       *config.Config
	fsw       *fsnotify.Watcher
	debounce  *Debouncer
}

// New starts watching every non-ignored directory under workspace.
// Changed files that pass the configured extension filter are delivered
// to handler after the configured debounce interval.
func New(workspace string, cfg *config.Config, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	w := &Watcher{
		workspace: workspace,
		cfg:       cfg,
		fsw:       fsw,
		debounce:  NewDebouncer(cfg.DebounceInterval.Duration, handler),
	}
	if err := w.addTree(workspace); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree registers dir and all non-ignored subdirectories.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.cfg.IgnoreDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Run pumps events until ctx is cancelled or the underlying watcher
// closes. It always returns a non-nil reason.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: event stream closed")
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: error stream closed")
			}
			if err != nil {
				return fmt.Errorf("watch: %w", err)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.cfg.IgnoreDir(name) {
				// Best effort: files written into the new directory before
				// the watch lands are caught by the next full scan.
				_ = w.addTree(event.Name)
			}
			return
		}
	}

	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}
	if !w.cfg.ShouldScan(name) {
		return
	}
	w.debounce.Trigger(event.Name)
}

// Close stops the watcher and cancels pending debounced firings.
func (w *Watcher) Close() error {
	w.debounce.Stop()
	return w.fsw.Close()
}
