// Package watch implements an optional live file-watch front-end atop
// fsnotify: it recursively watches a project tree and triggers repeated
// differential cycles, debounced so a burst of saves collapses into one
// cycle. Grounded on the teacher's internal/indexing/watcher.go
// (FileWatcher, eventDebouncer, addWatches/shouldIgnoreDirectory), but
// simplified: since internal/indexer's differential cycle already
// re-hashes the tree to find what changed, this package only needs to
// know "something changed, go look" — not which path or which event
// kind, so there is no per-event-type debouncer map, only a timer.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/lci-lsp/internal/config"
	"github.com/standardbeagle/lci-lsp/internal/telemetry"
)

var log = telemetry.Component("watch")

// TriggerFunc runs one differential cycle. Errors are logged, not
// fatal to the watcher — a failed cycle just means the next debounced
// trigger tries again.
type TriggerFunc func(ctx context.Context) error

// Watcher recursively watches root and calls Trigger, debounced, on any
// filesystem change under a non-excluded directory.
type Watcher struct {
	fsw     *fsnotify.Watcher
	cfg     *config.Config
	root    string
	trigger TriggerFunc
	debounce time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	timerMu sync.Mutex
	timer   *time.Timer

	statsMu         sync.Mutex
	eventsProcessed int64
	triggersRun     int64
	lastEventAt     time.Time
}

// New creates a Watcher over root. Call Start to begin watching.
func New(cfg *config.Config, root string, trigger TriggerFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	debounce := time.Duration(cfg.Index.WatchDebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &Watcher{
		fsw: fsw, cfg: cfg, root: root, trigger: trigger, debounce: debounce,
		ctx: ctx, cancel: cancel,
	}, nil
}

// Start adds watches for every relevant directory under root and begins
// processing events in the background.
func (w *Watcher) Start() error {
	if err := w.addWatches(w.root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.processEvents()
	log.Info("watch started", "root", w.root, "debounce", w.debounce)
	return nil
}

// Stop cancels event processing and closes the underlying fsnotify
// watcher, waiting for the processing goroutine to exit.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if w.shouldIgnoreDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			log.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) shouldIgnoreDir(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.cfg.Exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, rel+"/"); matched {
			return true
		}
	}
	return false
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	w.statsMu.Lock()
	w.eventsProcessed++
	w.lastEventAt = time.Now()
	w.statsMu.Unlock()

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !w.shouldIgnoreDir(event.Name) {
			if err := w.fsw.Add(event.Name); err != nil {
				log.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
		}
	}

	w.scheduleTrigger()
}

func (w *Watcher) scheduleTrigger() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.runTrigger)
}

func (w *Watcher) runTrigger() {
	if w.ctx.Err() != nil {
		return
	}
	w.statsMu.Lock()
	w.triggersRun++
	w.statsMu.Unlock()

	if err := w.trigger(w.ctx); err != nil {
		log.Warn("watch-triggered cycle failed", "error", err)
	}
}

// Stats reports watch activity, useful for a CLI status line.
type Stats struct {
	EventsProcessed int64
	TriggersRun     int64
	LastEventAt     time.Time
	Active          bool
}

func (w *Watcher) Stats() Stats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return Stats{
		EventsProcessed: w.eventsProcessed,
		TriggersRun:     w.triggersRun,
		LastEventAt:     w.lastEventAt,
		Active:          w.ctx.Err() == nil,
	}
}
