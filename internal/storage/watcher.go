package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"jobprep/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// Watcher calls onChange after the watched file settles following a write.
type Watcher struct {
	mu sync.Mutex

	path     string
	debounce time.Duration
	onChange func()
	logger   *errors.Logger

	fsWatcher *fsnotify.Watcher
	timer     *time.Timer
	lastMod   time.Time

	stop    chan struct{}
	changed chan struct{}
	done    chan struct{}
	running bool
}

// NewWatcher watches path. A zero debounce means 300ms.
func NewWatcher(path string, debounce time.Duration, onChange func(), logger *errors.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}
}

// Start begins watching. The file's directory is watched as well so atomic
// rename-over writes are seen.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("draft watcher is already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	if stat, err := os.Stat(w.path); err == nil {
		w.lastMod = stat.ModTime()
	}

	w.fsWatcher = fsw
	w.stop = make(chan struct{})
	w.changed = make(chan struct{}, 1)
	w.done = make(chan struct{})
	w.running = true
	go w.loop()

	w.logger.Info("Draft watcher started", "file", w.path, "debounce", w.debounce)
	return nil
}

// Stop ends the watch and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	close(w.stop)
	if w.timer != nil {
		w.timer.Stop()
	}
	err := w.fsWatcher.Close()
	w.running = false
	done := w.done
	w.mu.Unlock()

	<-done
	w.logger.Info("Draft watcher stopped", "file", w.path)
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) == filepath.Clean(w.path) &&
				event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.LogError(err, "Draft watcher error")
		case <-w.changed:
			if w.modified() {
				w.onChange()
			}
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	changed := w.changed
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
}

// modified reports whether the file's mtime moved since the last callback.
func (w *Watcher) modified() bool {
	stat, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if stat.ModTime().Equal(w.lastMod) {
		return false
	}
	w.lastMod = stat.ModTime()
	return true
}
