package sse

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the board data directory for writes made by other
// processes (the CLI, a second server) and calls onChange once they settle.
type Watcher struct {
	dir      string
	pattern  string
	debounce time.Duration
	onChange func()
	watcher  *fsnotify.Watcher
}

// NewWatcher starts watching dir for files matching pattern (a filepath.Match
// glob on the base name, e.g. "*.json").
func NewWatcher(dir, pattern string, debounce time.Duration, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:      dir,
		pattern:  pattern,
		debounce: debounce,
		onChange: onChange,
		watcher:  fw,
	}

	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				timer.Stop()
				return
			}
			if ok, _ := filepath.Match(w.pattern, filepath.Base(ev.Name)); !ok {
				continue
			}
			// The file backend replaces the blob with a rename.
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				if !pending {
					timer.Reset(w.debounce)
					pending = true
				}
			}

		case <-timer.C:
			pending = false
			w.onChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", "err", err)
		}
	}
}
