package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sky-flux/ear"
	"go.uber.org/zap"
)

// Watcher keeps the configuration in sync with its file. When a reload
// fails the last valid configuration stays in effect.
type Watcher struct {
	path string
	log  *zap.Logger
	fs   *fsnotify.Watcher
	done chan struct{}

	mu      sync.RWMutex
	current *File
	reloads int
}

var _ ear.SettingsProvider = (*Watcher)(nil)

// Watch loads path and starts watching it. The initial load must succeed.
// The parent directory is watched so that editors which replace the file
// are followed.
func Watch(path string, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "config: create watcher")
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "config: watch %s", filepath.Dir(path))
	}

	w := &Watcher{
		path:    filepath.Clean(path),
		log:     log.Named("config"),
		fs:      fw,
		done:    make(chan struct{}),
		current: cfg,
	}
	go w.run()
	w.log.Info("watching", zap.String("path", w.path))
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	// Editors that rewrite in place truncate first.
	if fi, err := os.Stat(w.path); err != nil || fi.Size() == 0 {
		w.log.Debug("skipping reload of empty or missing file")
		return
	}
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("reload failed, keeping previous configuration", zap.Error(err))
		return
	}
	w.mu.Lock()
	w.current = cfg
	w.reloads++
	w.mu.Unlock()
	w.log.Info("configuration reloaded",
		zap.Float64("reference_pitch", float64(cfg.Settings.ReferencePitch)),
		zap.Stringer("note_min", cfg.Settings.NoteRangeMin),
		zap.Stringer("note_max", cfg.Settings.NoteRangeMax))
}

// Settings implements ear.SettingsProvider.
func (w *Watcher) Settings() ear.Settings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.Settings
}

// File returns a copy of the current configuration.
func (w *Watcher) File() File {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return *w.current
}

// Reloads returns the number of successful reloads.
func (w *Watcher) Reloads() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.reloads
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	err := w.fs.Close()
	<-w.done
	return err
}
