package batch

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/fsnotify.v1"
)

// Watcher extracts record files as they are created or rewritten in a
// directory.
type Watcher struct {
	dir      string
	runner   *Runner
	logger   *zap.Logger
	onResult func(Result)
	ready    chan struct{}

	// last holds the text most recently extracted per path, so repeated
	// write events for the same content are ignored.
	last map[string]string
}

// NewWatcher creates a Watcher that passes each result to onResult.
func NewWatcher(dir string, runner *Runner, logger *zap.Logger, onResult func(Result)) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		dir:      dir,
		runner:   runner,
		logger:   logger,
		onResult: onResult,
		ready:    make(chan struct{}),
		last:     make(map[string]string),
	}
}

// Ready is closed once the directory is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching directory %s: %w", w.dir, err)
	}
	w.logger.Info("watching record directory", zap.String("dir", w.dir))
	close(w.ready)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !IsRecordFile(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create == fsnotify.Create || event.Op&fsnotify.Write == fsnotify.Write {
				w.handle(event.Name)
			}
			if event.Op&fsnotify.Remove == fsnotify.Remove || event.Op&fsnotify.Rename == fsnotify.Rename {
				delete(w.last, event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("record watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(path string) {
	job, err := LoadFile(path)
	if err != nil {
		w.logger.Warn("record not read", zap.String("file", path), zap.Error(err))
		return
	}
	// Editors often create the file empty before writing it.
	if strings.TrimSpace(job.Text) == "" || w.last[path] == job.Text {
		return
	}
	w.last[path] = job.Text

	result := w.runner.Process(job)
	if w.onResult != nil {
		w.onResult(result)
	}
}
