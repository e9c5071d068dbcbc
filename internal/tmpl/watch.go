package tmpl

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// NewDir returns an engine whose built-in templates are overridden by the
// templates found under dir/collapsible_table, which must exist. It is watched and
// the templates are parsed again whenever one of its files changes.
func NewDir(dir string, logger *slog.Logger) (*Engine, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("templates directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("templates directory %s is not a directory", dir)
	}

	e, err := NewFS(logger, os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	w, err := watchDir(filepath.Join(dir, filepath.Dir(Pattern)), e)
	if err != nil {
		return nil, err
	}
	e.watcher = w
	return e, nil
}

type dirWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func watchDir(dir string, e *Engine) (*dirWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch templates: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch templates %s: %w", dir, err)
	}

	w := &dirWatcher{watcher: watcher, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Ext(event.Name) != ".html" {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				e.logger.Debug("template changed", "file", event.Name, "op", event.Op.String())
				if err := e.Reload(); err != nil {
					e.logger.Error("failed to reload templates", "file", event.Name, "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				e.logger.Error("template watcher failed", "error", err)
			}
		}
	}()
	return w, nil
}

func (w *dirWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
