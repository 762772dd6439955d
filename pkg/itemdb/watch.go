package itemdb

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the catalog whenever its file is written or recreated, until
// ctx is cancelled. Reload failures are logged and the previous table is kept.
func (r *Registry) Watch(ctx context.Context, log *zap.Logger) error {
	if r.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close()
		return err
	}
	name := filepath.Clean(r.path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if filepath.Clean(event.Name) != name {
					continue
				}
				if err := r.Reload(); err != nil {
					log.Warn("item catalog reload failed", zap.String("path", r.path), zap.Error(err))
					continue
				}
				log.Info("item catalog reloaded", zap.String("path", r.path), zap.Int("items", r.Len()))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("item catalog watcher error", zap.Error(err))
			}
		}
	}()
	log.Info("watching item catalog", zap.String("path", r.path))
	return nil
}
