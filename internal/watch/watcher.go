package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "uigen/internal/errors"
	"uigen/internal/vfs"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Target applies a mutation to a project's file system. session.Manager
// satisfies it.
type Target interface {
	Do(ctx context.Context, projectID, note string, fn func(fs *vfs.FileSystem) error) error
}

// Watcher mirrors file events under a local root into one project.
type Watcher struct {
	root      string
	projectID string
	target    Target
	watcher   *fsnotify.Watcher
	logger    *zap.Logger
}

func NewWatcher(root, projectID string, target Target, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		root:      abs,
		projectID: projectID,
		target:    target,
		watcher:   watcher,
		logger:    logger.With(zap.String("project_id", projectID), zap.String("root", abs)),
	}
	if err := w.addTree(abs); err != nil {
		watcher.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	w.logger.Info("watching directory")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

// addTree watches dir and every non-ignored directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return err
		}
		if ShouldIgnore(rel) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("adding directory to watcher: %w", err)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		w.logger.Error("getting relative path", zap.Error(err))
		return
	}
	if ShouldIgnore(rel) {
		return
	}
	p := ProjectPath(rel)

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			// Gone again before we got to it; a Remove event follows.
			return
		}
		if info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Error("adding new directory to watcher", zap.Error(err))
			}
			w.apply(ctx, "watch: add "+p, func(fsys *vfs.FileSystem) error {
				_, err := importTree(ctx, fsys, w.root, event.Name)
				return err
			})
			return
		}
		content, err := os.ReadFile(event.Name)
		if err != nil {
			w.logger.Warn("reading changed file", zap.String("path", p), zap.Error(err))
			return
		}
		w.apply(ctx, "watch: write "+p, func(fsys *vfs.FileSystem) error {
			_, err := upsert(fsys, p, string(content))
			return err
		})

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.apply(ctx, "watch: remove "+p, func(fsys *vfs.FileSystem) error {
			if !fsys.Exists(p) {
				return nil
			}
			return fsys.Delete(p)
		})
	}
}

func (w *Watcher) apply(ctx context.Context, note string, fn func(*vfs.FileSystem) error) {
	err := w.target.Do(ctx, w.projectID, note, fn)
	if err == nil {
		w.logger.Debug("mirrored change", zap.String("note", note))
		return
	}
	if apperrors.Is(err, apperrors.ErrorTypeValidation) {
		w.logger.Warn("skipped change rejected by project policy", zap.String("note", note), zap.Error(err))
		return
	}
	w.logger.Error("mirroring change", zap.String("note", note), zap.Error(err))
}
