package registry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/arborflow/arbor/pkg/domain"
)

// fileDoc is the on-disk shape of a registry file.
type fileDoc struct {
	Capabilities []domain.Capability `yaml:"capabilities"`
}

// File is a YAML-backed registry. The admin surface edits the file; Reload
// (manual or via Watch) publishes a fresh snapshot, visible to lookups
// started afterwards only.
type File struct {
	*InMemory
	path   string
	logger *slog.Logger
}

// NewFile loads a registry from a YAML file.
func NewFile(path string, logger *slog.Logger) (*File, error) {
	f := &File{InMemory: NewInMemory(), path: path, logger: logger}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Reload re-reads the backing file, replacing the current snapshot.
func (f *File) Reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read registry file: %w", err)
	}
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse registry file %s: %w", f.path, err)
	}
	for i, c := range doc.Capabilities {
		if c.Name == "" {
			return fmt.Errorf("registry file %s: capability %d has no name", f.path, i)
		}
		if c.Kind == "" {
			return fmt.Errorf("registry file %s: capability %q has no kind", f.path, c.Name)
		}
	}
	f.replaceAll(doc.Capabilities)
	return nil
}

// Watch reloads on file changes and signals each successful reload.
// Parse failures keep the previous snapshot and are only logged.
func (f *File) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: editors typically rename over the file, which
	// drops a watch set on the file itself.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch registry dir: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer watcher.Close()
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(f.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := f.Reload(); err != nil {
					f.logger.Warn("registry reload failed, keeping previous snapshot", "path", f.path, "err", err)
					continue
				}
				f.logger.Info("registry reloaded", "path", f.path)
				select {
				case ch <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Warn("registry watch error", "err", err)
			}
		}
	}()
	return ch, nil
}
