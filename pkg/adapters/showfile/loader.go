// Package showfile loads a show from a single YAML or JSON file and watches it for
// changes.
package showfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/cueline/internal/compiler"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// Debounce collapses the burst of events an editor save produces into one reload.
const Debounce = 150 * time.Millisecond

// Loader implements ports.ShowLoader and ports.Watchable for one file.
type Loader struct {
	path   string
	parser *compiler.Parser
}

// New creates a loader for path. The format is chosen by extension (.json, else YAML).
func New(path string) *Loader {
	return &Loader{path: path, parser: compiler.NewParser()}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string { return l.path }

// Load reads and decodes the file.
func (l *Loader) Load(ctx context.Context) (*domain.Show, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read show file: %w", err)
	}
	show, err := l.parser.Parse(l.path, data)
	if err != nil {
		return nil, err
	}
	if show.Name == "" {
		base := filepath.Base(l.path)
		show.Name = base[:len(base)-len(filepath.Ext(base))]
	}
	return show, nil
}

// Watch signals when the file is written, created or replaced. The parent directory is
// watched because editors often save by renaming a temporary file over the original.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	abs, err := filepath.Abs(l.path)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer w.Close()

		timer := time.NewTimer(Debounce)
		if !timer.Stop() {
			<-timer.C
		}
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				timer.Reset(Debounce)
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case <-timer.C:
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}
