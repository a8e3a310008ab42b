package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceWindow = 400 * time.Millisecond

// CorpusWatcher re-runs a validation callback whenever corpus files change
// on disk. This is a development aid: the in-process corpus stays immutable,
// the watcher only reports what the next process start would load.
type CorpusWatcher struct {
	dir      string
	onChange func()
}

// NewCorpusWatcher watches dir and calls onChange after edits settle.
func NewCorpusWatcher(dir string, onChange func()) *CorpusWatcher {
	return &CorpusWatcher{dir: dir, onChange: onChange}
}

// Run blocks until ctx is cancelled.
func (w *CorpusWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	debouncer := NewDebouncer(debounceWindow, w.onChange)
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isCorpusFile(event.Name) && event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				debouncer.Trigger()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}

func isCorpusFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
