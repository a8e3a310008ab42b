package watch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/verdictlabs/verdict/internal/infrastructure/watch"
)

func TestCorpusWatcherReportsYAMLChanges(t *testing.T) {
	dir := t.TempDir()

	changed := make(chan struct{}, 1)
	w := watch.NewCorpusWatcher(dir, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "atoms.yaml"), []byte("atoms: []\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatalf("no change callback after a yaml write")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

func TestCorpusWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()

	changed := make(chan struct{}, 1)
	w := watch.NewCorpusWatcher(dir, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("irrelevant"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-changed:
		t.Errorf("non-yaml files must not trigger the callback")
	case <-time.After(700 * time.Millisecond):
	}
}
