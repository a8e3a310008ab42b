package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// IdempotencyIndex maps client-supplied idempotency keys to run ids, so a
// re-submitted request attaches to its original run instead of starting a
// second one. The index is a single JSON file guarded by a process-wide
// mutex; cross-process locking is out of scope here.
type IdempotencyIndex struct {
	path string
	mu   sync.Mutex
}

// NewIdempotencyIndex opens the index stored under the repository base dir.
func NewIdempotencyIndex(repo *FilesystemRepository) *IdempotencyIndex {
	return &IdempotencyIndex{
		path: filepath.Join(repo.Root(), VerdictDir, IdempotencyFile),
	}
}

// Claim records key -> runID if the key is unused and returns ("", true).
// For a known key it returns the existing run id and false.
func (i *IdempotencyIndex) Claim(key, runID string) (existing string, claimed bool, err error) {
	if key == "" {
		return "", true, nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	index, err := i.load()
	if err != nil {
		return "", false, err
	}
	if id, ok := index[key]; ok {
		return id, false, nil
	}

	index[key] = runID
	if err := i.save(index); err != nil {
		return "", false, err
	}
	return "", true, nil
}

// Lookup returns the run id a key maps to, if any.
func (i *IdempotencyIndex) Lookup(key string) (string, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	index, err := i.load()
	if err != nil {
		return "", false, err
	}
	id, ok := index[key]
	return id, ok, nil
}

func (i *IdempotencyIndex) load() (map[string]string, error) {
	data, err := os.ReadFile(i.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read idempotency index: %w", err)
	}

	index := map[string]string{}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency index: %w", err)
	}
	return index, nil
}

func (i *IdempotencyIndex) save(index map[string]string) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency index: %w", err)
	}
	return atomicWrite(i.path, data)
}
