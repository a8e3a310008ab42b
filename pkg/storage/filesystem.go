// Package storage persists decision runs and the idempotency index under
// the workspace's .verdict directory.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/verdictlabs/verdict/pkg/domain/decision"
)

const VerdictDir = ".verdict"
const RunsDir = "runs"
const CorpusDir = "corpus"
const IdempotencyFile = "idempotency.json"
const AuditFile = "audit.jsonl"
const ConfigFile = "config.yaml"

// FilesystemRepository stores each run as one JSON document. Writes are
// atomic (temp file plus rename) so a crash mid-pipeline leaves the last
// successful stage's artifact durable and readable.
type FilesystemRepository struct {
	root        string
	retryConfig retry.Config
}

func NewFilesystemRepository(root string) *FilesystemRepository {
	return &FilesystemRepository{
		root: root,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
		},
	}
}

// Root returns the workspace root directory.
func (r *FilesystemRepository) Root() string {
	return r.root
}

func (r *FilesystemRepository) baseDir() string {
	return filepath.Join(r.root, VerdictDir)
}

// CorpusPath returns the directory corpus atom files are loaded from.
func (r *FilesystemRepository) CorpusPath() string {
	return filepath.Join(r.baseDir(), CorpusDir)
}

// Initialize creates the .verdict directory tree.
func (r *FilesystemRepository) Initialize() error {
	for _, dir := range []string{r.baseDir(), filepath.Join(r.baseDir(), RunsDir), r.CorpusPath()} {
		// G301: Use 0700 for directories
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// IsInitialized reports whether the workspace has a .verdict directory.
func (r *FilesystemRepository) IsInitialized() bool {
	_, err := os.Stat(r.baseDir())
	return err == nil
}

// runPath validates the run id and resolves its document path. Ids are
// uuids; anything else is rejected to prevent traversal.
func (r *FilesystemRepository) runPath(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("run id cannot be empty")
	}
	if strings.ContainsAny(id, "/\\.") {
		return "", fmt.Errorf("invalid run id: %s", id)
	}
	return filepath.Join(r.baseDir(), RunsDir, id+".json"), nil
}

// UpsertRun writes the run document, replacing any previous version.
func (r *FilesystemRepository) UpsertRun(run *decision.Run) error {
	path, err := r.runPath(run.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	return atomicWrite(path, data)
}

// LoadRun reads one run by id.
func (r *FilesystemRepository) LoadRun(id string) (*decision.Run, error) {
	retryer := retry.New[*decision.Run](r.retryConfig)

	return retryer.Do(context.Background(), func(ctx context.Context) (*decision.Run, error) {
		path, err := r.runPath(id)
		if err != nil {
			return nil, err
		}

		// #nosec G304 -- Path is resolved and validated via runPath
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, decision.ErrRunNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read run file: %w", err)
		}

		var run decision.Run
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run: %w", err)
		}
		return &run, nil
	})
}

// ListRunIDs returns every stored run id, unordered.
func (r *FilesystemRepository) ListRunIDs() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.baseDir(), RunsDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}
	return ids, nil
}

// atomicWrite replaces path via a temp file in the same directory.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	// G306: Use 0600 for files
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
