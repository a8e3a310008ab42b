package storage_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/verdictlabs/verdict/pkg/domain/decision"
	"github.com/verdictlabs/verdict/pkg/storage"
)

func newRepo(t *testing.T) *storage.FilesystemRepository {
	t.Helper()
	repo := storage.NewFilesystemRepository(t.TempDir())
	if err := repo.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return repo
}

func TestInitializeCreatesTree(t *testing.T) {
	root := t.TempDir()
	repo := storage.NewFilesystemRepository(root)
	if repo.IsInitialized() {
		t.Errorf("fresh workspace must not report initialized")
	}
	if err := repo.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !repo.IsInitialized() {
		t.Errorf("workspace must report initialized")
	}

	for _, dir := range []string{
		filepath.Join(root, storage.VerdictDir),
		filepath.Join(root, storage.VerdictDir, storage.RunsDir),
		repo.CorpusPath(),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s: %v", dir, err)
		}
	}
}

func TestUpsertAndLoadRun(t *testing.T) {
	repo := newRepo(t)

	run := &decision.Run{
		ID:       "0f0e0d0c-0b0a-4908-8706-050403020100",
		Status:   decision.StatusRunning,
		Question: "Should we raise prices?",
	}
	if err := repo.UpsertRun(run); err != nil {
		t.Fatalf("UpsertRun failed: %v", err)
	}

	loaded, err := repo.LoadRun(run.ID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if loaded.Question != run.Question || loaded.Status != run.Status {
		t.Errorf("loaded %+v", loaded)
	}

	// Upsert replaces the document.
	run.Status = decision.StatusComplete
	if err := repo.UpsertRun(run); err != nil {
		t.Fatalf("second UpsertRun failed: %v", err)
	}
	loaded, err = repo.LoadRun(run.ID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if loaded.Status != decision.StatusComplete {
		t.Errorf("status = %s, want complete", loaded.Status)
	}
}

func TestLoadRunNotFound(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.LoadRun("11111111-2222-4333-8444-555555555555")
	if !errors.Is(err, decision.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunIDTraversalRejected(t *testing.T) {
	repo := newRepo(t)
	for _, id := range []string{"", "../escape", "a/b", `a\b`, "dotted.id"} {
		if err := repo.UpsertRun(&decision.Run{ID: id}); err == nil {
			t.Errorf("id %q must be rejected", id)
		}
	}
}

func TestListRunIDs(t *testing.T) {
	repo := newRepo(t)
	ids := []string{
		"11111111-1111-4111-8111-111111111111",
		"22222222-2222-4222-8222-222222222222",
	}
	for _, id := range ids {
		if err := repo.UpsertRun(&decision.Run{ID: id, Status: decision.StatusRunning}); err != nil {
			t.Fatalf("UpsertRun failed: %v", err)
		}
	}

	got, err := repo.ListRunIDs()
	if err != nil {
		t.Fatalf("ListRunIDs failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 run ids, got %v", got)
	}
}

func TestIdempotencyClaim(t *testing.T) {
	repo := newRepo(t)
	index := storage.NewIdempotencyIndex(repo)

	existing, claimed, err := index.Claim("key-1", "run-a")
	if err != nil || !claimed || existing != "" {
		t.Fatalf("first claim: existing=%q claimed=%v err=%v", existing, claimed, err)
	}

	existing, claimed, err = index.Claim("key-1", "run-b")
	if err != nil {
		t.Fatalf("second claim failed: %v", err)
	}
	if claimed {
		t.Errorf("a used key must not be claimable again")
	}
	if existing != "run-a" {
		t.Errorf("existing = %q, want run-a", existing)
	}

	id, ok, err := index.Lookup("key-1")
	if err != nil || !ok || id != "run-a" {
		t.Errorf("Lookup = %q %v %v", id, ok, err)
	}
}

func TestIdempotencyEmptyKeyAlwaysClaims(t *testing.T) {
	index := storage.NewIdempotencyIndex(newRepo(t))
	for i := 0; i < 3; i++ {
		_, claimed, err := index.Claim("", "run-x")
		if err != nil || !claimed {
			t.Fatalf("empty key must always claim: claimed=%v err=%v", claimed, err)
		}
	}
}

func TestAuditLoggerAppendsAndLoads(t *testing.T) {
	repo := newRepo(t)
	audit := storage.NewAuditLogger(repo)

	if err := audit.Log("run-1", "run.started", map[string]any{"question": "q"}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if err := audit.Log("run-1", "run.complete", nil); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	// A malformed line must be skipped, not fail the load.
	path := filepath.Join(repo.Root(), storage.VerdictDir, storage.AuditFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	if _, err := f.WriteString("not json\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	entries, err := audit.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != "run.started" || entries[1].Action != "run.complete" {
		t.Errorf("entries out of order: %+v", entries)
	}
}

func TestAuditLoggerLoadMissingFile(t *testing.T) {
	audit := storage.NewAuditLogger(newRepo(t))
	entries, err := audit.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}
