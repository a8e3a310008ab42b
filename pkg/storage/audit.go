package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AuditEntry is one line of the append-only audit log: stage completions,
// reasoning usage, round-2 flags.
type AuditEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id,omitempty"`
	Action    string         `json:"action"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// AuditLogger appends entries to .verdict/audit.jsonl.
type AuditLogger struct {
	path string
}

// NewAuditLogger opens the audit log under the repository base dir.
func NewAuditLogger(repo *FilesystemRepository) *AuditLogger {
	return &AuditLogger{path: filepath.Join(repo.Root(), VerdictDir, AuditFile)}
}

// Log appends one entry.
func (l *AuditLogger) Log(runID, action string, detail map[string]any) error {
	entry := AuditEntry{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		Action:    action,
		Detail:    detail,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// Load reads every entry, skipping malformed lines.
func (l *AuditLogger) Load() ([]AuditEntry, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []AuditEntry{}, nil
		}
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	var entries []AuditEntry
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e AuditEntry
		if err := json.Unmarshal(line, &e); err != nil {
			continue // Skip malformed lines
		}
		entries = append(entries, e)
	}
	return entries, nil
}
