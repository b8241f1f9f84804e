// Package snapshot is the checkpoint codec: it serializes the
// scheduler's active/waiting lists to a single JSON lockfile and
// reads them back on restart.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/loom-sched/loom/pkg/types"
)

var (
	ErrCorrupted = errors.New("snapshot: lockfile is corrupted")
	ErrNotFound  = errors.New("snapshot: lockfile not found")
)

// Manager reads and writes one lockfile.
type Manager struct {
	path string
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

func (m *Manager) Path() string { return m.path }

// Write atomically persists doc: write to a temp file, then
// os.Rename, which is atomic on POSIX filesystems. A write failure
// leaves the previous lockfile untouched.
func (m *Manager) Write(doc types.SnapshotDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}

	tmpPath := m.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("snapshot: write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: rename into place: %w", err)
	}
	return nil
}

// Load reads the lockfile. A missing file is not an error — it is the
// normal first-run state — and yields an empty document.
func (m *Manager) Load() (types.SnapshotDocument, error) {
	var doc types.SnapshotDocument

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return doc, fmt.Errorf("snapshot: read: %w", err)
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return doc, nil
}

// Exists reports whether a lockfile is currently present.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}
