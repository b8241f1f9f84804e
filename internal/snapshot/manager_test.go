package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loom-sched/loom/pkg/types"
)

func TestNewManagerPath(t *testing.T) {
	m := NewManager("some/path.lock")
	assert.Equal(t, "some/path.lock", m.Path())
}

func TestLoadMissingFileYieldsEmptyDocument(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "does-not-exist.lock"))
	assert.False(t, m.Exists())

	doc, err := m.Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Active)
	assert.Empty(t, doc.Waiting)
}

func TestWriteThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.lock")
	m := NewManager(path)

	doc := types.SnapshotDocument{
		Active: []types.JobSnapshot{
			{Type: "empty", TaskBody: map[string]any{"tries": float64(3)}},
		},
		Waiting: []types.JobSnapshot{
			{Type: "infinite", TaskBody: map[string]any{"tries": float64(0)}},
		},
	}

	require.NoError(t, m.Write(doc))
	assert.True(t, m.Exists())

	got, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestWriteIsAtomicViaTempAndRename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.lock")
	m := NewManager(path)

	require.NoError(t, m.Write(types.SnapshotDocument{}))
	// The temp file must not linger after a successful write.
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadCorruptedFileReturnsErrCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.lock")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	m := NewManager(path)
	_, err := m.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestWriteTwiceOverwritesPreviousContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.lock")
	m := NewManager(path)

	require.NoError(t, m.Write(types.SnapshotDocument{
		Active: []types.JobSnapshot{{Type: "empty", TaskBody: map[string]any{}}},
	}))
	require.NoError(t, m.Write(types.SnapshotDocument{
		Waiting: []types.JobSnapshot{{Type: "infinite", TaskBody: map[string]any{}}},
	}))

	got, err := m.Load()
	require.NoError(t, err)
	assert.Empty(t, got.Active)
	require.Len(t, got.Waiting, 1)
	assert.Equal(t, "infinite", got.Waiting[0].Type)
}
