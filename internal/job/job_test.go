package job

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEmptyJobFinishesAfterTwoSteps exercises the empty variant's
// cursor: the first Next consumes the no-op step, the second reports
// done.
func TestEmptyJobFinishesAfterTwoSteps(t *testing.T) {
	j, err := NewEmptyJob(nil)
	require.NoError(t, err)
	assert.Equal(t, TypeEmpty, j.TypeTag())

	c := j.Steps()
	done, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, done)

	done, err = c.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
}

func TestInfiniteJobNeverFinishes(t *testing.T) {
	j, err := NewInfiniteJob(nil)
	require.NoError(t, err)
	c := j.Steps()
	for i := 0; i < 50; i++ {
		done, err := c.Next(context.Background())
		require.NoError(t, err)
		assert.False(t, done)
	}
}

func TestFileJobWriteThenRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	j, err := NewFileJob(map[string]any{
		"actions": []any{
			map[string]any{"mode": "write", "path": path},
		},
	})
	require.NoError(t, err)

	fj := j.(*FileJob)
	fj.Queue.Push([]byte("hello"))

	c := j.Steps()
	done, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, done)

	done, err = c.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, done)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestFileJobReadMissingFileIsStepError(t *testing.T) {
	j, err := NewFileJob(map[string]any{
		"actions": []any{
			map[string]any{"mode": "read", "path": filepath.Join(t.TempDir(), "missing.txt")},
		},
	})
	require.NoError(t, err)

	c := j.Steps()
	_, err = c.Next(context.Background())
	assert.Error(t, err)
}

func TestFileJobSnapshotPayloadRoundTrips(t *testing.T) {
	j, err := NewFileJob(map[string]any{
		"actions": []any{
			map[string]any{"mode": "read", "path": "/tmp/a"},
			map[string]any{"mode": "write", "path": "/tmp/b"},
		},
	})
	require.NoError(t, err)

	payload := j.SnapshotPayload()
	rehydrated, err := NewFileJob(payload)
	require.NoError(t, err)

	assert.Equal(t, j.(*FileJob).Actions, rehydrated.(*FileJob).Actions)
}

func TestDecodeFileActionsRejectsNonList(t *testing.T) {
	_, err := decodeFileActions("not-a-list")
	assert.Error(t, err)
}

func TestDecodeFileActionsNilIsEmpty(t *testing.T) {
	actions, err := decodeFileActions(nil)
	require.NoError(t, err)
	assert.Empty(t, actions)
}
