package audit

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndReplayPreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.audit")
	j, err := Open(path, 2, 5*time.Millisecond)
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Append(EventScheduled, "empty"))
	require.NoError(t, j.Append(EventPromoted, "empty"))
	require.NoError(t, j.Append(EventFinished, "empty"))

	var seen []EventType
	require.NoError(t, j.Replay(func(e Event) error {
		seen = append(seen, e.Type)
		return nil
	}))
	assert.Equal(t, []EventType{EventScheduled, EventPromoted, EventFinished}, seen)
}

func TestAppendAssignsIncreasingSeq(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.audit")
	j, err := Open(path, 10, 5*time.Millisecond)
	require.NoError(t, err)
	defer j.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Append(EventScheduled, "empty"))
	}
	assert.EqualValues(t, 5, j.LastSeq())
}

func TestReplayDetectsChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.audit")
	j, err := Open(path, 1, 5*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, j.Append(EventScheduled, "empty"))
	require.NoError(t, j.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Alter a checksummed field while keeping the record valid JSON.
	corrupted := []byte(strings.Replace(string(data), `"job_type":"empty"`, `"job_type":"other"`, 1))
	require.NoError(t, os.WriteFile(path, corrupted, 0o644))

	j2, err := Open(path, 1, 5*time.Millisecond)
	require.NoError(t, err)
	defer j2.Close()

	err = j2.Replay(func(Event) error { return nil })
	assert.ErrorContains(t, err, "checksum mismatch")
}

func TestRotateCompressesAndResetsSeq(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.audit")
	j, err := Open(path, 1, 5*time.Millisecond)
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Append(EventScheduled, "empty"))
	require.NoError(t, j.Append(EventFinished, "empty"))

	require.NoError(t, j.Rotate())
	assert.EqualValues(t, 0, j.LastSeq())

	matches, err := filepath.Glob(path + ".*.gz")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	f, err := os.Open(matches[0])
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gr.Close()
	content, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Contains(t, string(content), "SCHEDULED")

	require.NoError(t, j.Append(EventScheduled, "empty"))
	assert.EqualValues(t, 1, j.LastSeq())
}

func TestAppendAfterCloseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.audit")
	j, err := Open(path, 1, 5*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	err = j.Append(EventScheduled, "empty")
	assert.Error(t, err)
}
