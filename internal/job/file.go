package job

import (
	"context"
	"fmt"
	"os"

	"github.com/loom-sched/loom/internal/xqueue"
)

const TypeFile = "file"

// FileMode selects the direction of one FileJob action.
type FileMode string

const (
	FileModeRead  FileMode = "read"
	FileModeWrite FileMode = "write"
)

// FileAction is one (mode, path) pair the job iterates over, one
// action consumed per step.
type FileAction struct {
	Mode FileMode `json:"mode"`
	Path string   `json:"path"`
}

// FileJob iterates a fixed list of file actions, one per step. Reads
// push the file's bytes onto Queue; writes pop bytes off Queue and
// write them to Path.
type FileJob struct {
	Actions []FileAction
	Queue   *xqueue.Queue[[]byte]
}

// NewFileJob builds a FileJob from its snapshot payload. "actions" is
// an []any of {"mode","path"} maps; the queue is never durable, so
// rehydration substitutes a fresh one rather than trying to serialize
// it.
func NewFileJob(payload map[string]any) (Job, error) {
	actions, err := decodeFileActions(payload["actions"])
	if err != nil {
		return nil, err
	}
	return &FileJob{Actions: actions, Queue: xqueue.New[[]byte](16)}, nil
}

func decodeFileActions(raw any) ([]FileAction, error) {
	items, ok := raw.([]any)
	if !ok {
		if raw == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("file job: actions must be a list, got %T", raw)
	}
	out := make([]FileAction, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("file job: action entry must be an object, got %T", it)
		}
		mode, _ := m["mode"].(string)
		path, _ := m["path"].(string)
		out = append(out, FileAction{Mode: FileMode(mode), Path: path})
	}
	return out, nil
}

func (j *FileJob) TypeTag() string { return TypeFile }

func (j *FileJob) Steps() Cursor {
	return &fileCursor{job: j}
}

func (j *FileJob) SnapshotPayload() map[string]any {
	actions := make([]any, 0, len(j.Actions))
	for _, a := range j.Actions {
		actions = append(actions, map[string]any{"mode": string(a.Mode), "path": a.Path})
	}
	return map[string]any{"actions": actions}
}

type fileCursor struct {
	job *FileJob
	pos int
}

func (c *fileCursor) Next(ctx context.Context) (bool, error) {
	if c.pos >= len(c.job.Actions) {
		return true, nil
	}
	action := c.job.Actions[c.pos]
	c.pos++

	switch action.Mode {
	case FileModeRead:
		data, err := os.ReadFile(action.Path)
		if err != nil {
			return false, fmt.Errorf("file job: read %s: %w", action.Path, err)
		}
		c.job.Queue.Push(data)
	case FileModeWrite:
		data, ok := c.job.Queue.Pop()
		if !ok {
			return false, fmt.Errorf("file job: queue closed before write to %s", action.Path)
		}
		if err := os.WriteFile(action.Path, data, 0644); err != nil {
			return false, fmt.Errorf("file job: write %s: %w", action.Path, err)
		}
	default:
		return false, fmt.Errorf("file job: unknown mode %q", action.Mode)
	}

	if c.pos >= len(c.job.Actions) {
		c.job.Queue.Close()
	}
	return false, nil
}
