package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const TypeSystem = "system"

// SystemActionKind enumerates the filesystem operations a SystemJob can
// perform.
type SystemActionKind int

const (
	SystemActionCreate SystemActionKind = iota + 1
	SystemActionDelete
	SystemActionMove
	SystemActionCreateDir
)

// SystemAction is one filesystem mutation to perform on a single step.
// Dest is only meaningful for SystemActionMove.
type SystemAction struct {
	Kind SystemActionKind `json:"kind"`
	Path string           `json:"path"`
	Dest string           `json:"dest,omitempty"`
}

// SystemJob iterates a fixed list of filesystem actions, one per step.
type SystemJob struct {
	Actions []SystemAction
}

func NewSystemJob(payload map[string]any) (Job, error) {
	actions, err := decodeSystemActions(payload["actions"])
	if err != nil {
		return nil, err
	}
	return &SystemJob{Actions: actions}, nil
}

func decodeSystemActions(raw any) ([]SystemAction, error) {
	items, ok := raw.([]any)
	if !ok {
		if raw == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("system job: actions must be a list, got %T", raw)
	}
	out := make([]SystemAction, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("system job: action entry must be an object, got %T", it)
		}
		kind, _ := m["kind"].(float64)
		path, _ := m["path"].(string)
		dest, _ := m["dest"].(string)
		out = append(out, SystemAction{Kind: SystemActionKind(kind), Path: path, Dest: dest})
	}
	return out, nil
}

func (j *SystemJob) TypeTag() string { return TypeSystem }

func (j *SystemJob) Steps() Cursor { return &systemCursor{job: j} }

func (j *SystemJob) SnapshotPayload() map[string]any {
	actions := make([]any, 0, len(j.Actions))
	for _, a := range j.Actions {
		actions = append(actions, map[string]any{"kind": int(a.Kind), "path": a.Path, "dest": a.Dest})
	}
	return map[string]any{"actions": actions}
}

type systemCursor struct {
	job *SystemJob
	pos int
}

func (c *systemCursor) Next(ctx context.Context) (bool, error) {
	if c.pos >= len(c.job.Actions) {
		return true, nil
	}
	action := c.job.Actions[c.pos]
	c.pos++

	switch action.Kind {
	case SystemActionCreate:
		f, err := os.OpenFile(action.Path, os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			return false, fmt.Errorf("system job: create %s: %w", action.Path, err)
		}
		f.Close()
	case SystemActionCreateDir:
		if err := os.MkdirAll(action.Path, 0755); err != nil {
			return false, fmt.Errorf("system job: mkdir %s: %w", action.Path, err)
		}
	case SystemActionDelete:
		if err := os.Remove(action.Path); err != nil {
			return false, fmt.Errorf("system job: delete %s: %w", action.Path, err)
		}
	case SystemActionMove:
		if err := os.MkdirAll(filepath.Dir(action.Dest), 0755); err != nil {
			return false, fmt.Errorf("system job: move %s: %w", action.Path, err)
		}
		if err := os.Rename(action.Path, action.Dest); err != nil {
			return false, fmt.Errorf("system job: move %s -> %s: %w", action.Path, action.Dest, err)
		}
	default:
		return false, fmt.Errorf("system job: unknown action kind %d", action.Kind)
	}

	return false, nil
}
