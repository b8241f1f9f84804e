package scheduler

import (
	"fmt"

	"github.com/loom-sched/loom/internal/audit"
	"github.com/loom-sched/loom/internal/clock"
	"github.com/loom-sched/loom/internal/registry"
	"github.com/loom-sched/loom/internal/runtime"
	"github.com/loom-sched/loom/internal/snapshot"
	"github.com/loom-sched/loom/pkg/types"
)

// Stop pauses the loop, marks every active job finished, serializes
// waiting first then active to the lockfile, and clears both lists.
// The gate is left paused — Run() or Restart() resumes it.
func (s *Scheduler) Stop() error {
	s.gate.Pause()

	for _, rt := range s.active {
		rt.Stop()
	}

	doc := types.SnapshotDocument{
		Waiting: snapshotAll(s.waiting),
		Active:  snapshotAll(s.active),
	}

	mgr := snapshot.NewManager(s.snapshotPath)
	if err := mgr.Write(doc); err != nil {
		// scheduler's in-memory state is left intact on failure — don't
		// clear the lists if the write didn't land.
		return fmt.Errorf("scheduler: stop: %w", err)
	}

	s.active = nil
	s.waiting = nil
	s.cursor = 0

	if s.cfg.Journal != nil {
		if err := s.cfg.Journal.Append(audit.EventStopped, ""); err != nil {
			log.Warn("audit journal append failed", "error", err)
		}
	}
	return nil
}

func snapshotAll(list []*runtime.Runtime) []types.JobSnapshot {
	out := make([]types.JobSnapshot, 0, len(list))
	for _, rt := range list {
		out = append(out, rt.Snapshot())
	}
	return out
}

// Restart reads the lockfile, pauses, rehydrates jobs via the
// registry, assigns the first pool_size entries of the saved active
// list to active, and puts everything else (saved waiting ++ overflow
// of saved active) into waiting. Resumes at the end.
func (s *Scheduler) Restart() error {
	mgr := snapshot.NewManager(s.snapshotPath)
	doc, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("scheduler: restart: %w", err)
	}

	s.gate.Pause()
	defer s.gate.Resume()

	rehydratedActive := make([]*runtime.Runtime, 0, len(doc.Active))
	for _, snap := range doc.Active {
		rt, err := rehydrate(snap, s.cfg.Clock)
		if err != nil {
			return fmt.Errorf("scheduler: restart: %w", err)
		}
		rehydratedActive = append(rehydratedActive, rt)
	}
	rehydratedWaiting := make([]*runtime.Runtime, 0, len(doc.Waiting))
	for _, snap := range doc.Waiting {
		rt, err := rehydrate(snap, s.cfg.Clock)
		if err != nil {
			return fmt.Errorf("scheduler: restart: %w", err)
		}
		rehydratedWaiting = append(rehydratedWaiting, rt)
	}

	if len(rehydratedActive) <= s.cfg.PoolSize {
		s.active = rehydratedActive
		s.waiting = rehydratedWaiting
	} else {
		s.active = rehydratedActive[:s.cfg.PoolSize]
		overflow := rehydratedActive[s.cfg.PoolSize:]
		s.waiting = append(append([]*runtime.Runtime{}, rehydratedWaiting...), overflow...)
	}
	s.cursor = 0

	if s.cfg.Journal != nil {
		if err := s.cfg.Journal.Append(audit.EventRestarted, ""); err != nil {
			log.Warn("audit journal append failed", "error", err)
		}
	}
	return nil
}

// rehydrate reconstructs one Runtime (and, recursively, its
// dependencies) from a snapshot. Dependencies are rehydrated
// depth-first so the parent can reference fully-built children.
func rehydrate(snap types.JobSnapshot, clk clock.Clock) (*runtime.Runtime, error) {
	body := snap.TaskBody
	if body == nil {
		body = map[string]any{}
	}

	var deps []*runtime.Runtime
	if raw, ok := body["dependencies"]; ok && raw != nil {
		depSnaps, err := decodeDependencySnapshots(raw)
		if err != nil {
			return nil, err
		}
		for _, ds := range depSnaps {
			dep, err := rehydrate(ds, clk)
			if err != nil {
				return nil, err
			}
			deps = append(deps, dep)
		}
	}

	return registry.Construct(snap.Type, body, deps, clk)
}

// decodeDependencySnapshots normalizes the "dependencies" field of a
// task_body, which may arrive as []types.JobSnapshot (same-process
// round trip) or []any of map[string]any (post-JSON-unmarshal).
func decodeDependencySnapshots(raw any) ([]types.JobSnapshot, error) {
	switch v := raw.(type) {
	case []types.JobSnapshot:
		return v, nil
	case []any:
		out := make([]types.JobSnapshot, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("dependency entry must be an object, got %T", item)
			}
			tag, _ := m["type"].(string)
			body, _ := m["task_body"].(map[string]any)
			out = append(out, types.JobSnapshot{Type: tag, TaskBody: body})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("dependencies must be a list, got %T", raw)
	}
}
