// Package registry maps a job's type_tag to the constructor that can
// rebuild it from a snapshot's task_body. Restart rehydrates each
// saved snapshot entry by looking up its tag here; a miss is a
// terminal CheckpointError for that entry (surfaced, not silently
// dropped).
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/loom-sched/loom/internal/clock"
	"github.com/loom-sched/loom/internal/job"
	"github.com/loom-sched/loom/internal/runtime"
)

// Constructor builds a job.Job from its variant-specific payload
// fields (task_body minus the four common fields).
type Constructor func(payload map[string]any) (job.Job, error)

var (
	mu    sync.Mutex
	ctors = map[string]Constructor{}
)

// Register associates tag with ctor. Call from an init() in the
// package that defines the variant.
func Register(tag string, ctor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	ctors[tag] = ctor
}

func lookup(tag string) (Constructor, bool) {
	mu.Lock()
	defer mu.Unlock()
	ctor, ok := ctors[tag]
	return ctor, ok
}

func init() {
	Register(job.TypeEmpty, job.NewEmptyJob)
	Register(job.TypeInfinite, job.NewInfiniteJob)
	Register(job.TypeFile, job.NewFileJob)
	Register(job.TypeSystem, job.NewSystemJob)
	Register(job.TypeWeb, job.NewWebJob)
}

// CheckpointError signals a rehydration failure: an unknown type tag
// or a malformed task_body. Surfaced to the caller of restart(); the
// scheduler's in-memory state is left intact.
type CheckpointError struct {
	Tag string
	Err error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("registry: rehydrate %q: %v", e.Tag, e.Err)
}

func (e *CheckpointError) Unwrap() error { return e.Err }

// Construct rebuilds a Runtime from a type tag and its task_body,
// resolving dependencies (already-rehydrated Runtimes, in snapshot
// order) and common fields (start_at, max_working_time, tries).
func Construct(tag string, body map[string]any, deps []*runtime.Runtime, clk clock.Clock) (*runtime.Runtime, error) {
	ctor, ok := lookup(tag)
	if !ok {
		return nil, &CheckpointError{Tag: tag, Err: fmt.Errorf("unknown job type")}
	}

	j, err := ctor(body)
	if err != nil {
		return nil, &CheckpointError{Tag: tag, Err: err}
	}

	startAt, err := decodeStartAt(body["start_at"])
	if err != nil {
		return nil, &CheckpointError{Tag: tag, Err: err}
	}
	maxWorkingTime := decodeInt(body["max_working_time"])
	tries := decodeInt(body["tries"])

	rt := runtime.New(j, startAt, maxWorkingTime, tries, deps, clk)
	if _, ok := body["tries_left"]; ok {
		rt.SetTriesLeft(decodeInt(body["tries_left"]))
	}
	return rt, nil
}

func decodeStartAt(raw any) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("start_at must be a string, got %T", raw)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("start_at: %w", err)
	}
	return &t, nil
}

func decodeInt(raw any) int {
	switch v := raw.(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
