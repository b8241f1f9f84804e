package job

import "context"

const TypeInfinite = "infinite"

// InfiniteJob never finishes on its own. It exists to exercise
// capacity, timeout, and retry-exhaustion behavior — the only way such
// a job stops is Stop() or retry exhaustion on repeated timeout.
type InfiniteJob struct{}

func NewInfiniteJob(map[string]any) (Job, error) {
	return &InfiniteJob{}, nil
}

func (j *InfiniteJob) TypeTag() string { return TypeInfinite }

func (j *InfiniteJob) Steps() Cursor { return &infiniteCursor{} }

func (j *InfiniteJob) SnapshotPayload() map[string]any { return map[string]any{} }

type infiniteCursor struct{}

func (c *infiniteCursor) Next(ctx context.Context) (bool, error) {
	return false, nil
}
