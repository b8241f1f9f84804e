package job

import "context"

const TypeEmpty = "empty"

// EmptyJob completes after a single no-op step. Useful for tests and as
// a placeholder dependency node.
type EmptyJob struct{}

func NewEmptyJob(map[string]any) (Job, error) {
	return &EmptyJob{}, nil
}

func (j *EmptyJob) TypeTag() string { return TypeEmpty }

func (j *EmptyJob) Steps() Cursor { return &emptyCursor{} }

func (j *EmptyJob) SnapshotPayload() map[string]any { return map[string]any{} }

type emptyCursor struct {
	done bool
}

func (c *emptyCursor) Next(ctx context.Context) (bool, error) {
	if c.done {
		return true, nil
	}
	c.done = true
	return false, nil
}
