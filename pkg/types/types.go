// Package types defines the wire-level snapshot shapes shared by the
// scheduler core, the checkpoint codec, and the job registry.
//
// These are the only types that cross the process boundary (the
// lockfile). Everything else — the live Job and Runtime graphs — is
// internal to the scheduler.
package types

// JobSnapshot is the serializable declared state of one job: a stable
// type tag plus the declared fields (the four common fields and
// whatever payload the variant contributes), merged into one map.
//
// task_body["dependencies"] holds a []JobSnapshot when the job has
// dependencies, and is null otherwise.
type JobSnapshot struct {
	Type     string         `json:"type"`
	TaskBody map[string]any `json:"task_body"`
}

// SnapshotDocument is the full on-disk lockfile shape: the active list
// and the waiting list, each in oldest-insertion-first order, exactly
// as they stood at Stop() time.
type SnapshotDocument struct {
	Active  []JobSnapshot `json:"active"`
	Waiting []JobSnapshot `json:"waiting"`
}
