// Package job defines the contract a stepwise task must satisfy to be
// driven by the scheduler, plus the concrete variants shipped with this
// module (empty, infinite, file, system, web).
//
// A Job never runs on its own. internal/runtime wraps one in a Runtime,
// which pulls one step at a time from Steps() and enforces readiness,
// timeout, and retry policy around it. Everything in this package is
// deliberately dumb: a Job answers "what is my next step" and "what do
// I look like on disk", nothing more.
package job

import "context"

// Cursor is a resumable, cooperative iterator over a job's steps. Next
// must return promptly — a step is the unit of cooperation, and a Next
// call that blocks indefinitely stalls the whole scheduler. That is a
// known limitation of cooperative stepping, not a bug.
type Cursor interface {
	// Next pulls one step. done=true means the sequence is exhausted
	// and the job should transition to Finished. A non-nil err is
	// surfaced to the runtime as a StepError: logged, job stays live.
	Next(ctx context.Context) (done bool, err error)
}

// Job is the contract a concrete task type implements.
type Job interface {
	// TypeTag identifies the concrete variant for serialization. Stable
	// across versions — it is the lookup key in internal/registry.
	TypeTag() string

	// Steps returns a fresh Cursor over this job's step sequence. Called
	// once at construction and again on every soft reset; the previous
	// cursor is discarded, never reused.
	Steps() Cursor

	// SnapshotPayload returns the variant-specific fields to merge into
	// the job's snapshot task_body. Must not include the four common
	// fields (start_at, max_working_time, tries, dependencies) — the
	// runtime adds those separately.
	SnapshotPayload() map[string]any
}
