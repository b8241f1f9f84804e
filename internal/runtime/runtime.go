// Package runtime wraps a job.Job with its lifecycle bookkeeping:
// start-readiness, timeout accounting, soft reset, and retry budget.
package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/loom-sched/loom/internal/clock"
	"github.com/loom-sched/loom/internal/job"
	"github.com/loom-sched/loom/pkg/types"
)

var log = slog.Default()

// Runtime is one scheduled job: its declared configuration plus the
// derived fields tracked across its lifetime.
type Runtime struct {
	job  job.Job
	clk  clock.Clock
	typ  string

	startAt        *time.Time
	maxWorkingTime int
	tries          int
	triesLeft      int
	dependencies   []*Runtime

	timeStart      time.Time
	timeSinceStart time.Duration
	cursor         job.Cursor
	isFinished     bool
}

// New wraps j into a Runtime. clk must not be nil.
func New(j job.Job, startAt *time.Time, maxWorkingTime int, tries int, deps []*Runtime, clk clock.Clock) *Runtime {
	r := &Runtime{
		job:            j,
		clk:            clk,
		typ:            j.TypeTag(),
		startAt:        startAt,
		maxWorkingTime: maxWorkingTime,
		tries:          tries,
		triesLeft:      tries,
		dependencies:   deps,
	}
	r.resetCursorAndTiming()
	return r
}

func (r *Runtime) resetCursorAndTiming() {
	r.cursor = r.job.Steps()
	if r.startAt != nil {
		r.timeStart = *r.startAt
	} else {
		r.timeStart = r.clk.Now()
	}
	r.timeSinceStart = 0
}

// timeTimeout is time_start + max_working_time; undefined (ignored)
// when timeout is disabled.
func (r *Runtime) timeoutEnabled() bool {
	return r.maxWorkingTime > 0
}

func (r *Runtime) timeTimeout() time.Time {
	return r.timeStart.Add(time.Duration(r.maxWorkingTime) * time.Second)
}

// IsFinished reports the terminal state. Monotonic: once true, stays
// true for the life of the object.
func (r *Runtime) IsFinished() bool { return r.isFinished }

// TriesLeft exposes the retry budget remaining, for tests and metrics.
func (r *Runtime) TriesLeft() int { return r.triesLeft }

// SetTriesLeft restores an exact retry budget on rehydrate. Only the
// registry calls this, immediately after New, to honor a snapshot's
// recorded tries_left rather than resetting the budget to tries.
func (r *Runtime) SetTriesLeft(n int) {
	r.triesLeft = n
}

// Dependencies exposes the dependency list, for cycle detection in the
// scheduler.
func (r *Runtime) Dependencies() []*Runtime { return r.dependencies }

// TypeTag is the registry lookup key for this runtime's job.
func (r *Runtime) TypeTag() string { return r.typ }

// Transition reports the externally-observable state change, if any,
// produced by a single Run call. The scheduler uses it to emit audit
// and metrics events without reaching into Runtime internals.
type Transition int

const (
	// TransitionNone means the step advanced, was swallowed as
	// not-ready, or failed and will retry next tick — no lifecycle
	// event to record.
	TransitionNone Transition = iota
	// TransitionSoftReset means the job timed out and still had
	// retry budget, so its cursor and timing were reinitialized.
	TransitionSoftReset
	// TransitionRetryExhausted means the job timed out with no
	// retry budget left and was finished as a result.
	TransitionRetryExhausted
	// TransitionFinished means the job's step sequence ran to
	// completion on its own (not via retry exhaustion).
	TransitionFinished
)

// Run advances the job by at most one step — one call is one
// scheduled tick. It reports what, if anything, changed.
func (r *Runtime) Run(ctx context.Context) Transition {
	if r.isFinished {
		return TransitionNone
	}

	err := r.tick(ctx)
	switch {
	case err == nil:
		// step advanced successfully; nothing further to do.
		return TransitionNone
	case err == errNotReady:
		// swallow silently; the loop tries again next tick.
		return TransitionNone
	case err == errSoftReset:
		r.softReset()
		return TransitionSoftReset
	case err == errRetryExhausted:
		r.isFinished = true
		return TransitionRetryExhausted
	case err == errFinished:
		r.isFinished = true
		return TransitionFinished
	default:
		log.Warn("job step failed, will retry next tick", "type", r.typ, "error", err)
		return TransitionNone
	}
}

// tick runs the per-step enforcement stack as one explicit method:
// readiness, then timeout, then the step itself. Elapsed time is
// measured only around the step call, not the readiness/timeout
// checks around it.
func (r *Runtime) tick(ctx context.Context) error {
	if err := r.checkStartReady(); err != nil {
		return err
	}

	if r.timeoutEnabled() && r.timeStart.Add(r.timeSinceStart).After(r.timeTimeout()) {
		return r.retry()
	}

	started := time.Now()
	done, err := r.cursor.Next(ctx)
	elapsed := time.Since(started)
	r.timeSinceStart += elapsed

	if err != nil {
		return &StepError{Err: err}
	}
	if done {
		return errFinished
	}
	return nil
}

func (r *Runtime) checkStartReady() error {
	if r.clk.Now().Before(r.timeStart) {
		return errNotReady
	}
	for _, dep := range r.dependencies {
		if !dep.IsFinished() {
			return errNotReady
		}
	}
	return nil
}

// retry decrements the budget and requests a soft reset while it
// remains, else reports the budget as exhausted.
func (r *Runtime) retry() error {
	if r.triesLeft > 0 {
		r.triesLeft--
		return errSoftReset
	}
	return errRetryExhausted
}

// softReset discards the cursor and timing, requesting a fresh
// steps() sequence. tries_left is never restored here — only retry()
// decrements it, and nothing increments it.
func (r *Runtime) softReset() {
	r.resetCursorAndTiming()
}

// Stop marks the job finished immediately. Snapshot() always reflects
// current state, so no separate flush is needed.
func (r *Runtime) Stop() {
	r.isFinished = true
}

// Snapshot returns this runtime's serializable declared state,
// including nested dependency snapshots. Calling it twice on a
// quiescent runtime yields identical output.
func (r *Runtime) Snapshot() types.JobSnapshot {
	body := r.job.SnapshotPayload()
	if body == nil {
		body = map[string]any{}
	}

	var startAt any
	if r.startAt != nil {
		startAt = r.startAt.Format(time.RFC3339Nano)
	}

	var deps any
	if len(r.dependencies) > 0 {
		snaps := make([]types.JobSnapshot, 0, len(r.dependencies))
		for _, d := range r.dependencies {
			snaps = append(snaps, d.Snapshot())
		}
		deps = snaps
	}

	body["start_at"] = startAt
	body["max_working_time"] = r.maxWorkingTime
	body["tries"] = r.tries
	body["tries_left"] = r.triesLeft
	body["dependencies"] = deps

	return types.JobSnapshot{Type: r.typ, TaskBody: body}
}
