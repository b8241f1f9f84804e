package runtime

import "errors"

// These are internal control signals. NotReady, SoftReset, and
// Finished never escape Run() — they are caught and turned into state
// transitions. StepError is logged and swallowed too, but is wrapped
// so callers writing tests can still unwrap the cause with
// errors.Is/errors.As.
var (
	errNotReady       = errors.New("runtime: job not ready")
	errSoftReset      = errors.New("runtime: soft reset")
	errFinished       = errors.New("runtime: finished")
	errRetryExhausted = errors.New("runtime: retry budget exhausted")
)

// StepError wraps any error a step body returns. The job stays live;
// the next tick retries. Individual I/O glitches must not tear down
// the scheduler.
type StepError struct {
	Err error
}

func (e *StepError) Error() string { return "runtime: step error: " + e.Err.Error() }

func (e *StepError) Unwrap() error { return e.Err }
