package scheduler

import (
	"context"
	"time"

	"github.com/loom-sched/loom/internal/audit"
	"github.com/loom-sched/loom/internal/runtime"
)

// Run starts the background worker if it has not already been started,
// then releases the pause gate. Safe to call repeatedly.
func (s *Scheduler) Run() {
	s.gate.Pause() // make mutation of loopRunning observe a quiescent worker
	if !s.loopRunning {
		s.loopRunning = true
		go s.loop()
	}
	s.gate.Resume()
}

// Pause acquires the pause gate; the loop stalls at the next tick
// boundary. Idempotent.
func (s *Scheduler) Pause() {
	s.gate.Pause()
	if s.cfg.Journal != nil {
		if err := s.cfg.Journal.Append(audit.EventPaused, ""); err != nil {
			log.Warn("audit journal append failed", "error", err)
		}
	}
}

// Resume releases the pause gate, letting the loop proceed. Idempotent.
func (s *Scheduler) Resume() {
	s.gate.Resume()
	if s.cfg.Journal != nil {
		if err := s.cfg.Journal.Append(audit.EventResumed, ""); err != nil {
			log.Warn("audit journal append failed", "error", err)
		}
	}
}

// Join blocks until both active and waiting are empty, polling under
// the gate at the tick interval.
func (s *Scheduler) Join() {
	for {
		s.gate.tickAcquire()
		empty := len(s.active) == 0 && len(s.waiting) == 0
		s.gate.tickRelease()
		if empty {
			return
		}
		time.Sleep(s.cfg.TickInterval)
	}
}

// loop is the single background worker. One iteration:
//  1. take the gate (blocks while paused)
//  2. if active is empty, release, idle-sleep, reacquire, continue
//  3. if active[cursor] is finished, remove it, promote from waiting
//     if there's room
//  4. otherwise advance that job by one step
//  5. recompute active_len, advance cursor mod active_len
//  6. release the gate
func (s *Scheduler) loop() {
	ctx := context.Background()
	for {
		s.gate.tickAcquire()

		if len(s.active) == 0 {
			s.gate.tickRelease()
			time.Sleep(s.cfg.TickInterval)
			continue
		}

		job := s.active[s.cursor]
		if job.IsFinished() {
			s.removeFinished(s.cursor)
			s.promote()
			s.recordFinishMetrics(job)
		} else {
			started := time.Now()
			transition := job.Run(ctx)
			if s.cfg.Metrics != nil {
				s.cfg.Metrics.ObserveStepLatency(time.Since(started).Seconds())
			}
			switch transition {
			case runtime.TransitionSoftReset:
				s.recordSoftReset(job)
			case runtime.TransitionRetryExhausted:
				s.recordRetryExhausted(job)
			}
		}

		if len(s.active) > 0 {
			s.cursor = (s.cursor + 1) % len(s.active)
		} else {
			s.cursor = 0
		}

		if s.cfg.Metrics != nil {
			s.cfg.Metrics.UpdatePoolSizes(len(s.active), len(s.waiting))
		}

		s.gate.tickRelease()
	}
}

// removeFinished drops active[i], preserving order of the remainder.
func (s *Scheduler) removeFinished(i int) {
	s.active = append(s.active[:i], s.active[i+1:]...)
}

// promote pops the tail of waiting into active if there's room — a
// LIFO-against-waiting-order promotion policy, deliberate and exact.
func (s *Scheduler) promote() {
	if len(s.active) >= s.cfg.PoolSize || len(s.waiting) == 0 {
		return
	}
	last := len(s.waiting) - 1
	next := s.waiting[last]
	s.waiting = s.waiting[:last]
	s.active = append(s.active, next)

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordPromoted()
	}
	if s.cfg.Journal != nil {
		if err := s.cfg.Journal.Append(audit.EventPromoted, next.TypeTag()); err != nil {
			log.Warn("audit journal append failed", "error", err)
		}
	}
}

func (s *Scheduler) recordFinishMetrics(job interface{ TypeTag() string }) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordFinished()
	}
	if s.cfg.Journal != nil {
		if err := s.cfg.Journal.Append(audit.EventFinished, job.TypeTag()); err != nil {
			log.Warn("audit journal append failed", "error", err)
		}
	}
}

func (s *Scheduler) recordSoftReset(job interface{ TypeTag() string }) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordSoftReset()
	}
	if s.cfg.Journal != nil {
		if err := s.cfg.Journal.Append(audit.EventSoftReset, job.TypeTag()); err != nil {
			log.Warn("audit journal append failed", "error", err)
		}
	}
}

func (s *Scheduler) recordRetryExhausted(job interface{ TypeTag() string }) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordRetryExhausted()
	}
	if s.cfg.Journal != nil {
		if err := s.cfg.Journal.Append(audit.EventRetryExhaust, job.TypeTag()); err != nil {
			log.Warn("audit journal append failed", "error", err)
		}
	}
}
