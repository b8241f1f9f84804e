package scheduler

import (
	"github.com/loom-sched/loom/internal/audit"
	"github.com/loom-sched/loom/internal/runtime"
)

// Schedule admits rt (and, transitively, its dependencies) into the
// scheduler: pauses the loop; if |active| + |dependencies| < pool_size,
// pushes the dependencies then rt onto active; otherwise pushes them
// onto waiting. Resumes the loop.
//
// The "strictly less-than" comparison is deliberate, not an off-by-one:
// a job whose dependency count would exactly fill the remaining pool
// capacity is routed to waiting, not active. No runtime knob is added
// for this — it is a fixed admission rule, documented here rather than
// exposed as a tunable.
func (s *Scheduler) Schedule(rt *runtime.Runtime) error {
	if err := detectCycle(rt); err != nil {
		return err
	}

	s.gate.Pause()
	defer s.gate.Resume()

	deps := rt.Dependencies()
	if len(s.active)+len(deps) < s.cfg.PoolSize {
		s.active = append(s.active, deps...)
		s.active = append(s.active, rt)
	} else {
		s.waiting = append(s.waiting, deps...)
		s.waiting = append(s.waiting, rt)
	}

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordScheduled()
	}
	s.appendAudit(rt)
	return nil
}

func (s *Scheduler) appendAudit(rt *runtime.Runtime) {
	if s.cfg.Journal == nil {
		return
	}
	if err := s.cfg.Journal.Append(audit.EventScheduled, rt.TypeTag()); err != nil {
		log.Warn("audit journal append failed", "error", err)
	}
}

// detectCycle walks rt's dependency graph via DFS, looking for a
// pointer that reappears on the current path — a cycle. Runs before
// any list mutation.
func detectCycle(rt *runtime.Runtime) error {
	onStack := map[*runtime.Runtime]bool{}
	visited := map[*runtime.Runtime]bool{}

	var visit func(n *runtime.Runtime) error
	visit = func(n *runtime.Runtime) error {
		if onStack[n] {
			return newConfigError("cyclic dependency graph detected")
		}
		if visited[n] {
			return nil
		}
		visited[n] = true
		onStack[n] = true
		for _, dep := range n.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		onStack[n] = false
		return nil
	}

	return visit(rt)
}
