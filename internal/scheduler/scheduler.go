// Package scheduler is the cooperative execution engine at the center
// of this module. It holds the active and waiting lists, drives the
// single-worker event loop, and implements schedule/run/pause/stop/
// restart/join.
package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/loom-sched/loom/internal/audit"
	"github.com/loom-sched/loom/internal/clock"
	"github.com/loom-sched/loom/internal/metrics"
	"github.com/loom-sched/loom/internal/runtime"
)

var log = slog.Default()

const (
	defaultPoolSize     = 10
	defaultLockfilePath = "scheduler.lock"
	defaultTickInterval = 500 * time.Millisecond
)

// Config constructs a Scheduler. Zero-value fields fall back to the
// package defaults.
type Config struct {
	PoolSize     int
	LockfilePath string
	TickInterval time.Duration
	Clock        clock.Clock
	Journal      *audit.Journal    // optional; nil disables the audit trail
	Metrics      *metrics.Collector // optional; nil disables metrics
}

func (c Config) withDefaults() Config {
	if c.PoolSize == 0 {
		c.PoolSize = defaultPoolSize
	}
	if c.LockfilePath == "" {
		c.LockfilePath = defaultLockfilePath
	}
	if c.TickInterval == 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.Clock == nil {
		c.Clock = clock.NewZoned(moscow())
	}
	return c
}

// moscow resolves the scheduler's default timezone. Falling back to
// UTC if the IANA database isn't available keeps this a deployment
// nuisance rather than a construction failure.
func moscow() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		log.Warn("could not load Europe/Moscow zone, falling back to UTC", "error", err)
		return time.UTC
	}
	return loc
}

// Scheduler holds the active/waiting lists and drives the event loop.
// Exactly one instance exists per process, reached via Get.
type Scheduler struct {
	cfg Config

	gate gate

	active      []*runtime.Runtime
	waiting     []*runtime.Runtime
	cursor      int
	loopRunning bool

	snapshotPath string
}

var (
	instance     *Scheduler
	instanceOnce sync.Once
	instanceCfg  Config
)

// New constructs a standalone Scheduler — use this for tests or any
// caller that deliberately wants its own instance rather than the
// process singleton.
func New(cfg Config) (*Scheduler, error) {
	cfg = cfg.withDefaults()
	if cfg.PoolSize <= 0 {
		return nil, newConfigError("pool_size must be positive, got %d", cfg.PoolSize)
	}
	return &Scheduler{cfg: cfg, snapshotPath: cfg.LockfilePath}, nil
}

// Get returns the process-wide Scheduler singleton, constructing it on
// first call. Subsequent calls (even with a different cfg) return the
// existing instance.
func Get(cfg Config) (*Scheduler, error) {
	var err error
	instanceOnce.Do(func() {
		instanceCfg = cfg
		instance, err = New(cfg)
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// resetForTest tears down the singleton so a fresh Get(cfg) constructs
// a new instance. Unexported: test-only.
func resetForTest() {
	instance = nil
	instanceOnce = sync.Once{}
	instanceCfg = Config{}
}

// ActiveLen and WaitingLen expose the current list sizes, read while
// holding the gate. While the loop is paused (after Pause or Stop) they
// block until it is resumed. The CLI's offline restart command reports
// them right after Restart.
func (s *Scheduler) ActiveLen() int {
	s.gate.tickAcquire()
	defer s.gate.tickRelease()
	return len(s.active)
}

func (s *Scheduler) WaitingLen() int {
	s.gate.tickAcquire()
	defer s.gate.tickRelease()
	return len(s.waiting)
}
