package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loom-sched/loom/internal/audit"
	"github.com/loom-sched/loom/internal/clock"
	"github.com/loom-sched/loom/internal/metrics"
	"github.com/loom-sched/loom/internal/registry"
	"github.com/loom-sched/loom/internal/scheduler"
	"github.com/loom-sched/loom/internal/snapshot"
	"github.com/loom-sched/loom/pkg/types"
)

var (
	configFile string
	log        = slog.Default()
)

// BuildCLI assembles the root command and its subcommands: run,
// schedule, status, pause, resume, restart.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "loom",
		Short: "loom: a cooperative, checkpoint-capable job scheduler",
		Long: `loom runs a fixed-size pool of cooperatively-stepped jobs,
round-robin, with a single durable checkpoint on stop and no
cross-process coordination.`,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildScheduleCommand())
	rootCmd.AddCommand(buildStatusCommand())
	rootCmd.AddCommand(buildPauseCommand())
	rootCmd.AddCommand(buildResumeCommand())
	rootCmd.AddCommand(buildRestartCommand())

	return rootCmd
}

// schedulerConfig translates the YAML config into scheduler.Config,
// including the optional audit journal and metrics collector.
func schedulerConfig(cfg *Config) (scheduler.Config, *audit.Journal, error) {
	loc, err := loadZone(cfg.Clock.Zone)
	if err != nil {
		return scheduler.Config{}, nil, err
	}

	sc := scheduler.Config{
		PoolSize:     cfg.Scheduler.PoolSize,
		LockfilePath: cfg.Scheduler.Lockfile,
		TickInterval: time.Duration(cfg.Scheduler.TickIntervalMs) * time.Millisecond,
		Clock:        clock.NewZoned(loc),
	}
	if cfg.Metrics.Enabled {
		sc.Metrics = metrics.NewCollector()
	}

	var journal *audit.Journal
	if cfg.Audit.Dir != "" {
		journal, err = audit.Open(
			cfg.Audit.Dir+"/scheduler.audit",
			cfg.Audit.BufferSize,
			time.Duration(cfg.Audit.FlushIntervalMs)*time.Millisecond,
		)
		if err != nil {
			return scheduler.Config{}, nil, fmt.Errorf("opening audit journal: %w", err)
		}
		sc.Journal = journal
	}

	return sc, journal, nil
}

func loadZone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading clock zone %q: %w", name, err)
	}
	return loc, nil
}

func buildRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the scheduler loop in the foreground",
		Long: `Start the scheduler. If a checkpoint exists at the configured
lockfile path it is restored; otherwise the scheduler starts empty.
Blocks until SIGINT/SIGTERM, at which point it stops the loop and
writes a fresh checkpoint. SIGUSR1 pauses the loop, SIGUSR2 resumes it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop()
		},
	}
	return cmd
}

func runLoop() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	pidPath := pidfilePath(cfg.Scheduler.Lockfile)
	if _, alive, err := readPidfile(pidPath); err != nil {
		return err
	} else if alive {
		return fmt.Errorf("a loom run process is already active (see %s)", pidPath)
	}
	if err := writePidfile(pidPath); err != nil {
		return fmt.Errorf("writing pidfile: %w", err)
	}
	defer removePidfile(pidPath)

	sc, journal, err := schedulerConfig(cfg)
	if err != nil {
		return err
	}
	if journal != nil {
		defer journal.Close()
	}

	sched, err := scheduler.New(sc)
	if err != nil {
		return err
	}

	mgr := snapshot.NewManager(sc.LockfilePath)
	if mgr.Exists() {
		log.Info("restoring checkpoint", "path", sc.LockfilePath)
		if err := sched.Restart(); err != nil {
			return fmt.Errorf("restoring checkpoint: %w", err)
		}
	}

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Port); err != nil {
				log.Error("metrics server stopped", "error", err)
			}
		}()
	}

	sched.Run()
	log.Info("scheduler started", "pool_size", cfg.Scheduler.PoolSize, "lockfile", cfg.Scheduler.Lockfile)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)

	for sig := range sigCh {
		switch sig {
		case syscall.SIGUSR1:
			sched.Pause()
			log.Info("paused on SIGUSR1")
		case syscall.SIGUSR2:
			sched.Resume()
			log.Info("resumed on SIGUSR2")
		default:
			log.Info("shutting down", "signal", sig.String())
			if err := sched.Stop(); err != nil {
				return fmt.Errorf("stop: %w", err)
			}
			return nil
		}
	}
	return nil
}

func buildScheduleCommand() *cobra.Command {
	var jobFile string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Admit one job into the checkpoint",
		Long: `Reads one job declaration (type + task_body, the same shape as a
checkpoint entry) from a JSON file and admits it into the scheduler.
This is an offline operation on the lockfile: it refuses to run while
a "loom run" process holds the pidfile, since loom has no
cross-process coordination.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobFile == "" {
				return fmt.Errorf("job file is required (use --file or -f)")
			}
			return scheduleOffline(jobFile)
		},
	}
	cmd.Flags().StringVarP(&jobFile, "file", "f", "", "JSON file with a job declaration")
	cmd.MarkFlagRequired("file")
	return cmd
}

func scheduleOffline(jobFile string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	pidPath := pidfilePath(cfg.Scheduler.Lockfile)
	if _, alive, err := readPidfile(pidPath); err != nil {
		return err
	} else if alive {
		return fmt.Errorf("loom run is active; stop it before scheduling offline")
	}

	data, err := os.ReadFile(jobFile)
	if err != nil {
		return fmt.Errorf("reading job file: %w", err)
	}
	var snap types.JobSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parsing job file: %w", err)
	}

	sc, journal, err := schedulerConfig(cfg)
	if err != nil {
		return err
	}
	if journal != nil {
		defer journal.Close()
	}

	sched, err := scheduler.New(sc)
	if err != nil {
		return err
	}

	mgr := snapshot.NewManager(sc.LockfilePath)
	if mgr.Exists() {
		if err := sched.Restart(); err != nil {
			return fmt.Errorf("loading existing checkpoint: %w", err)
		}
	}

	// registry.Construct does not read snap.TaskBody["dependencies"]; it
	// is given no dependency runtimes here, so a job scheduled from a
	// file is admitted without dependencies and the checkpoint written
	// below records none for it.
	rt, err := registry.Construct(snap.Type, snap.TaskBody, nil, sc.Clock)
	if err != nil {
		return fmt.Errorf("constructing job: %w", err)
	}

	if err := sched.Schedule(rt); err != nil {
		return fmt.Errorf("scheduling job: %w", err)
	}

	if err := sched.Stop(); err != nil {
		return fmt.Errorf("persisting checkpoint: %w", err)
	}

	fmt.Printf("scheduled %s job into %s\n", snap.Type, cfg.Scheduler.Lockfile)
	return nil
}

func buildStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show checkpoint contents and whether a run process is live",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus()
		},
	}
	return cmd
}

func showStatus() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	fmt.Println("loom status")
	fmt.Printf("  config:       %s\n", configFile)
	fmt.Printf("  pool_size:    %d\n", cfg.Scheduler.PoolSize)
	fmt.Printf("  lockfile:     %s\n", cfg.Scheduler.Lockfile)

	pidPath := pidfilePath(cfg.Scheduler.Lockfile)
	pid, alive, err := readPidfile(pidPath)
	if err != nil {
		return err
	}
	if alive {
		fmt.Printf("  run process:  active (pid %d)\n", pid)
	} else {
		fmt.Println("  run process:  not running")
	}

	mgr := snapshot.NewManager(cfg.Scheduler.Lockfile)
	if !mgr.Exists() {
		fmt.Println("  checkpoint:   none")
		return nil
	}

	doc, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("reading checkpoint: %w", err)
	}
	fmt.Printf("  active:       %d\n", len(doc.Active))
	fmt.Printf("  waiting:      %d\n", len(doc.Waiting))
	for _, j := range doc.Active {
		fmt.Printf("    active:  %s\n", j.Type)
	}
	for _, j := range doc.Waiting {
		fmt.Printf("    waiting: %s\n", j.Type)
	}
	return nil
}

func buildPauseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Signal a running loom process to pause its loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return signalRunProcess(syscall.SIGUSR1, "pause")
		},
	}
}

func buildResumeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Signal a running loom process to resume its loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return signalRunProcess(syscall.SIGUSR2, "resume")
		},
	}
}

func signalRunProcess(sig syscall.Signal, verb string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	pidPath := pidfilePath(cfg.Scheduler.Lockfile)
	pid, alive, err := readPidfile(pidPath)
	if err != nil {
		return err
	}
	if !alive {
		return fmt.Errorf("no active loom run process for %s", cfg.Scheduler.Lockfile)
	}
	if err := syscall.Kill(pid, sig); err != nil {
		return fmt.Errorf("%s failed: %w", verb, err)
	}
	fmt.Printf("sent %s to pid %d\n", verb, pid)
	return nil
}

func buildRestartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Validate and re-persist the checkpoint without running it",
		Long: `Loads the existing checkpoint, rehydrates every job through the
registry, re-splits active/waiting against the configured pool_size,
and writes the result straight back out. Useful for validating a
checkpoint or re-partitioning it after a pool_size change, without
starting the loop. Refuses to run while a "loom run" process is live.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return restartOffline()
		},
	}
}

func restartOffline() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	pidPath := pidfilePath(cfg.Scheduler.Lockfile)
	if _, alive, err := readPidfile(pidPath); err != nil {
		return err
	} else if alive {
		return fmt.Errorf("loom run is active; stop it before an offline restart")
	}

	sc, journal, err := schedulerConfig(cfg)
	if err != nil {
		return err
	}
	if journal != nil {
		defer journal.Close()
	}

	sched, err := scheduler.New(sc)
	if err != nil {
		return err
	}

	if err := sched.Restart(); err != nil {
		return fmt.Errorf("restart: %w", err)
	}
	activeLen, waitingLen := sched.ActiveLen(), sched.WaitingLen()

	if err := sched.Stop(); err != nil {
		return fmt.Errorf("re-persisting checkpoint: %w", err)
	}

	fmt.Printf("active=%d waiting=%d re-persisted to %s\n", activeLen, waitingLen, cfg.Scheduler.Lockfile)
	return nil
}
