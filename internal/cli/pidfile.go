package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// pidfilePath derives the pidfile location from the lockfile path —
// "data/scheduler.lock" becomes "data/scheduler.lock.pid". There is no
// cross-process coordination in loom: the scheduler singleton lives in
// one process's memory, so the pidfile exists to let
// `pause`/`resume`/`status` find a live `run` process to signal, and to
// let `run`/`schedule`/`restart` refuse to start while one is live; it
// is not itself part of the checkpoint protocol.
func pidfilePath(lockfile string) string {
	return lockfile + ".pid"
}

func writePidfile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func removePidfile(path string) {
	_ = os.Remove(path)
}

// readPidfile returns the recorded PID and whether the process still
// answers to signal 0. A stale pidfile (process gone) reports alive=false
// without error.
func readPidfile(path string) (pid int, alive bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("reading pidfile: %w", err)
	}

	pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false, fmt.Errorf("malformed pidfile %s: %w", path, err)
	}

	if err := syscall.Kill(pid, 0); err != nil {
		return pid, false, nil
	}
	return pid, true, nil
}
