package cli

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCLI(t *testing.T) {
	cmd := BuildCLI()
	require.NotNil(t, cmd)
	assert.Equal(t, "loom", cmd.Use)

	names := make(map[string]bool)
	for _, c := range cmd.Commands() {
		names[c.Use] = true
	}
	for _, want := range []string{"run", "schedule", "status", "pause", "resume", "restart"} {
		assert.True(t, names[want], "missing %q subcommand", want)
	}

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "configs/default.yaml", configFlag.DefValue)
}

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "test.yaml")
	content := `
scheduler:
  pool_size: 2
  lockfile: ` + filepath.Join(dir, "scheduler.lock") + `
  tick_interval_ms: 5
clock:
  zone: UTC
audit:
  dir: ` + filepath.Join(dir, "audit") + `
  buffer_size: 10
  flush_interval_ms: 5
metrics:
  enabled: false
  port: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Scheduler.PoolSize)
	assert.Equal(t, "UTC", cfg.Clock.Zone)
	assert.Equal(t, 10, cfg.Audit.BufferSize)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestPidfileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.lock.pid")

	_, alive, err := readPidfile(path)
	require.NoError(t, err)
	assert.False(t, alive, "no pidfile should report not alive")

	require.NoError(t, writePidfile(path))
	pid, alive, err := readPidfile(path)
	require.NoError(t, err)
	assert.True(t, alive)
	assert.Equal(t, os.Getpid(), pid)

	removePidfile(path)
	_, alive, err = readPidfile(path)
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestPidfileStaleProcessNotAlive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.lock.pid")
	// PID 1 << 30 is never a real process on any sane system; a pidfile
	// pointing at a dead PID should read back as not alive, not error.
	require.NoError(t, os.WriteFile(path, []byte("1073741824"), 0o644))

	_, alive, err := readPidfile(path)
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestStatusWithoutCheckpoint(t *testing.T) {
	dir := t.TempDir()
	configFile = writeTestConfig(t, dir)
	defer func() { configFile = "configs/default.yaml" }()

	assert.NoError(t, showStatus())
}

func TestScheduleOfflineRoundTrip(t *testing.T) {
	dir := t.TempDir()
	configFile = writeTestConfig(t, dir)
	defer func() { configFile = "configs/default.yaml" }()

	jobPath := filepath.Join(dir, "job.json")
	require.NoError(t, os.WriteFile(jobPath, []byte(`{"type":"empty","task_body":{}}`), 0o644))

	require.NoError(t, scheduleOffline(jobPath))

	cfg, err := loadConfig(configFile)
	require.NoError(t, err)
	_, err = os.Stat(cfg.Scheduler.Lockfile)
	assert.NoError(t, err, "schedule should persist a checkpoint file")
}

func TestSignalRunProcessNoneActive(t *testing.T) {
	dir := t.TempDir()
	configFile = writeTestConfig(t, dir)
	defer func() { configFile = "configs/default.yaml" }()

	err := signalRunProcess(syscall.SIGUSR1, "pause")
	assert.Error(t, err)
}
