package scheduler

import "fmt"

// ConfigError signals an invalid pool_size or a cyclic dependency
// graph detected at Schedule time. Surfaced immediately.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "scheduler: config error: " + e.Reason }

func newConfigError(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}
