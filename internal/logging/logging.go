package logging

import (
	corelogger "github.com/platformbuilds/mirador-remediate/pkg/logger"
)

// Logger mirrors the pkg/logger surface so internal packages can depend on
// internal/logging rather than pkg/logger (depguard rule).
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
}

// FromCoreLogger wraps the project core logger and returns an
// internal/logging.Logger adapter. Passing nil yields a no-op logger, which
// keeps test construction cheap.
func FromCoreLogger(core corelogger.Logger) Logger {
	if core == nil {
		return corelogger.NewNop()
	}
	return core
}
