package log

import "sync/atomic"

var global atomic.Pointer[Logger]

// Default returns the process-wide [Logger], creating one with [New]'s
// defaults on first use. Prefer passing a *Logger explicitly; this exists
// for call sites that cannot receive one.
func Default() *Logger {
	if l := global.Load(); l != nil {
		return l
	}

	global.CompareAndSwap(nil, New())

	return global.Load()
}

// SetDefault replaces the process-wide [Logger]. A nil logger resets it so
// the next [Default] call creates a fresh one.
func SetDefault(l *Logger) {
	global.Store(l)
}

// Debug logs at [LevelDebug] on the [Default] logger.
func Debug(module, format string, args ...any) {
	Default().Log(LevelDebug, module, format, args...)
}

// Info logs at [LevelInfo] on the [Default] logger.
func Info(module, format string, args ...any) {
	Default().Log(LevelInfo, module, format, args...)
}

// Warn logs at [LevelWarn] on the [Default] logger.
func Warn(module, format string, args ...any) {
	Default().Log(LevelWarn, module, format, args...)
}

// Error logs at [LevelError] on the [Default] logger.
func Error(module, format string, args ...any) {
	Default().Log(LevelError, module, format, args...)
}

// Log logs at level on the [Default] logger.
func Log(level Level, module, format string, args ...any) {
	Default().Log(level, module, format, args...)
}
