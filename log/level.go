package log

import (
	"errors"
	"fmt"
	"strings"
)

// Level is a log severity. Lower values are more severe: a message at level
// L passes a threshold T when L <= T.
type Level int

const (
	// LevelError is the most severe level.
	LevelError Level = iota
	// LevelWarn reports unexpected but recoverable conditions.
	LevelWarn
	// LevelInfo reports normal operation.
	LevelInfo
	// LevelDebug is the most verbose level.
	LevelDebug
)

// ColorReset ends the color framing started by [Level.Color].
const ColorReset = "\x1b[0m"

// ErrUnknownLogLevel indicates an unrecognized log level string.
var ErrUnknownLogLevel = errors.New("unknown log level")

type levelInfo struct {
	label    string
	color    string
	severity int
}

var levels = [...]levelInfo{
	LevelError: {label: "ERROR", severity: 3, color: "\x1b[0;31m"},
	LevelWarn:  {label: "WARN", severity: 4, color: "\x1b[0;33m"},
	LevelInfo:  {label: "INFO", severity: 6, color: "\x1b[0;32m"},
	LevelDebug: {label: "DEBUG", severity: 7, color: "\x1b[0;90m"},
}

func (l Level) valid() bool {
	return l >= LevelError && l <= LevelDebug
}

// String returns the label used in record headers, e.g. "WARN".
func (l Level) String() string {
	if !l.valid() {
		return fmt.Sprintf("Level(%d)", int(l))
	}

	return levels[l].label
}

// Severity returns the syslog severity for l (3 error, 4 warning, 6
// informational, 7 debug). Unknown levels map to debug.
func (l Level) Severity() int {
	if !l.valid() {
		return levels[LevelDebug].severity
	}

	return levels[l].severity
}

// Color returns the ANSI sequence that starts a record at level l, or an
// empty string for unknown levels.
func (l Level) Color() string {
	if !l.valid() {
		return ""
	}

	return levels[l].color
}

// Enabled reports whether a message at level l passes the given threshold.
func (l Level) Enabled(threshold Level) bool {
	return l <= threshold
}

// AllLevels returns every level from most to least severe.
func AllLevels() []Level {
	return []Level{LevelError, LevelWarn, LevelInfo, LevelDebug}
}

// GetAllLevelStrings returns the lowercase names accepted by [ParseLevel].
func GetAllLevelStrings() []string {
	all := AllLevels()

	out := make([]string, 0, len(all))
	for _, l := range all {
		out = append(out, strings.ToLower(l.String()))
	}

	return out
}

// ParseLevel parses a case-insensitive level name.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownLogLevel, level)
}

// MarshalText implements [encoding.TextMarshaler].
func (l Level) MarshalText() ([]byte, error) {
	if !l.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLogLevel, int(l))
	}

	return []byte(strings.ToLower(l.String())), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (l *Level) UnmarshalText(b []byte) error {
	lvl, err := ParseLevel(string(b))
	if err != nil {
		return err
	}

	*l = lvl

	return nil
}
