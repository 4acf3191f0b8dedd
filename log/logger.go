package log

import (
	"fmt"
	"io"
	"net/netip"
	"os"
	"sync"
)

// Line endings accepted by [WithLineEnding].
const (
	LF   = "\n"
	CRLF = "\r\n"
)

// Logger formats leveled messages and writes them to a local output, and
// mirrors every message to a syslog collector over UDP once one is
// configured.
//
// A local record looks like:
//
//	<color>[LEVEL][module] message<reset><line ending>
//
// Only the local output is filtered by the threshold set with
// [Logger.SetLevel]. The syslog mirror receives every call.
//
// Logging never returns an error: write failures on the local output and
// send failures on the syslog transport are dropped. Safe for concurrent
// use; each call runs to completion before returning.
//
// Create instances with [New].
type Logger struct {
	out        io.Writer
	sender     Sender
	origin     string
	lineEnding string
	dst        Destination
	mu         sync.Mutex
	level      Level
	color      bool
	syslog     bool
}

// Option configures a [Logger].
type Option func(*Logger)

// WithOutput sets the local output. A nil writer discards local records.
func WithOutput(w io.Writer) Option {
	return func(l *Logger) {
		l.out = orDiscard(w)
	}
}

// WithLevel sets the local threshold.
func WithLevel(level Level) Option {
	return func(l *Logger) {
		l.level = level
	}
}

// WithSender sets the datagram transport used for syslog mirroring.
// A nil sender drops datagrams.
func WithSender(s Sender) Option {
	return func(l *Logger) {
		if s == nil {
			s = Discard
		}

		l.sender = s
	}
}

// WithColor enables or disables the ANSI color framing of local records.
func WithColor(enabled bool) Option {
	return func(l *Logger) {
		l.color = enabled
	}
}

// WithLineEnding sets the terminator of local records, usually [LF] or
// [CRLF].
func WithLineEnding(ending string) Option {
	return func(l *Logger) {
		l.lineEnding = ending
	}
}

// New creates a [Logger] writing to [os.Stdout] at [LevelDebug] with color
// framing, LF line endings, and no syslog destination.
func New(opts ...Option) *Logger {
	l := &Logger{
		out:        os.Stdout,
		level:      LevelDebug,
		color:      true,
		lineEnding: LF,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.sender == nil {
		l.sender = NewUDPSender()
	}

	return l
}

// SetOutput replaces the local output. A nil writer discards local records.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.out = orDiscard(w)
}

// SetLevel replaces the local threshold.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.level = level
}

// Level returns the local threshold.
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.level
}

// SetSyslogServer mirrors messages to host:port. host is resolved by the
// [Sender] when it first sends there, and again after a failed write.
// origin is the hostname reported in each datagram. It replaces any
// destination set with [Logger.SetSyslogAddr]. No connectivity check is
// made here.
func (l *Logger) SetSyslogServer(host string, port uint16, origin string) {
	l.setSyslog(Destination{Host: host, Port: port}, origin)
}

// SetSyslogAddr mirrors messages to addr:port. origin is the hostname
// reported in each datagram. It replaces any destination set with
// [Logger.SetSyslogServer].
func (l *Logger) SetSyslogAddr(addr netip.Addr, port uint16, origin string) {
	l.setSyslog(Destination{Addr: addr, Port: port}, origin)
}

func (l *Logger) setSyslog(dst Destination, origin string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.dst = dst
	l.origin = origin
	l.syslog = true
}

// ClearSyslog stops syslog mirroring.
func (l *Logger) ClearSyslog() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.dst = Destination{}
	l.origin = ""
	l.syslog = false
}

// Syslog returns the configured destination and origin hostname, and
// whether mirroring is enabled.
func (l *Logger) Syslog() (Destination, string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.dst, l.origin, l.syslog
}

// Log formats a message with [fmt] verbs and dispatches it. The local
// output receives it when level passes the threshold. The syslog mirror,
// when configured, receives it regardless of the threshold.
func (l *Logger) Log(level Level, module, format string, args ...any) {
	msg := formatMessage(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	if level.Enabled(l.level) {
		l.writeLocal(level, module, msg)
	}

	if l.syslog {
		l.sendSyslog(level, module, msg)
	}
}

// Debug logs at [LevelDebug].
func (l *Logger) Debug(module, format string, args ...any) {
	l.Log(LevelDebug, module, format, args...)
}

// Info logs at [LevelInfo].
func (l *Logger) Info(module, format string, args ...any) {
	l.Log(LevelInfo, module, format, args...)
}

// Warn logs at [LevelWarn].
func (l *Logger) Warn(module, format string, args ...any) {
	l.Log(LevelWarn, module, format, args...)
}

// Error logs at [LevelError].
func (l *Logger) Error(module, format string, args ...any) {
	l.Log(LevelError, module, format, args...)
}

// formatMessage expands format into a buffer sized to the template. When
// the expansion outgrows it, append reallocates and nothing is truncated.
func formatMessage(format string, args ...any) []byte {
	buf := make([]byte, 0, len(format))

	return fmt.Appendf(buf, format, args...)
}

// writeLocal assembles the record in one buffer and writes it once so that
// concurrent writers sharing the output never interleave within a record.
func (l *Logger) writeLocal(level Level, module string, msg []byte) {
	rec := make([]byte, 0, len(msg)+len(module)+32)

	if l.color {
		rec = append(rec, level.Color()...)
	}

	rec = append(rec, '[')
	rec = append(rec, level.String()...)
	rec = append(rec, "]["...)
	rec = append(rec, module...)
	rec = append(rec, "] "...)
	rec = append(rec, msg...)

	if l.color {
		rec = append(rec, ColorReset...)
	}

	rec = append(rec, l.lineEnding...)

	_, _ = l.out.Write(rec)
}

func (l *Logger) sendSyslog(level Level, module string, msg []byte) {
	pkt := AppendSyslog(make([]byte, 0, len(msg)+len(l.origin)+len(module)+24), level, l.origin, module, msg)

	_ = l.sender.Send(l.dst, pkt)
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}

	return w
}
