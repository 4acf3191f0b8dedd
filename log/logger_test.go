package log_test

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/emblog/log"
	"go.jacobcolvin.com/emblog/stringtest"
)

type datagram struct {
	payload string
	dst     log.Destination
}

// recordingSender keeps every datagram it is asked to send.
type recordingSender struct {
	err  error
	sent []datagram
	mu   sync.Mutex
}

func (s *recordingSender) Send(dst log.Destination, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	s.sent = append(s.sent, datagram{dst: dst, payload: string(payload)})

	return nil
}

func (s *recordingSender) datagrams() []datagram {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]datagram(nil), s.sent...)
}

func newTestLogger(buf *bytes.Buffer, opts ...log.Option) (*log.Logger, *recordingSender) {
	sender := &recordingSender{}
	base := []log.Option{log.WithOutput(buf), log.WithSender(sender)}

	return log.New(append(base, opts...)...), sender
}

func TestLoggerThreshold(t *testing.T) {
	t.Parallel()

	for _, threshold := range log.AllLevels() {
		for _, level := range log.AllLevels() {
			t.Run(fmt.Sprintf("%s at %s", level, threshold), func(t *testing.T) {
				t.Parallel()

				var buf bytes.Buffer

				l, _ := newTestLogger(&buf, log.WithLevel(threshold))
				l.Log(level, "mod", "hello")

				if level <= threshold {
					assert.Contains(t, buf.String(), "["+level.String()+"][mod] hello")
				} else {
					assert.Empty(t, buf.String())
				}
			})
		}
	}
}

func TestLoggerSyslogIgnoresThreshold(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		configured bool
		want       int
	}{
		"configured": {
			configured: true,
			want:       len(log.AllLevels()),
		},
		"not configured": {
			configured: false,
			want:       0,
		},
	}

	for name, tc := range tcs {
		for _, threshold := range log.AllLevels() {
			t.Run(fmt.Sprintf("%s at %s", name, threshold), func(t *testing.T) {
				t.Parallel()

				var buf bytes.Buffer

				l, sender := newTestLogger(&buf, log.WithLevel(threshold))
				if tc.configured {
					l.SetSyslogServer("collector", 514, "device1")
				}

				for _, level := range log.AllLevels() {
					l.Log(level, "mod", "msg")
				}

				assert.Len(t, sender.datagrams(), tc.want)
			})
		}
	}
}

func TestLoggerRecordFormat(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		emit func(*log.Logger)
		want string
		opts []log.Option
	}{
		"info with color": {
			emit: func(l *log.Logger) { l.Info("net", "up") },
			want: "\x1b[0;32m[INFO][net] up\x1b[0m\n",
		},
		"error with color": {
			emit: func(l *log.Logger) { l.Error("disk", "failed: %d", 5) },
			want: "\x1b[0;31m[ERROR][disk] failed: 5\x1b[0m\n",
		},
		"warn without color": {
			opts: []log.Option{log.WithColor(false)},
			emit: func(l *log.Logger) { l.Warn("sys", "low battery") },
			want: "[WARN][sys] low battery\n",
		},
		"debug with crlf": {
			opts: []log.Option{log.WithColor(false), log.WithLineEnding(log.CRLF)},
			emit: func(l *log.Logger) { l.Debug("io", "pin %d high", 4) },
			want: "[DEBUG][io] pin 4 high\r\n",
		},
		"empty template": {
			opts: []log.Option{log.WithColor(false)},
			emit: func(l *log.Logger) { l.Info("net", "") },
			want: "[INFO][net] \n",
		},
		"template expanding to nothing": {
			opts: []log.Option{log.WithColor(false)},
			emit: func(l *log.Logger) { l.Info("net", "%s", "") },
			want: "[INFO][net] \n",
		},
		"module with brackets is not escaped": {
			opts: []log.Option{log.WithColor(false)},
			emit: func(l *log.Logger) { l.Info("a][b", "x") },
			want: "[INFO][a][b] x\n",
		},
		"literal percent": {
			opts: []log.Option{log.WithColor(false)},
			emit: func(l *log.Logger) { l.Info("cpu", "load 100%%") },
			want: "[INFO][cpu] load 100%\n",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			l, _ := newTestLogger(&buf, tc.opts...)
			tc.emit(l)

			assert.Equal(t, tc.want, buf.String())
		})
	}
}

func TestLoggerHeader(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l, _ := newTestLogger(&buf)
	l.Log(log.LevelInfo, "net", "up")

	assert.Contains(t, buf.String(), "[INFO][net] up")
	assert.Equal(t, "[INFO][net] up\n", stringtest.StripANSI(buf.String()))
}

func TestLoggerTemplateWithoutVerbs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l, sender := newTestLogger(&buf, log.WithColor(false))
	l.SetSyslogServer("collector", 514, "device1")

	const text = "plain text, no substitutions"

	l.Info("mod", text)

	assert.Equal(t, "[INFO][mod] "+text+"\n", buf.String())

	sent := sender.datagrams()
	require.Len(t, sent, 1)

	msg, err := log.ParseSyslog([]byte(sent[0].payload))
	require.NoError(t, err)
	assert.Equal(t, text, msg.Text)
}

func TestLoggerExpansion(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("0123456789", 100)

	tcs := map[string]struct {
		format string
		args   []any
		want   string
	}{
		"single verb long argument": {
			format: "%s",
			args:   []any{long},
			want:   long,
		},
		"several verbs": {
			format: "%s/%d/%v",
			args:   []any{long, 123456789, true},
			want:   long + "/123456789/true",
		},
		"shrinking expansion": {
			format: "%d%%",
			args:   []any{5},
			want:   "5%",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			l, sender := newTestLogger(&buf, log.WithColor(false))
			l.SetSyslogServer("collector", 514, "device1")

			l.Info("mod", tc.format, tc.args...)

			assert.Equal(t, "[INFO][mod] "+tc.want+"\n", buf.String())

			sent := sender.datagrams()
			require.Len(t, sent, 1)
			assert.True(t, strings.HasSuffix(sent[0].payload, "\xEF\xBB\xBF"+tc.want))
		})
	}
}

func TestLoggerSyslogDatagram(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l, sender := newTestLogger(&buf)
	l.SetSyslogServer("host1", 514, "device1")

	l.Warn("sys", "low battery")

	sent := sender.datagrams()
	require.Len(t, sent, 1)

	assert.Equal(t, log.Destination{Host: "host1", Port: 514}, sent[0].dst)
	assert.Equal(t, "<4>1 - device1 sys - - - \xEF\xBB\xBFlow battery", sent[0].payload)
}

func TestLoggerSyslogDestination(t *testing.T) {
	t.Parallel()

	addr := netip.MustParseAddr("192.0.2.10")

	tcs := map[string]struct {
		configure func(*log.Logger)
		wantDst   log.Destination
		wantOn    bool
	}{
		"by hostname": {
			configure: func(l *log.Logger) { l.SetSyslogServer("collector.lan", 1514, "dev") },
			wantDst:   log.Destination{Host: "collector.lan", Port: 1514},
			wantOn:    true,
		},
		"by address": {
			configure: func(l *log.Logger) { l.SetSyslogAddr(addr, 514, "dev") },
			wantDst:   log.Destination{Addr: addr, Port: 514},
			wantOn:    true,
		},
		"address replaces hostname": {
			configure: func(l *log.Logger) {
				l.SetSyslogServer("collector.lan", 1514, "dev")
				l.SetSyslogAddr(addr, 514, "dev")
			},
			wantDst: log.Destination{Addr: addr, Port: 514},
			wantOn:  true,
		},
		"hostname replaces address": {
			configure: func(l *log.Logger) {
				l.SetSyslogAddr(addr, 514, "dev")
				l.SetSyslogServer("collector.lan", 1514, "dev")
			},
			wantDst: log.Destination{Host: "collector.lan", Port: 1514},
			wantOn:  true,
		},
		"cleared": {
			configure: func(l *log.Logger) {
				l.SetSyslogAddr(addr, 514, "dev")
				l.ClearSyslog()
			},
			wantOn: false,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			l, sender := newTestLogger(&buf)
			tc.configure(l)

			dst, _, on := l.Syslog()
			assert.Equal(t, tc.wantOn, on)

			l.Error("mod", "boom")

			sent := sender.datagrams()
			if !tc.wantOn {
				assert.Empty(t, sent)
				return
			}

			assert.Equal(t, tc.wantDst, dst)
			require.Len(t, sent, 1)
			assert.Equal(t, tc.wantDst, sent[0].dst)
		})
	}
}

func TestLoggerIdempotent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l, sender := newTestLogger(&buf)
	l.SetSyslogServer("collector", 514, "device1")

	for range 3 {
		l.Info("net", "rssi %d dBm", -67)
	}

	lines := strings.SplitAfter(buf.String(), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, lines[0], lines[1])
	assert.Equal(t, lines[1], lines[2])
	assert.Empty(t, lines[3])

	sent := sender.datagrams()
	require.Len(t, sent, 3)
	assert.Equal(t, sent[0], sent[1])
	assert.Equal(t, sent[1], sent[2])
}

func TestLoggerSendFailureIsolation(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	sender := &recordingSender{err: errors.New("no route to host")}
	l := log.New(log.WithOutput(&buf), log.WithSender(sender), log.WithColor(false))
	l.SetSyslogServer("collector", 514, "device1")

	assert.NotPanics(t, func() {
		l.Error("net", "link down")
	})

	assert.Equal(t, "[ERROR][net] link down\n", buf.String())
	assert.Empty(t, sender.datagrams())
}

func TestLoggerUnresolvableCollector(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := log.New(log.WithOutput(&buf), log.WithColor(false))
	l.SetSyslogServer("collector.invalid", 514, "device1")

	l.Warn("net", "still printed")

	assert.Equal(t, "[WARN][net] still printed\n", buf.String())
}

func TestLoggerSetters(t *testing.T) {
	t.Parallel()

	var first, second bytes.Buffer

	l, _ := newTestLogger(&first, log.WithColor(false))
	assert.Equal(t, log.LevelDebug, l.Level())

	l.Debug("a", "one")
	l.SetOutput(&second)
	l.SetLevel(log.LevelWarn)
	assert.Equal(t, log.LevelWarn, l.Level())

	l.Debug("a", "two")
	l.Warn("a", "three")

	assert.Equal(t, "[DEBUG][a] one\n", first.String())
	assert.Equal(t, "[WARN][a] three\n", second.String())

	l.SetOutput(nil)
	assert.NotPanics(t, func() { l.Error("a", "discarded") })
}

func TestLoggerConcurrentRecordsDoNotInterleave(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l, _ := newTestLogger(&buf, log.WithColor(false))

	var wg sync.WaitGroup

	for i := range 8 {
		wg.Go(func() {
			for j := range 50 {
				l.Info(fmt.Sprintf("w%d", i), "line %d", j)
			}
		})
	}

	wg.Wait()

	lines := stringtest.Lines(buf.String())
	require.Len(t, lines, 8*50)

	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "[INFO][w"), line)
	}
}

func TestLoggerUDPLoopback(t *testing.T) {
	t.Parallel()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, conn.Close()) })

	port := uint16(conn.LocalAddr().(*net.UDPAddr).Port) //nolint:gosec // Ephemeral ports fit in uint16.

	sender := log.NewUDPSender()
	t.Cleanup(func() { require.NoError(t, sender.Close()) })

	var buf bytes.Buffer

	l := log.New(log.WithOutput(&buf), log.WithSender(sender), log.WithLevel(log.LevelError))
	l.SetSyslogAddr(netip.MustParseAddr("127.0.0.1"), port, "device1")

	l.Info("sys", "uptime %ds", 42)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	pkt := make([]byte, 2048)
	n, _, err := conn.ReadFrom(pkt)
	require.NoError(t, err)

	assert.Equal(t, "<6>1 - device1 sys - - - \xEF\xBB\xBFuptime 42s", string(pkt[:n]))
	assert.Empty(t, buf.String(), "info is below the error threshold locally")
}
