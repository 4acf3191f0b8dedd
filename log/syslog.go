package log

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// FacilityKern is the syslog "kernel messages" facility. Every datagram
// carries it regardless of the actual source.
const FacilityKern = 0

// syslogVersion is the protocol version field of the datagram header.
const syslogVersion = 1

// syslogNil is the placeholder for an unused header field.
const syslogNil = "-"

// BOM marks the start of a UTF-8 message body.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrMalformedSyslog indicates a datagram that does not follow the
// "<PRI>VERSION TIMESTAMP HOSTNAME APP-NAME PROCID MSGID SD [MSG]" layout.
var ErrMalformedSyslog = errors.New("malformed syslog message")

// Priority returns the PRI value for a message at level l.
func Priority(l Level) int {
	return FacilityKern<<3 | l.Severity()
}

// AppendSyslog appends the datagram for one message to dst and returns the
// extended slice:
//
//	<PRI>1 - origin module - - - BOM msg
//
// An empty origin or module is written as "-". Other values are written
// unchanged, so they must not contain spaces.
func AppendSyslog(dst []byte, level Level, origin, module string, msg []byte) []byte {
	dst = append(dst, '<')
	dst = strconv.AppendInt(dst, int64(Priority(level)), 10)
	dst = append(dst, '>')
	dst = strconv.AppendInt(dst, syslogVersion, 10)
	dst = append(dst, " "+syslogNil+" "...)
	dst = appendField(dst, origin)
	dst = append(dst, ' ')
	dst = appendField(dst, module)
	dst = append(dst, " "+syslogNil+" "+syslogNil+" "+syslogNil+" "...)
	dst = append(dst, BOM...)
	dst = append(dst, msg...)

	return dst
}

func appendField(dst []byte, s string) []byte {
	if s == "" {
		return append(dst, syslogNil...)
	}

	return append(dst, s...)
}

// Message is a decoded syslog datagram.
type Message struct {
	// Hostname is the originating device name.
	Hostname string
	// AppName carries the module name.
	AppName   string
	Timestamp string
	ProcID    string
	MsgID     string
	// Text is the message body without the BOM.
	Text     string
	Priority int
	Version  int
}

// Facility returns the facility encoded in the priority.
func (m Message) Facility() int {
	return m.Priority >> 3
}

// Severity returns the syslog severity encoded in the priority.
func (m Message) Severity() int {
	return m.Priority & 0x7
}

// Level maps the severity back onto a [Level]. Severities more severe than
// error map to [LevelError]; notice maps to [LevelInfo].
func (m Message) Level() Level {
	switch sev := m.Severity(); {
	case sev <= 3:
		return LevelError
	case sev == 4:
		return LevelWarn
	case sev <= 6:
		return LevelInfo
	default:
		return LevelDebug
	}
}

// ParseSyslog decodes a datagram built by [AppendSyslog]. It also accepts
// any RFC 5424 message whose structured data is "-" or a single bracketed
// element, with or without a BOM before the body. A datagram whose origin or
// module contained a space is rejected, since its header fields no longer
// line up.
func ParseSyslog(b []byte) (Message, error) {
	var m Message

	if len(b) == 0 || b[0] != '<' {
		return m, fmt.Errorf("%w: missing priority", ErrMalformedSyslog)
	}

	end := bytes.IndexByte(b, '>')
	if end < 2 || end > 4 {
		return m, fmt.Errorf("%w: bad priority", ErrMalformedSyslog)
	}

	pri, err := strconv.Atoi(string(b[1:end]))
	if err != nil || pri < 0 || pri > 191 {
		return m, fmt.Errorf("%w: bad priority %q", ErrMalformedSyslog, b[1:end])
	}

	m.Priority = pri
	rest := b[end+1:]

	fields := make([]string, 0, 6)
	for range 6 {
		sp := bytes.IndexByte(rest, ' ')
		if sp <= 0 {
			return m, fmt.Errorf("%w: truncated header", ErrMalformedSyslog)
		}

		fields = append(fields, string(rest[:sp]))
		rest = rest[sp+1:]
	}

	m.Version, err = strconv.Atoi(fields[0])
	if err != nil {
		return m, fmt.Errorf("%w: bad version %q", ErrMalformedSyslog, fields[0])
	}

	m.Timestamp = nilField(fields[1])
	m.Hostname = nilField(fields[2])
	m.AppName = nilField(fields[3])
	m.ProcID = nilField(fields[4])
	m.MsgID = nilField(fields[5])

	rest, err = skipStructuredData(rest)
	if err != nil {
		return m, err
	}

	// A BOM inside the body means a header field contained a space and
	// pushed the others right.
	if i := bytes.Index(rest, BOM); i > 0 {
		return m, fmt.Errorf("%w: header field contains a space", ErrMalformedSyslog)
	}

	m.Text = string(bytes.TrimPrefix(rest, BOM))

	return m, nil
}

func skipStructuredData(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: missing structured data", ErrMalformedSyslog)
	}

	if b[0] == syslogNil[0] {
		return trimSpace1(b[1:]), nil
	}

	if b[0] != '[' {
		return nil, fmt.Errorf("%w: bad structured data", ErrMalformedSyslog)
	}

	end := bytes.IndexByte(b, ']')
	if end < 0 {
		return nil, fmt.Errorf("%w: unterminated structured data", ErrMalformedSyslog)
	}

	return trimSpace1(b[end+1:]), nil
}

// trimSpace1 drops the single separator between structured data and the
// body.
func trimSpace1(b []byte) []byte {
	if len(b) > 0 && b[0] == ' ' {
		return b[1:]
	}

	return b
}

func nilField(s string) string {
	if s == syslogNil {
		return ""
	}

	return s
}
