// Package collector receives the syslog datagrams sent by [log.Logger] and
// renders them locally, so a device's remote log stream can be watched from
// a workstation.
//
// Each datagram is decoded with [log.ParseSyslog] and logged again through
// a local [log.Logger] at the message's level, under the module name
// "origin/module". The local logger's threshold therefore decides what is
// shown, and a local logger with its own syslog destination relays every
// message onwards.
//
// Module and origin names must not contain spaces. The datagram header is
// space separated, so such a message cannot be decoded; it is counted as
// malformed in [Collector.Stats] and dropped.
//
//	out := log.New(log.WithLevel(log.LevelInfo))
//	c := collector.New(out)
//	err := c.ListenAndServe(ctx, ":514")
package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/trickstertwo/xclock"

	clog "charm.land/log/v2"

	"go.jacobcolvin.com/emblog/log"
)

// DefaultBufferSize is the largest datagram read in full by default.
// Longer datagrams are truncated by the socket.
const DefaultBufferSize = 8192

// Received is one decoded datagram.
type Received struct {
	At      time.Time
	From    net.Addr
	Message log.Message
}

// Module returns the module name used when rendering r: the origin
// hostname and the module joined by "/", or just the module when the
// datagram carried no hostname.
func (r Received) Module() string {
	if r.Message.Hostname == "" {
		return r.Message.AppName
	}

	return r.Message.Hostname + "/" + r.Message.AppName
}

// Stats counts datagrams seen by a [Collector].
type Stats struct {
	Received  uint64
	Malformed uint64
}

// Collector reads syslog datagrams from a packet connection.
//
// Create instances with [New].
type Collector struct {
	out       *log.Logger
	diag      *clog.Logger
	handler   func(Received)
	bufSize   int
	received  atomic.Uint64
	malformed atomic.Uint64
}

// Option configures a [Collector].
type Option func(*Collector)

// WithDiagnostics sets the logger that reports the collector's own
// activity, such as the listen address and malformed datagrams.
func WithDiagnostics(l *clog.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.diag = l
		}
	}
}

// WithHandler registers fn to be called with every decoded datagram after
// it has been rendered. fn runs on the read loop and must not block.
func WithHandler(fn func(Received)) Option {
	return func(c *Collector) {
		c.handler = fn
	}
}

// WithBufferSize sets the read buffer size. Values less than 512 are
// clamped to 512.
func WithBufferSize(n int) Option {
	return func(c *Collector) {
		c.bufSize = max(n, 512)
	}
}

// New creates a [Collector] rendering received messages through out.
func New(out *log.Logger, opts ...Option) *Collector {
	c := &Collector{
		out:     out,
		diag:    clog.New(io.Discard),
		bufSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListenAndServe listens on the UDP address addr and calls [Collector.Serve].
func (c *Collector) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig

	conn, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	defer func() {
		_ = conn.Close()
	}()

	return c.Serve(ctx, conn)
}

// Serve reads datagrams from conn until ctx is done or conn is closed.
// It returns nil in both cases and an error for any other read failure.
// Malformed datagrams are counted and skipped.
func (c *Collector) Serve(ctx context.Context, conn net.PacketConn) error {
	stop := context.AfterFunc(ctx, func() {
		// Unblock the pending read.
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	c.diag.Info("collecting syslog", "addr", conn.LocalAddr())

	buf := make([]byte, c.bufSize)

	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				c.diag.Debug("collector stopped", "received", c.received.Load())

				return nil
			}

			return fmt.Errorf("read datagram: %w", err)
		}

		c.handle(from, buf[:n])
	}
}

func (c *Collector) handle(from net.Addr, pkt []byte) {
	msg, err := log.ParseSyslog(pkt)
	if err != nil {
		c.malformed.Add(1)
		c.diag.Debug("dropping datagram", "from", from, "err", err)

		return
	}

	c.received.Add(1)

	r := Received{
		At:      xclock.Now(),
		From:    from,
		Message: msg,
	}

	c.out.Log(msg.Level(), r.Module(), "%s", msg.Text)

	if c.handler != nil {
		c.handler(r)
	}
}

// Stats returns the current counters.
func (c *Collector) Stats() Stats {
	return Stats{
		Received:  c.received.Load(),
		Malformed: c.malformed.Load(),
	}
}
