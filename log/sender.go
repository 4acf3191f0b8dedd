package log

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/trickstertwo/xclock"
)

// DefaultSyslogPort is the conventional syslog UDP port.
const DefaultSyslogPort uint16 = 514

const (
	resolveTimeout = 2 * time.Second
	resolveBackoff = 5 * time.Second
)

// ErrResolveBackoff indicates a send was skipped because resolving the same
// destination failed moments ago.
var ErrResolveBackoff = errors.New("destination recently failed to resolve")

// Destination identifies a syslog collector. When Addr is valid it is used
// directly; otherwise Host is resolved at send time.
type Destination struct {
	Host string
	Addr netip.Addr
	Port uint16
}

// String returns the destination in "host:port" form.
func (d Destination) String() string {
	host := d.Host
	if d.Addr.IsValid() {
		host = d.Addr.String()
	}

	return net.JoinHostPort(host, strconv.Itoa(int(d.Port)))
}

// Sender delivers one datagram to a destination. A non-nil error means the
// datagram was not sent; the [Logger] drops it silently.
type Sender interface {
	Send(dst Destination, payload []byte) error
}

// SenderFunc adapts a function to [Sender].
type SenderFunc func(dst Destination, payload []byte) error

// Send calls f.
func (f SenderFunc) Send(dst Destination, payload []byte) error {
	return f(dst, payload)
}

// Discard is a [Sender] that drops every datagram.
var Discard Sender = SenderFunc(func(Destination, []byte) error { return nil })

// UDPSender sends datagrams over UDP from one unconnected socket. The
// resolved address of the most recent destination is cached until the
// destination changes or a write fails.
//
// The socket is never connected, so an ICMP port-unreachable caused by an
// earlier datagram cannot fail a later send once the collector is back.
//
// A hostname that fails to resolve is not retried for a few seconds; sends
// to it return [ErrResolveBackoff] meanwhile. Safe for concurrent use.
//
// Create instances with [NewUDPSender].
type UDPSender struct {
	conn     net.PacketConn
	resolver *net.Resolver
	addr     *net.UDPAddr
	dst      Destination

	failedDst   Destination
	failedUntil time.Time
	failedErr   error

	mu sync.Mutex
}

// NewUDPSender creates a [UDPSender]. Hostname resolution is bounded by a
// short timeout so a missing resolver cannot stall the caller.
func NewUDPSender() *UDPSender {
	return &UDPSender{
		resolver: net.DefaultResolver,
	}
}

// Send writes payload as a single datagram to dst.
func (s *UDPSender) Send(dst Destination, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		conn, err := net.ListenPacket("udp", ":0")
		if err != nil {
			return fmt.Errorf("open udp socket: %w", err)
		}

		s.conn = conn
	}

	if s.addr == nil || s.dst != dst {
		err := s.resolve(dst)
		if err != nil {
			return err
		}
	}

	_, err := s.conn.WriteTo(payload, s.addr)
	if err != nil {
		// Forget the address so the next send resolves again.
		s.addr = nil
		s.dst = Destination{}

		return fmt.Errorf("send to %s: %w", dst, err)
	}

	return nil
}

func (s *UDPSender) resolve(dst Destination) error {
	s.addr = nil
	s.dst = Destination{}

	if dst.Addr.IsValid() {
		s.addr = net.UDPAddrFromAddrPort(netip.AddrPortFrom(dst.Addr, dst.Port))
		s.dst = dst

		return nil
	}

	now := xclock.Now()
	if dst == s.failedDst && now.Before(s.failedUntil) {
		return fmt.Errorf("resolve %s: %w: %w", dst, ErrResolveBackoff, s.failedErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	addrs, err := s.resolver.LookupNetIP(ctx, "ip", dst.Host)
	if err == nil && len(addrs) == 0 {
		err = &net.DNSError{Err: "no addresses", Name: dst.Host, IsNotFound: true}
	}

	if err != nil {
		s.failedDst = dst
		s.failedUntil = now.Add(resolveBackoff)
		s.failedErr = err

		return fmt.Errorf("resolve %s: %w", dst, err)
	}

	s.failedDst = Destination{}
	s.failedErr = nil
	s.addr = net.UDPAddrFromAddrPort(netip.AddrPortFrom(addrs[0].Unmap(), dst.Port))
	s.dst = dst

	return nil
}

// Close releases the socket. The sender can still be used afterwards; the
// next send opens a new one.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addr = nil
	s.dst = Destination{}

	if s.conn == nil {
		return nil
	}

	err := s.conn.Close()
	s.conn = nil

	if err != nil {
		return fmt.Errorf("close udp sender: %w", err)
	}

	return nil
}
