package log

import (
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/x/ansi"
)

const defaultBufferSize = 64

// Publisher is an [io.Writer] that fans out records to subscribers. Use it
// as a [Logger] output: the Logger writes each record with a single call,
// so every delivered entry is one complete record.
//
// Delivery uses a buffered channel per [Subscription] with ring-buffer
// semantics: when a subscriber falls behind the oldest record is dropped,
// so Write never blocks the logging call. Safe for concurrent use.
//
// Create instances with [NewPublisher].
type Publisher struct {
	subscribers []*Subscription
	bufSize     int
	dropped     atomic.Uint64
	mu          sync.Mutex
	closed      bool
	stripANSI   bool
}

// PublisherOption configures a [Publisher].
type PublisherOption func(*Publisher)

// WithBufferSize sets the channel buffer size for new subscriptions.
// Values less than 1 are clamped to 1.
func WithBufferSize(n int) PublisherOption {
	return func(p *Publisher) {
		p.bufSize = max(n, 1)
	}
}

// WithStripANSI removes ANSI escape sequences from records before delivery,
// for subscribers that store or forward plain text.
func WithStripANSI() PublisherOption {
	return func(p *Publisher) {
		p.stripANSI = true
	}
}

// NewPublisher creates a [Publisher]. The default buffer size is 64.
func NewPublisher(opts ...PublisherOption) *Publisher {
	p := &Publisher{
		bufSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Write delivers a copy of b to all active subscribers and always returns
// len(b), nil. Closed subscriptions are compacted out of the list.
func (p *Publisher) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || len(p.subscribers) == 0 {
		return len(b), nil
	}

	var entry []byte
	if p.stripANSI {
		entry = []byte(ansi.Strip(string(b)))
	} else {
		entry = make([]byte, len(b))
		copy(entry, b)
	}

	alive := p.subscribers[:0]
	for _, sub := range p.subscribers {
		if sub.closed.Load() {
			close(sub.ch)
			continue
		}

		select {
		case sub.ch <- entry:
		default:
			<-sub.ch

			sub.ch <- entry

			p.dropped.Add(1)
		}

		alive = append(alive, sub)
	}

	for i := len(alive); i < len(p.subscribers); i++ {
		p.subscribers[i] = nil
	}

	p.subscribers = alive

	return len(b), nil
}

// Dropped returns the number of records discarded because a subscriber's
// buffer was full.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Subscribe registers a new [Subscription]. If the Publisher is already
// closed the subscription's channel is closed immediately.
func (p *Publisher) Subscribe() *Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub := &Subscription{
		ch: make(chan []byte, p.bufSize),
	}

	if p.closed {
		close(sub.ch)
		return sub
	}

	p.subscribers = append(p.subscribers, sub)

	return sub
}

// Close closes all subscription channels. Idempotent.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	for _, sub := range p.subscribers {
		close(sub.ch)
	}

	p.subscribers = nil

	return nil
}

// Subscription receives records from a [Publisher].
type Subscription struct {
	ch     chan []byte
	closed atomic.Bool
}

// C returns the channel that delivers records. Callers must not modify
// the returned slices.
func (s *Subscription) C() <-chan []byte {
	return s.ch
}

// Close marks the subscription as closed. The Publisher closes the channel
// on its next Write or Close. Idempotent.
func (s *Subscription) Close() {
	s.closed.Store(true)
}
