package transport

import (
	"context"
	"sync"
)

// Loopback is an in-memory Adapter used for tests and single-process
// simulation: frames Sent to dst are delivered to whichever peer
// Loopback was wired to via Connect, and reports are injected directly
// via Inject rather than arriving from a real r2r transport.
type Loopback struct {
	mu       sync.Mutex
	peer     *Loopback
	self     uint32
	reports  chan Report
	recv     chan Frame
	closed   bool
	tokenReq bool
}

// NewLoopback creates a Loopback adapter representing node id self.
func NewLoopback(self uint32) *Loopback {
	return &Loopback{
		self:    self,
		reports: make(chan Report, 8),
		recv:    make(chan Frame, 64),
	}
}

// Connect wires two Loopback adapters together so that each one's Send
// delivers to the other's Recv channel.
func Connect(a, b *Loopback) {
	a.mu.Lock()
	a.peer = b
	a.mu.Unlock()
	b.mu.Lock()
	b.peer = a
	b.mu.Unlock()
}

// WithTokenRequired configures whether Send blocks for a flow-control token.
func (l *Loopback) WithTokenRequired(v bool) *Loopback {
	l.tokenReq = v
	return l
}

// Inject delivers a metric report to Reports() as though it arrived
// from the transport.
func (l *Loopback) Inject(r Report) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return
	}
	l.reports <- r
}

// Reports implements Adapter.
func (l *Loopback) Reports() <-chan Report { return l.reports }

// Recv implements Adapter.
func (l *Loopback) Recv() <-chan Frame { return l.recv }

// TokenRequired implements Adapter.
func (l *Loopback) TokenRequired() bool { return l.tokenReq }

// Send implements Adapter.
func (l *Loopback) Send(ctx context.Context, dst uint32, frame []byte) error {
	l.mu.Lock()
	peer := l.peer
	closed := l.closed
	l.mu.Unlock()
	if closed || peer == nil {
		return nil
	}
	cp := append([]byte(nil), frame...)
	select {
	case peer.recv <- Frame{Src: l.self, Data: cp}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Close implements Adapter.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.reports)
	close(l.recv)
	return nil
}
