package focus

import (
	"context"
	"errors"
	"sync"

	"github.com/bryanchriswhite/FocusBar/internal/window"
)

var (
	// ErrReceiverClosed is returned by Send once the consumer has gone away
	ErrReceiverClosed = errors.New("focus: bridge receiver closed")
	// ErrSenderClosed is returned by Send after the sender closed the bridge
	ErrSenderClosed = errors.New("focus: bridge sender closed")
)

// bridge is an unbounded FIFO queue plus a one-slot wakeup channel
type bridge struct {
	mu         sync.Mutex
	queue      []window.WindowState
	sendClosed bool
	recvClosed bool
	wake       chan struct{}
}

// Sender is the producing end of a bridge. It must be used by one goroutine.
type Sender struct {
	b *bridge
}

// Receiver is the consuming end of a bridge. It must be used by one goroutine.
type Receiver struct {
	b *bridge
}

// NewBridge returns the two ends of an unbounded single-producer,
// single-consumer queue of window states
func NewBridge() (*Sender, *Receiver) {
	b := &bridge{wake: make(chan struct{}, 1)}
	return &Sender{b: b}, &Receiver{b: b}
}

func (b *bridge) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Send enqueues a state without blocking
func (s *Sender) Send(st window.WindowState) error {
	s.b.mu.Lock()
	switch {
	case s.b.recvClosed:
		s.b.mu.Unlock()
		return ErrReceiverClosed
	case s.b.sendClosed:
		s.b.mu.Unlock()
		return ErrSenderClosed
	}
	s.b.queue = append(s.b.queue, st)
	s.b.mu.Unlock()

	s.b.signal()
	return nil
}

// Close marks the end of the stream. Values already sent are still delivered.
func (s *Sender) Close() {
	s.b.mu.Lock()
	s.b.sendClosed = true
	s.b.mu.Unlock()
	s.b.signal()
}

// Wake fires whenever new values may be available or the stream may have ended.
// Consumers with their own select loop wait on it and then drain with TryRecv.
func (r *Receiver) Wake() <-chan struct{} {
	return r.b.wake
}

// TryRecv pops the oldest queued state. ok is false when the queue is empty;
// done is true once the sender has closed and the queue is drained.
func (r *Receiver) TryRecv() (st window.WindowState, ok bool, done bool) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()

	if len(r.b.queue) > 0 {
		st = r.b.queue[0]
		r.b.queue[0] = window.WindowState{}
		r.b.queue = r.b.queue[1:]
		return st, true, false
	}
	return window.WindowState{}, false, r.b.sendClosed || r.b.recvClosed
}

// Recv blocks until a state is available. It returns false when the stream
// has ended or ctx is done.
func (r *Receiver) Recv(ctx context.Context) (window.WindowState, bool) {
	for {
		st, ok, done := r.TryRecv()
		if ok {
			return st, true
		}
		if done {
			return window.WindowState{}, false
		}

		select {
		case <-r.b.wake:
		case <-ctx.Done():
			return window.WindowState{}, false
		}
	}
}

// Close tears down the consumer side. Queued states are dropped and
// further sends fail with ErrReceiverClosed.
func (r *Receiver) Close() {
	r.b.mu.Lock()
	r.b.recvClosed = true
	r.b.queue = nil
	r.b.mu.Unlock()
	r.b.signal()
}
