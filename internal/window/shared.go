package window

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Shared guards a Backend so that every snapshot or subscribe call has
// exclusive use of the connection for that single call. Events pulled from
// an already opened EventSource do not take the lock.
type Shared struct {
	backend Backend
	lock    *semaphore.Weighted
}

// NewShared wraps a backend for use by several callers
func NewShared(backend Backend) *Shared {
	return &Shared{
		backend: backend,
		lock:    semaphore.NewWeighted(1),
	}
}

// Name returns the wrapped backend name
func (s *Shared) Name() string {
	return s.backend.Name()
}

// SnapshotOpenWindows lists open windows while holding the connection lock
func (s *Shared) SnapshotOpenWindows(ctx context.Context) ([]WindowState, error) {
	if err := s.acquire(ctx, "snapshot"); err != nil {
		return nil, err
	}
	defer s.lock.Release(1)

	windows, err := s.backend.SnapshotOpenWindows(ctx)
	if err != nil {
		return nil, connectionError("snapshot", s.backend.Name(), err)
	}
	return windows, nil
}

// SubscribeWindowEvents opens a subscription while holding the connection lock
func (s *Shared) SubscribeWindowEvents(ctx context.Context) (EventSource, error) {
	if err := s.acquire(ctx, "subscribe"); err != nil {
		return nil, err
	}
	defer s.lock.Release(1)

	events, err := s.backend.SubscribeWindowEvents(ctx)
	if err != nil {
		return nil, connectionError("subscribe", s.backend.Name(), err)
	}
	return events, nil
}

// Close closes the wrapped backend
func (s *Shared) Close() error {
	return s.backend.Close()
}

func (s *Shared) acquire(ctx context.Context, op string) error {
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return &ConnectionError{Op: op + " lock", Backend: s.backend.Name(), Err: err}
	}
	return nil
}
