package window

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bryanchriswhite/FocusBar/internal/logger"
)

// SwayBackend implements the Backend interface using the sway (or i3) IPC socket
type SwayBackend struct {
	socketPath string

	mu sync.Mutex
	// conn is nil after a failed request; the next request redials
	conn net.Conn
}

// SwaySocketPath returns the IPC socket path advertised by the running compositor
func SwaySocketPath() (string, error) {
	if path := os.Getenv("SWAYSOCK"); path != "" {
		return path, nil
	}
	if path := os.Getenv("I3SOCK"); path != "" {
		return path, nil
	}
	return "", errors.New("neither SWAYSOCK nor I3SOCK is set")
}

// NewSwayBackend connects to the sway IPC socket at socketPath
func NewSwayBackend(socketPath string) (*SwayBackend, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sway socket %s: %w", socketPath, err)
	}

	logger.WithComponent("sway-backend").Info().
		Str("socket", socketPath).
		Msg("Connected to sway IPC")

	return &SwayBackend{
		socketPath: socketPath,
		conn:       conn,
	}, nil
}

// Name returns the backend name
func (b *SwayBackend) Name() string {
	return BackendSway
}

// Close closes the command connection. Open subscriptions have their own sockets.
func (b *SwayBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

// SnapshotOpenWindows fetches the layout tree and returns every application window in it
func (b *SwayBackend) SnapshotOpenWindows(ctx context.Context) ([]WindowState, error) {
	payload, err := b.request(ctx, ipcGetTree, nil)
	if err != nil {
		return nil, err
	}

	var root swayNode
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, fmt.Errorf("failed to decode sway tree: %w", err)
	}

	windows := collectWindows(&root, nil)
	logger.WithComponent("sway-backend").Debug().
		Int("count", len(windows)).
		Msg("Snapshot of open windows")
	return windows, nil
}

// request sends one command on the shared connection and reads its reply.
// Any I/O failure, including a deadline or cancellation, drops the connection
// so an unread reply can never be taken for the answer to a later request.
func (b *SwayBackend) request(ctx context.Context, t ipcMessageType, payload []byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "unix", b.socketPath)
		if err != nil {
			return nil, fmt.Errorf("failed to reconnect to sway socket %s: %w", b.socketPath, err)
		}
		logger.WithComponent("sway-backend").Debug().Msg("Reconnected sway command socket")
		b.conn = conn
	}

	reply, err := b.roundTrip(ctx, t, payload)
	if err != nil {
		b.conn.Close()
		b.conn = nil
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("sway request %d: %w", t, ctxErr)
		}
		return nil, err
	}
	return reply, nil
}

func (b *SwayBackend) roundTrip(ctx context.Context, t ipcMessageType, payload []byte) ([]byte, error) {
	conn := b.conn

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("failed to set sway socket deadline: %w", err)
		}
	}
	// cancellation interrupts a blocked read or write
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := writeIPCMessage(conn, t, payload); err != nil {
		return nil, fmt.Errorf("failed to send sway request: %w", err)
	}

	for {
		replyType, reply, err := readIPCMessage(conn)
		if err != nil {
			return nil, fmt.Errorf("failed to read sway reply: %w", err)
		}
		// The command socket never subscribes, but skip stray events anyway
		if replyType&ipcEventFlag != 0 {
			continue
		}
		if replyType != t {
			return nil, fmt.Errorf("unexpected sway reply type %d for request %d", replyType, t)
		}
		if !stop() {
			return nil, fmt.Errorf("sway request cancelled: %w", ctx.Err())
		}
		if err := conn.SetDeadline(time.Time{}); err != nil {
			return nil, fmt.Errorf("failed to clear sway socket deadline: %w", err)
		}
		return reply, nil
	}
}

// SubscribeWindowEvents opens a dedicated socket subscribed to window events
func (b *SwayBackend) SubscribeWindowEvents(ctx context.Context) (EventSource, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", b.socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sway subscription socket: %w", err)
	}

	if err := subscribeSway(ctx, conn, []string{"window"}); err != nil {
		conn.Close()
		return nil, err
	}

	logger.WithComponent("sway-backend").Debug().Msg("Subscribed to window events")
	return &swayEventSource{conn: conn}, nil
}

func subscribeSway(ctx context.Context, conn net.Conn, events []string) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("failed to set sway socket deadline: %w", err)
		}
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	payload, err := json.Marshal(events)
	if err != nil {
		return err
	}
	if err := writeIPCMessage(conn, ipcSubscribe, payload); err != nil {
		return err
	}

	t, reply, err := readIPCMessage(conn)
	if err != nil {
		return fmt.Errorf("failed to read subscribe reply: %w", err)
	}
	if t != ipcSubscribe {
		return fmt.Errorf("unexpected sway reply type %d to subscribe", t)
	}

	var result swaySuccessReply
	if err := json.Unmarshal(reply, &result); err != nil {
		return fmt.Errorf("failed to decode subscribe reply: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("sway rejected subscription: %s", result.Error)
	}
	if !stop() {
		return fmt.Errorf("sway subscribe cancelled: %w", ctx.Err())
	}
	return conn.SetDeadline(time.Time{})
}

// swayEventSource reads window events from a subscribed socket
type swayEventSource struct {
	conn      net.Conn
	closeOnce sync.Once
	closed    bool
	mu        sync.Mutex
}

// Next returns the next window event. Malformed payloads are skipped.
func (s *swayEventSource) Next() (WindowEvent, bool) {
	log := logger.WithComponent("sway-backend")

	for {
		t, payload, err := readIPCMessage(s.conn)
		if err != nil {
			if !s.isClosed() && !errors.Is(err, io.EOF) {
				log.Warn().Err(err).Msg("Window event stream failed")
			} else {
				log.Debug().Msg("Window event stream ended")
			}
			return WindowEvent{}, false
		}
		if t != ipcEventWindow {
			continue
		}

		var raw swayWindowEvent
		if err := json.Unmarshal(payload, &raw); err != nil {
			log.Debug().Err(err).Msg("Skipping malformed window event")
			continue
		}
		return raw.event(), true
	}
}

// Close closes the subscription socket, unblocking Next
func (s *swayEventSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *swayEventSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
