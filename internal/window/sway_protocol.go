package window

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
)

// i3/sway IPC framing: "i3-ipc" | payload length (u32) | message type (u32) | JSON payload,
// integers in native byte order.
const (
	ipcMagic      = "i3-ipc"
	ipcHeaderSize = len(ipcMagic) + 8
	// Trees of large sessions are a few hundred KiB; anything past this is a corrupt stream.
	ipcMaxPayload = 64 << 20
)

type ipcMessageType uint32

const (
	ipcSubscribe ipcMessageType = 2
	ipcGetTree   ipcMessageType = 4

	ipcEventFlag   ipcMessageType = 1 << 31
	ipcEventWindow                = ipcEventFlag | 3
)

func writeIPCMessage(w io.Writer, t ipcMessageType, payload []byte) error {
	buf := make([]byte, ipcHeaderSize+len(payload))
	copy(buf, ipcMagic)
	binary.NativeEndian.PutUint32(buf[len(ipcMagic):], uint32(len(payload)))
	binary.NativeEndian.PutUint32(buf[len(ipcMagic)+4:], uint32(t))
	copy(buf[ipcHeaderSize:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write ipc message: %w", err)
	}
	return nil
}

func readIPCMessage(r io.Reader) (ipcMessageType, []byte, error) {
	var header [ipcHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	if string(header[:len(ipcMagic)]) != ipcMagic {
		return 0, nil, fmt.Errorf("invalid ipc magic %q", header[:len(ipcMagic)])
	}

	length := binary.NativeEndian.Uint32(header[len(ipcMagic):])
	t := ipcMessageType(binary.NativeEndian.Uint32(header[len(ipcMagic)+4:]))
	if length > ipcMaxPayload {
		return 0, nil, fmt.Errorf("ipc payload too large: %d bytes", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("failed to read ipc payload: %w", err)
	}
	return t, payload, nil
}

// swayNode is the subset of a sway tree node the indicator needs
type swayNode struct {
	ID               int64            `json:"id"`
	Name             *string          `json:"name"`
	Type             string           `json:"type"`
	Focused          bool             `json:"focused"`
	AppID            *string          `json:"app_id"`
	PID              int32            `json:"pid"`
	WindowProperties *swayWindowProps `json:"window_properties"`
	Nodes            []swayNode       `json:"nodes"`
	FloatingNodes    []swayNode       `json:"floating_nodes"`
}

type swayWindowProps struct {
	Class    string `json:"class"`
	Instance string `json:"instance"`
	Title    string `json:"title"`
}

// isWindow reports whether the node is an application window rather than a split container
func (n *swayNode) isWindow() bool {
	if n.Type != "con" && n.Type != "floating_con" {
		return false
	}
	return n.AppID != nil || n.WindowProperties != nil
}

func (n *swayNode) state() WindowState {
	st := WindowState{Focused: n.Focused}
	if n.Name != nil {
		st.Name = *n.Name
	}

	switch {
	case n.AppID != nil && *n.AppID != "":
		st.ID = *n.AppID
	case n.WindowProperties != nil && n.WindowProperties.Class != "":
		st.ID = n.WindowProperties.Class
	case n.WindowProperties != nil && n.WindowProperties.Instance != "":
		st.ID = n.WindowProperties.Instance
	default:
		st.ID = processName(n.PID)
	}
	if st.ID == "" {
		st.ID = strconv.FormatInt(n.ID, 10)
	}
	return st
}

// collectWindows flattens tiling and floating windows in tree order
func collectWindows(n *swayNode, out []WindowState) []WindowState {
	if n.isWindow() {
		out = append(out, n.state())
	}
	for i := range n.Nodes {
		out = collectWindows(&n.Nodes[i], out)
	}
	for i := range n.FloatingNodes {
		out = collectWindows(&n.FloatingNodes[i], out)
	}
	return out
}

type swayWindowEvent struct {
	Change    string   `json:"change"`
	Container swayNode `json:"container"`
}

func (e *swayWindowEvent) event() WindowEvent {
	return WindowEvent{
		Change: ParseChangeKind(e.Change),
		Window: e.Container.state(),
	}
}

type swaySuccessReply struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
