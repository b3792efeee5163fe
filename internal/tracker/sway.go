package tracker

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"os"
	"strconv"
)

// i3-ipc framing constants. The wire format is shared between i3 and Sway:
// magic || uint32 payload length || uint32 message type || payload.
// sway-ipc(7) specifies the two integers in the host's native byte order,
// so NativeEndian here is the documented wire order, stated explicitly
// rather than smuggled in through pointer casts.
const (
	i3ipcMagic   = "i3-ipc"
	i3ipcGetTree = 4
)

var swayByteOrder = binary.NativeEndian

// SwayBackend polls the Sway IPC socket named by $SWAYSOCK using the
// binary length-framed i3 protocol.
type SwayBackend struct {
	// socketPath overrides $SWAYSOCK when non-empty (tests).
	socketPath string
}

// NewSwayBackend returns a backend reading from the session's Sway socket.
func NewSwayBackend() *SwayBackend {
	return &SwayBackend{}
}

func (b *SwayBackend) Name() string {
	return "sway"
}

// Poll sends GET_TREE and flattens the reply into window records.
func (b *SwayBackend) Poll(ctx context.Context) ([]WindowRecord, error) {
	path := b.socketPath
	if path == "" {
		path = os.Getenv("SWAYSOCK")
	}
	if path == "" {
		return nil, connectionErr("SWAYSOCK not set")
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, connectionErr("dial %s", path)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := writeSwayMessage(conn, i3ipcGetTree, nil); err != nil {
		return nil, connectionErr("write get_tree request")
	}

	payload, err := readSwayMessage(conn)
	if err != nil {
		return nil, err
	}
	return parseSwayTree(payload)
}

// writeSwayMessage frames and sends one i3-ipc message.
func writeSwayMessage(w io.Writer, msgType uint32, payload []byte) error {
	buf := make([]byte, 0, 14+len(payload))
	buf = append(buf, i3ipcMagic...)
	buf = swayByteOrder.AppendUint32(buf, uint32(len(payload)))
	buf = swayByteOrder.AppendUint32(buf, msgType)
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}

// readSwayMessage reads one framed reply: exactly 14 header bytes (6 magic,
// 4 length, 4 type), then exactly length payload bytes.
func readSwayMessage(r io.Reader) ([]byte, error) {
	header := make([]byte, 14)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, protocolErr("short read on response header")
	}
	if !bytes.Equal(header[:6], []byte(i3ipcMagic)) {
		return nil, protocolErr("bad magic in response header")
	}

	length := swayByteOrder.Uint32(header[6:10])
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, protocolErr("short read on response payload")
	}
	return payload, nil
}

// swayNode is one node of the layout tree. Windows live at the leaves;
// containers nest through both nodes and floating_nodes.
type swayNode struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	AppID         string     `json:"app_id"`
	Focused       bool       `json:"focused"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`
}

// parseSwayTree walks the layout tree with an explicit stack (the tree is
// external input, so recursion depth must stay bounded) and collects every
// leaf container carrying an app id.
func parseSwayTree(payload []byte) ([]WindowRecord, error) {
	var root swayNode
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, protocolErr("invalid tree JSON")
	}

	var records []WindowRecord
	stack := []*swayNode{&root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if isSwayWindow(node) {
			records = append(records, WindowRecord{
				ID:      strconv.FormatInt(node.ID, 10),
				Title:   node.Name,
				AppID:   node.AppID,
				Focused: node.Focused,
			})
		}
		for i := range node.Nodes {
			stack = append(stack, &node.Nodes[i])
		}
		for i := range node.FloatingNodes {
			stack = append(stack, &node.FloatingNodes[i])
		}
	}
	return records, nil
}

// isSwayWindow reports whether a node is an actual window: a leaf container
// with an app id, not a workspace/output/split wrapper.
func isSwayWindow(n *swayNode) bool {
	if n.Type != "con" && n.Type != "floating_con" {
		return false
	}
	return n.AppID != "" && len(n.Nodes) == 0
}
