package tracker

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
)

// HyprlandBackend polls the Hyprland IPC socket. The protocol is line
// oriented: write a command string, read the reply until the compositor
// closes the stream. The "j" prefix asks for JSON output.
type HyprlandBackend struct {
	// socketPath overrides the derived path when non-empty (tests).
	socketPath string
}

// NewHyprlandBackend returns a backend reading from the session's Hyprland
// instance socket.
func NewHyprlandBackend() *HyprlandBackend {
	return &HyprlandBackend{}
}

func (b *HyprlandBackend) Name() string {
	return "hyprland"
}

// hyprlandSocket derives the request socket path for the current instance.
// Hyprland moved its runtime dir from /tmp/hypr to $XDG_RUNTIME_DIR/hypr
// after 0.39.1, so both locations are checked.
func (b *HyprlandBackend) hyprlandSocket() (string, error) {
	if b.socketPath != "" {
		return b.socketPath, nil
	}

	signature := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if signature == "" {
		return "", connectionErr("HYPRLAND_INSTANCE_SIGNATURE not set")
	}

	hyprDir := "/tmp/hypr"
	if runtime := os.Getenv("XDG_RUNTIME_DIR"); runtime != "" {
		if candidate := filepath.Join(runtime, "hypr"); dirExists(candidate) {
			hyprDir = candidate
		}
	}
	return filepath.Join(hyprDir, signature, ".socket.sock"), nil
}

// Poll requests the full client list and returns one record per client.
func (b *HyprlandBackend) Poll(ctx context.Context) ([]WindowRecord, error) {
	path, err := b.hyprlandSocket()
	if err != nil {
		return nil, err
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

	if _, err := conn.Write([]byte("j/clients")); err != nil {
		return nil, connectionErr("write command")
	}
	// Half-close so the compositor sees end of request and replies with
	// the full body followed by EOF.
	if uc, ok := conn.(*net.UnixConn); ok {
		uc.CloseWrite()
	}

	body, err := io.ReadAll(conn)
	if err != nil {
		return nil, connectionErr("read response")
	}
	return parseHyprlandClients(body)
}

// hyprClient is the subset of Hyprland's client JSON the tracker needs.
type hyprClient struct {
	Address      string `json:"address"`
	Title        string `json:"title"`
	Class        string `json:"class"`
	FocusHistory int    `json:"focusHistoryID"`
}

// parseHyprlandClients parses the j/clients reply: one JSON array, one
// object per mapped window. The window class is the app id; the address is
// the stable per-window identifier.
func parseHyprlandClients(body []byte) ([]WindowRecord, error) {
	if len(body) == 0 {
		return nil, protocolErr("empty client list response")
	}

	var clients []hyprClient
	if err := json.Unmarshal(body, &clients); err != nil {
		return nil, protocolErr("invalid client list JSON")
	}

	records := make([]WindowRecord, 0, len(clients))
	for _, c := range clients {
		records = append(records, WindowRecord{
			ID:      c.Address,
			Title:   c.Title,
			AppID:   c.Class,
			Focused: c.FocusHistory == 0,
		})
	}
	return records, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
