package tracker

import (
	"context"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHyprlandClients(t *testing.T) {
	body := []byte(`[
		{"address": "0x1", "title": "one", "class": "X", "focusHistoryID": 0},
		{"address": "0x2", "title": "two", "class": "X", "focusHistoryID": 1},
		{"address": "0x3", "title": "three", "class": "Y", "focusHistoryID": 2}
	]`)

	records, err := parseHyprlandClients(body)
	require.NoError(t, err)
	require.Len(t, records, 3)

	counts := countRecords(records)
	assert.Equal(t, map[string]int{"x": 2, "y": 1}, counts)

	assert.Equal(t, "0x1", records[0].ID)
	assert.Equal(t, "one", records[0].Title)
	assert.True(t, records[0].Focused)
	assert.False(t, records[1].Focused)
}

func TestParseHyprlandClientsEmptyArray(t *testing.T) {
	records, err := parseHyprlandClients([]byte("[]"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseHyprlandClientsEmptyBody(t *testing.T) {
	_, err := parseHyprlandClients(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestParseHyprlandClientsInvalidJSON(t *testing.T) {
	_, err := parseHyprlandClients([]byte("not json at all"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestHyprlandPoll(t *testing.T) {
	sock := filepath.Join(t.TempDir(), ".socket.sock")
	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		cmd := make([]byte, 16)
		n, _ := conn.Read(cmd)
		if string(cmd[:n]) != "j/clients" {
			io.WriteString(conn, "unknown request")
			return
		}
		io.WriteString(conn, `[{"address": "0xabc", "title": "editor", "class": "code"}]`)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	b := &HyprlandBackend{socketPath: sock}
	records, err := b.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0xabc", records[0].ID)
	assert.Equal(t, "code", records[0].AppID)
}

func TestHyprlandPollNoSignature(t *testing.T) {
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")

	b := NewHyprlandBackend()
	_, err := b.Poll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
}
