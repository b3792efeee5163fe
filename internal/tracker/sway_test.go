package tracker

import (
	"bytes"
	"context"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two leaf windows ("A" at depth three under nodes, "B" at depth three
// under floating_nodes) buried in split containers and workspace wrappers.
const swayTreeFixture = `{
	"id": 1, "type": "root", "nodes": [
		{"id": 2, "type": "output", "name": "eDP-1", "nodes": [
			{"id": 3, "type": "workspace", "name": "1", "nodes": [
				{"id": 4, "type": "con", "nodes": [
					{"id": 5, "type": "con", "app_id": "A", "name": "window a", "focused": true}
				]}
			], "floating_nodes": [
				{"id": 6, "type": "floating_con", "nodes": [], "floating_nodes": [
					{"id": 7, "type": "floating_con", "app_id": "B", "name": "window b"}
				]}
			]}
		]}
	]
}`

func TestParseSwayTree(t *testing.T) {
	records, err := parseSwayTree([]byte(swayTreeFixture))
	require.NoError(t, err)
	require.Len(t, records, 2)

	counts := countRecords(records)
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, counts)

	byApp := make(map[string]WindowRecord)
	for _, rec := range records {
		byApp[rec.AppID] = rec
	}
	assert.Equal(t, "5", byApp["A"].ID)
	assert.Equal(t, "window a", byApp["A"].Title)
	assert.True(t, byApp["A"].Focused)
	assert.Equal(t, "7", byApp["B"].ID)
	assert.False(t, byApp["B"].Focused)
}

func TestParseSwayTreeIgnoresContainersWithoutAppID(t *testing.T) {
	records, err := parseSwayTree([]byte(`{
		"id": 1, "type": "root", "nodes": [
			{"id": 2, "type": "workspace", "nodes": [
				{"id": 3, "type": "con", "name": "xwayland window"}
			]}
		]
	}`))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseSwayTreeInvalidJSON(t *testing.T) {
	_, err := parseSwayTree([]byte("{not json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestSwayMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"id":1}`)
	require.NoError(t, writeSwayMessage(&buf, i3ipcGetTree, payload))

	// Frame: 6 magic + 4 length + 4 type + payload.
	assert.Equal(t, 14+len(payload), buf.Len())
	assert.Equal(t, []byte(i3ipcMagic), buf.Bytes()[:6])

	got, err := readSwayMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadSwayMessageBadMagic(t *testing.T) {
	frame := append([]byte("not-ipc"), make([]byte, 7)...)
	_, err := readSwayMessage(bytes.NewReader(frame))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestReadSwayMessageShortRead(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSwayMessage(&buf, i3ipcGetTree, []byte("12345")))

	truncated := buf.Bytes()[:buf.Len()-2]
	_, err := readSwayMessage(bytes.NewReader(truncated))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestSwayPoll(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "sway-ipc.sock")
	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		header := make([]byte, 14)
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		if !bytes.Equal(header[:6], []byte(i3ipcMagic)) {
			return
		}
		if swayByteOrder.Uint32(header[10:14]) != i3ipcGetTree {
			return
		}
		writeSwayMessage(conn, i3ipcGetTree, []byte(swayTreeFixture))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	b := &SwayBackend{socketPath: sock}
	records, err := b.Poll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSwayPollNoSocket(t *testing.T) {
	b := &SwayBackend{socketPath: filepath.Join(t.TempDir(), "missing.sock")}
	_, err := b.Poll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
}
