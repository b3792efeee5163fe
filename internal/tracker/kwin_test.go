package tracker

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKWinCounts(t *testing.T) {
	records, err := parseKWinCounts(`{"firefox": 2, "konsole": 1}`)
	require.NoError(t, err)
	require.Len(t, records, 3)

	counts := countRecords(records)
	assert.Equal(t, map[string]int{"firefox": 2, "konsole": 1}, counts)
}

func TestParseKWinCountsInvalidJSON(t *testing.T) {
	_, err := parseKWinCounts("workspace.windowList is undefined")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestCountsToRecordsStableOrder(t *testing.T) {
	counts := map[string]int{"zed": 1, "alacritty": 2}

	first := countsToRecords(counts)
	second := countsToRecords(counts)
	assert.Equal(t, first, second)

	require.Len(t, first, 3)
	assert.Equal(t, "alacritty", first[0].AppID)
	assert.Equal(t, "alacritty", first[1].AppID)
	assert.Equal(t, "zed", first[2].AppID)

	// Synthetic ids must still be unique per window.
	assert.NotEqual(t, first[0].ID, first[1].ID)
}

func TestWriteKWinScript(t *testing.T) {
	path, err := writeKWinScript()
	require.NoError(t, err)
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	script := string(data)
	assert.True(t, strings.Contains(script, collectorBusName))
	assert.True(t, strings.Contains(script, collectorPath))
	assert.True(t, strings.Contains(script, "callDBus"))
	assert.True(t, strings.Contains(script, "resourceClass"))
}

func TestScriptCollectorReportNonBlocking(t *testing.T) {
	c := &scriptCollector{results: make(chan string, 1)}

	require.Nil(t, c.Report(`{"a": 1}`))
	// A duplicate report must not block the bus handler.
	require.Nil(t, c.Report(`{"b": 2}`))

	assert.Equal(t, `{"a": 1}`, <-c.results)
}
