package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"

	"docksight/internal/logger"
)

// KWin D-Bus constants.
const (
	kwinService        = "org.kde.KWin"
	kwinPath           = "/KWin"
	kwinInterface      = "org.kde.KWin"
	kwinScriptingPath  = "/Scripting"
	kwinScriptingIface = "org.kde.kwin.Scripting"
	kwinScriptIface    = "org.kde.kwin.Script"
	kwinPluginName     = "docksight_window_count"

	// The scripting fallback delivers its result through this bus name:
	// the backend exports a collector object here and the injected script
	// calls back into it with callDBus.
	collectorBusName   = "org.docksight.WindowCollector"
	collectorPath      = "/org/docksight/WindowCollector"
	collectorInterface = "org.docksight.WindowCollector"
)

// kwinCountScript enumerates all managed windows inside the compositor's
// scripting engine and reports per-class counts back over D-Bus. Plasma 6
// renamed clientList to windowList, hence the probe.
const kwinCountScript = `
var list = (typeof workspace.windowList === "function")
    ? workspace.windowList()
    : workspace.clientList();
var counts = {};
for (var i = 0; i < list.length; i++) {
    var c = list[i];
    var id = c.resourceClass ? c.resourceClass.toString() : "";
    if (!id && c.resourceName) {
        id = c.resourceName.toString();
    }
    if (!id) {
        continue;
    }
    counts[id] = (counts[id] || 0) + 1;
}
callDBus("%s", "%s", "%s", "Report", JSON.stringify(counts));
`

// KWinBackend polls KWin over the session bus. The primary path is a single
// queryWindowInfo call; when that fails (older KWin, method timeout, no
// service) it loads a counting script into the compositor's scripting
// engine and waits for the script to report back.
//
// Both paths yield per-app counts rather than full window detail, so the
// records this backend returns carry synthetic ids and empty titles.
type KWinBackend struct {
	// connect stands in for dbus.ConnectSessionBus in tests.
	connect func() (*dbus.Conn, error)
}

// NewKWinBackend returns a backend querying the session bus.
func NewKWinBackend() *KWinBackend {
	return &KWinBackend{connect: func() (*dbus.Conn, error) {
		return dbus.ConnectSessionBus()
	}}
}

func (b *KWinBackend) Name() string {
	return "kwin"
}

// Poll queries KWin for the current window set.
func (b *KWinBackend) Poll(ctx context.Context) ([]WindowRecord, error) {
	conn, err := b.connect()
	if err != nil {
		return nil, connectionErr("connect to session bus")
	}
	defer conn.Close()

	records, err := b.queryWindowInfo(ctx, conn)
	if err == nil {
		return records, nil
	}
	logger.WithComponent("kwin").Debug().Err(err).
		Msg("queryWindowInfo failed, falling back to scripting interface")

	return b.pollViaScript(ctx, conn)
}

// queryWindowInfo is the direct request/response path.
func (b *KWinBackend) queryWindowInfo(ctx context.Context, conn *dbus.Conn) ([]WindowRecord, error) {
	var info map[string]dbus.Variant
	obj := conn.Object(kwinService, kwinPath)
	call := obj.CallWithContext(ctx, kwinInterface+".queryWindowInfo", 0)
	if call.Err != nil {
		return nil, connectionErr("queryWindowInfo: %v", call.Err)
	}
	if err := call.Store(&info); err != nil {
		return nil, protocolErr("unexpected queryWindowInfo reply shape")
	}

	class, _ := variantString(info, "resourceClass")
	if class == "" {
		return nil, protocolErr("queryWindowInfo reply missing resourceClass")
	}
	return countsToRecords(map[string]int{class: 1}), nil
}

// scriptCollector receives the counting script's result. KWin calls Report
// exactly once per script run.
type scriptCollector struct {
	results chan string
}

func (c *scriptCollector) Report(payload string) *dbus.Error {
	select {
	case c.results <- payload:
	default:
	}
	return nil
}

// pollViaScript loads the counting script, runs it, and waits for its
// report with a bounded timeout taken from ctx.
func (b *KWinBackend) pollViaScript(ctx context.Context, conn *dbus.Conn) ([]WindowRecord, error) {
	collector := &scriptCollector{results: make(chan string, 1)}
	if err := conn.Export(collector, collectorPath, collectorInterface); err != nil {
		return nil, connectionErr("export collector: %v", err)
	}
	reply, err := conn.RequestName(collectorBusName, dbus.NameFlagDoNotQueue)
	if err != nil || (reply != dbus.RequestNameReplyPrimaryOwner && reply != dbus.RequestNameReplyAlreadyOwner) {
		return nil, connectionErr("own collector bus name")
	}
	defer conn.ReleaseName(collectorBusName)

	scriptFile, err := writeKWinScript()
	if err != nil {
		return nil, connectionErr("write script file: %v", err)
	}
	defer os.Remove(scriptFile)

	scripting := conn.Object(kwinService, kwinScriptingPath)

	// A stale plugin from an interrupted poll blocks loadScript, so
	// unload unconditionally first.
	scripting.CallWithContext(ctx, kwinScriptingIface+".unloadScript", 0, kwinPluginName)

	var scriptID int32
	call := scripting.CallWithContext(ctx, kwinScriptingIface+".loadScript", 0, scriptFile, kwinPluginName)
	if call.Err != nil {
		return nil, connectionErr("loadScript: %v", call.Err)
	}
	if err := call.Store(&scriptID); err != nil {
		return nil, protocolErr("unexpected loadScript reply shape")
	}
	defer scripting.CallWithContext(ctx, kwinScriptingIface+".unloadScript", 0, kwinPluginName)

	if err := b.runScript(ctx, conn, scriptID); err != nil {
		return nil, err
	}

	select {
	case payload := <-collector.results:
		return parseKWinCounts(payload)
	case <-ctx.Done():
		return nil, connectionErr("timed out waiting for script report")
	}
}

// runScript starts the loaded script. Plasma 6 exposes it under
// /Scripting/Script<id>; Plasma 5 used /<id>. Try both.
func (b *KWinBackend) runScript(ctx context.Context, conn *dbus.Conn, scriptID int32) error {
	paths := []dbus.ObjectPath{
		dbus.ObjectPath(fmt.Sprintf("/Scripting/Script%d", scriptID)),
		dbus.ObjectPath(fmt.Sprintf("/%d", scriptID)),
	}

	var lastErr error
	for _, path := range paths {
		call := conn.Object(kwinService, path).CallWithContext(ctx, kwinScriptIface+".run", 0)
		if call.Err == nil {
			return nil
		}
		lastErr = call.Err
	}
	return connectionErr("run script: %v", lastErr)
}

// writeKWinScript materializes the counting script; loadScript takes a file
// path, not script text.
func writeKWinScript() (string, error) {
	f, err := os.CreateTemp("", "docksight-kwin-*.js")
	if err != nil {
		return "", err
	}
	script := fmt.Sprintf(kwinCountScript, collectorBusName, collectorPath, collectorInterface)
	if _, err := f.WriteString(script); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// parseKWinCounts decodes the script's JSON report.
func parseKWinCounts(payload string) ([]WindowRecord, error) {
	var counts map[string]int
	if err := json.Unmarshal([]byte(payload), &counts); err != nil {
		return nil, protocolErr("invalid script report JSON")
	}
	return countsToRecords(counts), nil
}

// countsToRecords synthesizes one record per counted window so the registry
// keeps its records-and-counts-always-consistent invariant even when a
// backend only knows aggregate counts. Classes are ordered for stable
// output across polls.
func countsToRecords(counts map[string]int) []WindowRecord {
	classes := make([]string, 0, len(counts))
	for class := range counts {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	var records []WindowRecord
	for _, class := range classes {
		for i := 0; i < counts[class]; i++ {
			records = append(records, WindowRecord{
				ID:    fmt.Sprintf("kwin-%s-%d", strings.ToLower(class), i),
				AppID: class,
			})
		}
	}
	return records
}
