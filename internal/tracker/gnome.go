package tracker

import (
	"context"
	"sort"
	"strconv"

	"github.com/godbus/dbus/v5"
)

// GNOME Shell introspection D-Bus constants.
const (
	gnomeIntrospectService   = "org.gnome.Shell.Introspect"
	gnomeIntrospectPath      = "/org/gnome/Shell/Introspect"
	gnomeIntrospectInterface = "org.gnome.Shell.Introspect"
)

// GNOMEBackend polls GNOME Shell's introspection interface. GetWindows
// returns a{ta{sv}}: an opaque numeric window id mapped to a property bag.
type GNOMEBackend struct {
	// connect stands in for dbus.SessionBus in tests.
	connect func() (*dbus.Conn, error)
}

// NewGNOMEBackend returns a backend querying the session bus.
func NewGNOMEBackend() *GNOMEBackend {
	return &GNOMEBackend{connect: dbus.SessionBus}
}

func (b *GNOMEBackend) Name() string {
	return "gnome"
}

// Poll issues one GetWindows call and normalizes the reply.
func (b *GNOMEBackend) Poll(ctx context.Context) ([]WindowRecord, error) {
	conn, err := b.connect()
	if err != nil {
		return nil, connectionErr("connect to session bus")
	}

	var windows map[uint64]map[string]dbus.Variant
	obj := conn.Object(gnomeIntrospectService, gnomeIntrospectPath)
	call := obj.CallWithContext(ctx, gnomeIntrospectInterface+".GetWindows", 0)
	if call.Err != nil {
		// An absent interface and an unreachable shell look the same
		// from here; both are connection failures.
		return nil, connectionErr("GetWindows: %v", call.Err)
	}
	if err := call.Store(&windows); err != nil {
		return nil, protocolErr("unexpected GetWindows reply shape")
	}
	return parseGNOMEWindows(windows), nil
}

// parseGNOMEWindows extracts one record per property bag. Windows without a
// usable app-id string are dropped entirely rather than counted under a
// placeholder id. Output is ordered by window id so successive polls of the
// same state produce the same record order.
func parseGNOMEWindows(windows map[uint64]map[string]dbus.Variant) []WindowRecord {
	ids := make([]uint64, 0, len(windows))
	for id := range windows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	records := make([]WindowRecord, 0, len(windows))
	for _, id := range ids {
		props := windows[id]
		appID, ok := variantString(props, "app-id")
		if !ok || appID == "" {
			continue
		}
		title, _ := variantString(props, "title")
		focused, _ := variantBool(props, "has-focus")

		records = append(records, WindowRecord{
			ID:      strconv.FormatUint(id, 10),
			Title:   title,
			AppID:   appID,
			Focused: focused,
		})
	}
	return records
}

func variantString(props map[string]dbus.Variant, key string) (string, bool) {
	v, ok := props[key]
	if !ok {
		return "", false
	}
	s, ok := v.Value().(string)
	return s, ok
}

func variantBool(props map[string]dbus.Variant, key string) (bool, bool) {
	v, ok := props[key]
	if !ok {
		return false, false
	}
	b, ok := v.Value().(bool)
	return b, ok
}
