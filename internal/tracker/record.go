package tracker

import "strings"

// WindowRecord is one normalized window fact: this window, with this title
// and focus state, belongs to this app. Records are created fresh on every
// successful poll and never mutated in place.
type WindowRecord struct {
	// ID is a backend-scoped opaque identifier (a KWin UUID, a Hyprland
	// address, a Sway node id).
	ID      string `json:"id"`
	Title   string `json:"title"`
	AppID   string `json:"app_id"`
	Focused bool   `json:"focused"`
}

// BackendKind identifies which compositor protocol is in use for the
// session. It is chosen once at tracker construction and never changes.
type BackendKind int

const (
	BackendUnknown BackendKind = iota
	BackendKDE
	BackendGNOME
	BackendHyprland
	BackendSway
)

func (k BackendKind) String() string {
	switch k {
	case BackendKDE:
		return "kde"
	case BackendGNOME:
		return "gnome"
	case BackendHyprland:
		return "hyprland"
	case BackendSway:
		return "sway"
	default:
		return "unknown"
	}
}

// countRecords derives the per-app window count map from a record set.
// Keys are lower-cased app ids; apps with zero windows are simply absent.
func countRecords(records []WindowRecord) map[string]int {
	counts := make(map[string]int, len(records))
	for _, r := range records {
		if r.AppID == "" {
			continue
		}
		counts[strings.ToLower(r.AppID)]++
	}
	return counts
}
