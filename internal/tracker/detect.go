package tracker

import (
	"os"
	"strings"

	"docksight/internal/logger"
)

// DetectBackend inspects session environment markers and picks the backend
// for this session. Order matters: some environments set several markers at
// once, and the compositor-specific ones are unambiguous while the
// XDG_*_DESKTOP heuristics are not, so instance signatures win.
func DetectBackend() BackendKind {
	return detectBackend(os.Getenv)
}

// detectBackend is the injectable core of DetectBackend; lookup stands in
// for os.Getenv so tests can run without touching the process environment.
func detectBackend(lookup func(string) string) BackendKind {
	if lookup("HYPRLAND_INSTANCE_SIGNATURE") != "" {
		return BackendHyprland
	}
	if lookup("SWAYSOCK") != "" {
		return BackendSway
	}

	desktop := strings.ToLower(lookup("XDG_CURRENT_DESKTOP"))
	session := strings.ToLower(lookup("XDG_SESSION_DESKTOP"))

	for _, marker := range []string{"kde", "plasma"} {
		if strings.Contains(desktop, marker) || strings.Contains(session, marker) {
			return BackendKDE
		}
	}
	if strings.Contains(desktop, "gnome") || strings.Contains(session, "gnome") {
		return BackendGNOME
	}

	logger.WithComponent("detect").Debug().
		Str("xdg_current_desktop", desktop).
		Str("xdg_session_desktop", session).
		Msg("No known compositor markers found")
	return BackendUnknown
}
