package tracker

import "context"

// Backend is one compositor protocol adapter. Each implementation knows how
// to open its transport, issue a single window query, and parse the reply
// into WindowRecords.
type Backend interface {
	// Poll performs one request/response cycle and returns the complete
	// current window set. Errors wrap ErrConnection or ErrProtocol.
	Poll(ctx context.Context) ([]WindowRecord, error)

	// Name returns the backend name for logging (e.g. "hyprland").
	Name() string
}

// newBackend builds the adapter for the detected kind. Unknown yields nil:
// the tracker runs but deliberately never produces data.
func newBackend(kind BackendKind) Backend {
	switch kind {
	case BackendKDE:
		return NewKWinBackend()
	case BackendGNOME:
		return NewGNOMEBackend()
	case BackendHyprland:
		return NewHyprlandBackend()
	case BackendSway:
		return NewSwayBackend()
	default:
		return nil
	}
}
