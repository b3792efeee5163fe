package tracker

import (
	"errors"
	"fmt"
)

// Failure taxonomy for backend polls. Every error a backend returns wraps
// one of these sentinels so the scheduler can classify without inspecting
// backend internals. Neither is fatal: a failed poll is logged and the
// registry keeps its previous snapshot.
var (
	// ErrConnection means the transport could not be opened or the peer
	// is unreachable (socket missing, bus name not owned, dial refused).
	ErrConnection = errors.New("connection failure")

	// ErrProtocol means a response arrived but was malformed: invalid
	// JSON, a short read, or a missing required field.
	ErrProtocol = errors.New("protocol failure")
)

func connectionErr(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConnection)...)
}

func protocolErr(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrProtocol)...)
}
