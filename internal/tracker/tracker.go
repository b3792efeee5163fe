package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"docksight/internal/logger"
)

const (
	// DefaultInterval is the reference polling cadence.
	DefaultInterval = 2 * time.Second

	// DefaultTimeout bounds a single backend poll so a stalled peer
	// cannot wedge the poll slot indefinitely.
	DefaultTimeout = 5 * time.Second
)

// Tracker owns the registry and drives the selected backend on a fixed
// interval. The backend is chosen once at construction; there is no runtime
// re-detection. Consumers read through the query methods at any time and
// always see the last successfully polled snapshot.
type Tracker struct {
	kind     BackendKind
	backend  Backend
	registry *Registry
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New detects the session's compositor and builds a tracker for it. An
// unrecognized environment is a valid terminal state: the tracker runs but
// never produces data.
func New(interval, timeout time.Duration) *Tracker {
	kind := DetectBackend()
	logger.WithComponent("tracker").Info().
		Stringer("backend", kind).
		Msg("Detected desktop environment")
	return newTracker(kind, newBackend(kind), interval, timeout)
}

// NewWithBackend builds a tracker around an explicit backend, bypassing
// environment detection. Useful for embedding and tests.
func NewWithBackend(kind BackendKind, backend Backend, interval, timeout time.Duration) *Tracker {
	return newTracker(kind, backend, interval, timeout)
}

func newTracker(kind BackendKind, backend Backend, interval, timeout time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{
		kind:     kind,
		backend:  backend,
		registry: NewRegistry(),
		interval: interval,
		timeout:  timeout,
	}
}

// Start launches the polling loop. Calling Start on a running tracker is a
// no-op.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running = true

	go t.loop(ctx, t.done)
}

// Stop cancels the polling loop and waits for it to exit. An in-flight poll
// is not forcibly aborted beyond its own timeout; its result is discarded.
// The last snapshot remains readable after Stop.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.cancel()
	<-t.done
	t.running = false
}

// IsRunning reports whether the polling loop is active.
func (t *Tracker) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// loop polls once immediately, then on every tick. Polling and replacing
// happen on this one goroutine, so polls are serialized by construction: a
// tick that fires while a poll is still in flight simply coalesces.
func (t *Tracker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	t.pollOnce(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.pollOnce(ctx)
		}
	}
}

// pollOnce runs a single backend poll and swaps the registry on success.
// Failures leave prior state untouched so consumers keep the last good
// snapshot rather than seeing an empty or partial one.
func (t *Tracker) pollOnce(ctx context.Context) {
	if t.backend == nil {
		return
	}
	log := logger.WithComponent("tracker")

	pollCtx, cancel := context.WithTimeout(ctx, t.timeout)
	records, err := t.backend.Poll(pollCtx)
	cancel()

	if ctx.Err() != nil {
		// Stopped while the poll was in flight; discard the result.
		return
	}
	if err != nil {
		severity := log.Debug()
		if errors.Is(err, ErrProtocol) {
			severity = log.Warn()
		}
		severity.Err(err).Str("backend", t.backend.Name()).Msg("Poll failed, keeping previous snapshot")
		return
	}

	t.registry.Replace(records)
	log.Debug().Str("backend", t.backend.Name()).Int("windows", len(records)).Msg("Poll complete")
}

// PollNow runs a single synchronous poll outside the scheduler, for
// one-shot CLI use. It does not touch the registry.
func (t *Tracker) PollNow(ctx context.Context) ([]WindowRecord, error) {
	if t.backend == nil {
		return nil, nil
	}
	pollCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.backend.Poll(pollCtx)
}

// Kind returns the backend chosen at construction.
func (t *Tracker) Kind() BackendKind {
	return t.kind
}

// WindowCount looks up the open-window count for appID; see
// Registry.WindowCount for the matching rules.
func (t *Tracker) WindowCount(appID string) int {
	return t.registry.WindowCount(appID)
}

// WindowsForApp returns the records matching appID.
func (t *Tracker) WindowsForApp(appID string) []WindowRecord {
	return t.registry.WindowsForApp(appID)
}

// AllWindows returns the current snapshot.
func (t *Tracker) AllWindows() []WindowRecord {
	return t.registry.AllWindows()
}

// SetWindowCount overrides the stored count for appID; zero removes the
// entry. Meant for callers that track liveness some other way when no
// backend is active.
func (t *Tracker) SetWindowCount(appID string, count int) {
	t.registry.SetWindowCount(appID, count)
}
