package tracker

import (
	"strings"
	"sync"
)

// Registry is the shared store of the last-known-good window set and the
// per-app counts derived from it. Both live behind one mutex and are always
// swapped together, so a reader never sees counts inconsistent with the
// record set they came from.
//
// All read operations are non-blocking and safe to call from a consuming UI
// at any time; the only writers are the scheduler's Replace and the external
// SetWindowCount override.
type Registry struct {
	mu      sync.RWMutex
	records []WindowRecord
	counts  map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{counts: make(map[string]int)}
}

// Replace swaps in a brand-new window set and recomputes the count map as
// one atomic unit. Called by the scheduler after a successful poll.
func (r *Registry) Replace(records []WindowRecord) {
	counts := countRecords(records)

	r.mu.Lock()
	r.records = records
	r.counts = counts
	r.mu.Unlock()
}

// WindowCount returns the number of open windows for appID. Exact match on
// the lower-cased id first; failing that, a case-insensitive scan where
// either string containing the other counts as a match. This absorbs the
// usual launcher-vs-compositor naming drift ("firefox" vs "Firefox-esr").
// Returns 0 when nothing matches.
func (r *Registry) WindowCount(appID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := strings.ToLower(appID)
	if n, ok := r.counts[key]; ok {
		return n
	}
	for stored, n := range r.counts {
		if fuzzyMatch(stored, key) {
			return n
		}
	}
	return 0
}

// WindowsForApp returns all records matching appID under the same fuzzy rule
// as WindowCount, in registry insertion order from the last poll.
func (r *Registry) WindowsForApp(appID string) []WindowRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := strings.ToLower(appID)
	var matched []WindowRecord
	for _, rec := range r.records {
		if fuzzyMatch(strings.ToLower(rec.AppID), key) {
			matched = append(matched, rec)
		}
	}
	return matched
}

// AllWindows returns a copy of the current window set.
func (r *Registry) AllWindows() []WindowRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]WindowRecord, len(r.records))
	copy(out, r.records)
	return out
}

// SetWindowCount overrides the stored count for appID. Used by external
// callers when no backend is active. A count of zero removes the entry
// rather than storing an explicit zero.
func (r *Registry) SetWindowCount(appID string, count int) {
	key := strings.ToLower(appID)

	r.mu.Lock()
	if count <= 0 {
		delete(r.counts, key)
	} else {
		r.counts[key] = count
	}
	r.mu.Unlock()
}

// countsLen reports the number of explicit count entries. Lets tests verify
// that zero counts are removed rather than stored.
func (r *Registry) countsLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.counts)
}

// fuzzyMatch reports whether two lower-cased app ids refer to the same app:
// equal, or either contains the other.
func fuzzyMatch(a, b string) bool {
	if a == "" || b == "" {
		return a == b
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}
