package pipeline

import "sync"

// History is the append-only stage log keyed by thread id. It lives for the
// process lifetime and exists for inspection and debugging; nothing is
// persisted beyond memory.
type History struct {
	mu      sync.Mutex
	entries map[string][]StageResult
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{entries: make(map[string][]StageResult)}
}

// Append records one stage result under the thread id. Results are never
// mutated or removed.
func (h *History) Append(threadID string, result StageResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[threadID] = append(h.entries[threadID], result)
}

// Snapshot returns a copy of the recorded results for a thread, in append
// order.
func (h *History) Snapshot(threadID string) []StageResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	src := h.entries[threadID]
	out := make([]StageResult, len(src))
	copy(out, src)
	return out
}

// Threads returns the number of distinct thread ids recorded.
func (h *History) Threads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
