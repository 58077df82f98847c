package testutil

import (
	"sync"

	"github.com/yungbote/cart-backend/internal/data/aggregates"
)

// HooksRecorder keeps every hook signal so tests can assert on retries and
// final write status. Safe for concurrent writers.
type HooksRecorder struct {
	mu sync.Mutex

	Operations []aggregates.WriteEvent
	Conflicts  []string
	Retries    []string
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveWrite(ev aggregates.WriteEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, ev)
}

func (h *HooksRecorder) IncConflict(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, op)
}

func (h *HooksRecorder) IncRetry(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, op)
}

// StatusCounts tallies final write statuses for op. An empty op counts all.
func (h *HooksRecorder) StatusCounts(op string) map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := map[string]int{}
	for _, ev := range h.Operations {
		if op == "" || ev.Op == op {
			out[ev.Status]++
		}
	}
	return out
}
