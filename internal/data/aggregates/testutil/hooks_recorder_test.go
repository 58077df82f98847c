package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/yungbote/cart-backend/internal/data/aggregates"
)

func TestHooksRecorderConcurrentWrites(t *testing.T) {
	h := &HooksRecorder{}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := "success"
			if i%4 == 0 {
				status = "conflict"
				h.IncConflict("cart.add_item")
			}
			h.ObserveWrite(aggregates.WriteEvent{Op: "cart.add_item", Status: status, Attempts: 1, Duration: time.Millisecond})
		}(i)
	}
	wg.Wait()
	h.IncRetry("cart.remove_item")
	h.ObserveWrite(aggregates.WriteEvent{Op: "cart.remove_item", Status: "success", Attempts: 2})

	got := h.StatusCounts("cart.add_item")
	if got["success"] != 15 || got["conflict"] != 5 {
		t.Fatalf("unexpected add_item counts: %+v", got)
	}
	if all := h.StatusCounts(""); all["success"] != 16 {
		t.Fatalf("unexpected total counts: %+v", all)
	}
	if len(h.Conflicts) != 5 || len(h.Retries) != 1 {
		t.Fatalf("unexpected signals: conflicts=%d retries=%d", len(h.Conflicts), len(h.Retries))
	}
}
