package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/cart-backend/internal/observability"
	"github.com/yungbote/cart-backend/internal/platform/logger"
)

// WriteEvent summarizes one executeWrite call after its last attempt.
type WriteEvent struct {
	Op       string
	Status   string
	Attempts int
	Duration time.Duration
}

// Hooks receives cart write signals. Conflict and retry fire per attempt,
// ObserveWrite once per call.
type Hooks interface {
	ObserveWrite(ev WriteEvent)
	IncConflict(op string)
	IncRetry(op string)
}

type noopHooks struct{}

func (noopHooks) ObserveWrite(WriteEvent) {}
func (noopHooks) IncConflict(string)      {}
func (noopHooks) IncRetry(string)         {}

type observabilityHooks struct {
	metrics *observability.Metrics
	log     *logger.Logger
}

// NewObservabilityHooks records write outcomes as metrics and warns about
// writes that needed more than one attempt and still failed.
func NewObservabilityHooks(metrics *observability.Metrics, log *logger.Logger) Hooks {
	if metrics == nil && log == nil {
		return noopHooks{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &observabilityHooks{metrics: metrics, log: log}
}

func (h *observabilityHooks) ObserveWrite(ev WriteEvent) {
	op, status := strings.TrimSpace(ev.Op), strings.TrimSpace(ev.Status)
	h.metrics.ObserveAggregateOperation(op, status, ev.Duration)
	if status != "success" && ev.Attempts > 1 {
		h.log.Warn("cart write gave up after retries", "op", op, "status", status, "attempts", ev.Attempts)
	}
}

func (h *observabilityHooks) IncConflict(op string) {
	h.metrics.IncAggregateConflict(strings.TrimSpace(op))
}

func (h *observabilityHooks) IncRetry(op string) {
	h.metrics.IncAggregateRetry(strings.TrimSpace(op))
}
