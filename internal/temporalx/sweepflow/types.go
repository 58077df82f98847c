package sweepflow

import (
	"time"

	"github.com/google/uuid"
)

const (
	WorkflowName = "cart_sweep"
	ActivityPass = "cart_sweep_pass"

	DefaultInterval             = 5 * time.Minute
	DefaultPassesBeforeContinue = 500
	continueHistoryLimit        = 10000
)

type Params struct {
	Interval time.Duration `json:"interval"`
	// PassesBeforeContinue bounds history growth; the workflow continues as new after that many passes.
	PassesBeforeContinue int `json:"passes_before_continue"`
}

func (p Params) withDefaults() Params {
	if p.Interval <= 0 {
		p.Interval = DefaultInterval
	}
	if p.PassesBeforeContinue <= 0 {
		p.PassesBeforeContinue = DefaultPassesBeforeContinue
	}
	return p
}

type PassResult struct {
	RunID     uuid.UUID `json:"run_id"`
	Scanned   int       `json:"scanned"`
	Marked    int       `json:"marked"`
	Removed   int       `json:"removed"`
	Untouched int       `json:"untouched"`
	Failed    int       `json:"failed"`
}
