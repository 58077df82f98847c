package sweepflow

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/yungbote/cart-backend/internal/jobs/sweep"
)

type Activities struct {
	Sweeper sweep.Passer
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

func (a *Activities) Pass(ctx context.Context) (PassResult, error) {
	if a == nil || a.Sweeper == nil {
		return PassResult{}, fmt.Errorf("sweepflow: activity not configured")
	}
	now := time.Now().UTC()
	if a.Now != nil {
		now = a.Now()
	}
	if activity.IsActivity(ctx) {
		activity.GetLogger(ctx).Debug("cart sweep pass starting", "now", now)
	}
	sum, err := a.Sweeper.RunPass(ctx, now, sweep.TriggerTemporal)
	res := PassResult{
		RunID:     sum.RunID,
		Scanned:   sum.Scanned,
		Marked:    sum.Marked,
		Removed:   sum.Removed,
		Untouched: sum.Untouched,
		Failed:    sum.Failed,
	}
	return res, err
}
