package sweepflow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/cart-backend/internal/jobs/sweep"
)

type countingPasser struct {
	calls   atomic.Int32
	err     error
	trigger atomic.Value
}

func (p *countingPasser) RunPass(_ context.Context, now time.Time, trigger string) (sweep.Summary, error) {
	p.calls.Add(1)
	p.trigger.Store(trigger)
	if p.err != nil {
		return sweep.Summary{}, p.err
	}
	return sweep.Summary{RunID: uuid.New(), Trigger: trigger, Now: now, Scanned: 2, Marked: 1, Untouched: 1}, nil
}

func newEnv(t *testing.T, passer sweep.Passer) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := &Activities{Sweeper: passer}
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(acts.Pass, activity.RegisterOptions{Name: ActivityPass})
	return env
}

func TestWorkflowRunsOnePassPerIntervalThenContinuesAsNew(t *testing.T) {
	passer := &countingPasser{}
	env := newEnv(t, passer)

	env.ExecuteWorkflow(Workflow, Params{Interval: time.Minute, PassesBeforeContinue: 3})

	require.True(t, env.IsWorkflowCompleted())
	var can *workflow.ContinueAsNewError
	require.True(t, errors.As(env.GetWorkflowError(), &can), "want continue-as-new, got %v", env.GetWorkflowError())
	require.Equal(t, int32(3), passer.calls.Load())
	require.Equal(t, sweep.TriggerTemporal, passer.trigger.Load())
}

func TestWorkflowKeepsLoopingWhenPassFails(t *testing.T) {
	passer := &countingPasser{err: errors.New("list candidates: boom")}
	env := newEnv(t, passer)

	env.ExecuteWorkflow(Workflow, Params{Interval: time.Minute, PassesBeforeContinue: 2})

	require.True(t, env.IsWorkflowCompleted())
	var can *workflow.ContinueAsNewError
	require.True(t, errors.As(env.GetWorkflowError(), &can))
	// Each failing pass is attempted up to the retry policy maximum.
	require.Equal(t, int32(6), passer.calls.Load())
}

func TestActivityPassReportsCounts(t *testing.T) {
	passer := &countingPasser{}
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	acts := &Activities{Sweeper: passer, Now: func() time.Time { return fixed }}

	res, err := acts.Pass(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, res.Scanned)
	require.Equal(t, 1, res.Marked)
	require.NotEqual(t, uuid.Nil, res.RunID)
}

func TestActivityPassRequiresSweeper(t *testing.T) {
	_, err := (&Activities{}).Pass(context.Background())
	require.Error(t, err)
}

func TestParamsDefaults(t *testing.T) {
	p := Params{}.withDefaults()
	require.Equal(t, DefaultInterval, p.Interval)
	require.Equal(t, DefaultPassesBeforeContinue, p.PassesBeforeContinue)
}
