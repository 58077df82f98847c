package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"TEMPORAL_ADDRESS", "TEMPORAL_NAMESPACE", "TEMPORAL_TASK_QUEUE", "TEMPORAL_SWEEP_WORKFLOW_ID", "TEMPORAL_NAMESPACE_RETENTION_DAYS", "TEMPORAL_MAX_WAIT"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()
	if cfg.Namespace != "carts" || cfg.TaskQueue != "carts" || cfg.SweepWorkflowID != "cart-sweep" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RetentionDays != 7 || cfg.MaxWait != time.Minute {
		t.Fatalf("unexpected retry defaults: %+v", cfg)
	}
}

func TestLoadConfigOverridesAndClamps(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "temporal:7233")
	t.Setenv("TEMPORAL_TASK_QUEUE", "carts-eu")
	t.Setenv("TEMPORAL_NAMESPACE_RETENTION_DAYS", "900")
	t.Setenv("TEMPORAL_MAX_WAIT", "-5s")

	cfg := LoadConfig()
	if cfg.Address != "temporal:7233" || cfg.TaskQueue != "carts-eu" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.RetentionDays != 365 {
		t.Fatalf("retention: want=365 got=%d", cfg.RetentionDays)
	}
	if cfg.MaxWait != 0 {
		t.Fatalf("max wait: want=0 got=%s", cfg.MaxWait)
	}
}

func TestClampBackoff(t *testing.T) {
	if got := ClampBackoff(100*time.Millisecond, time.Second, 1); got != 100*time.Millisecond {
		t.Fatalf("attempt 1: got=%s", got)
	}
	if got := ClampBackoff(100*time.Millisecond, time.Second, 3); got != 400*time.Millisecond {
		t.Fatalf("attempt 3: got=%s", got)
	}
	if got := ClampBackoff(100*time.Millisecond, time.Second, 10); got != time.Second {
		t.Fatalf("attempt 10: got=%s", got)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	cfg := Config{MaxWait: time.Second, Backoff: time.Millisecond, BackoffMax: time.Millisecond}
	calls := 0
	err := Retry(context.Background(), cfg, func(context.Context, int) (bool, error) {
		calls++
		return false, errors.New("permission denied")
	})
	if err == nil || calls != 1 {
		t.Fatalf("want one failing call, got calls=%d err=%v", calls, err)
	}
}

func TestRetryRetriesUntilSuccess(t *testing.T) {
	cfg := Config{MaxWait: time.Second, Backoff: time.Millisecond, BackoffMax: time.Millisecond}
	calls := 0
	err := Retry(context.Background(), cfg, func(_ context.Context, attempt int) (bool, error) {
		calls++
		if attempt < 3 {
			return true, errors.New("unavailable")
		}
		return false, nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("want success on third call, got calls=%d err=%v", calls, err)
	}
}

func TestRetryWithoutMaxWaitTriesOnce(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), Config{}, func(context.Context, int) (bool, error) {
		calls++
		return true, errors.New("unavailable")
	})
	if err == nil || calls != 1 {
		t.Fatalf("want one call, got calls=%d err=%v", calls, err)
	}
}

func TestIsRetryableRPC(t *testing.T) {
	if !isRetryableRPC(status.Error(codes.Unavailable, "down")) {
		t.Fatalf("unavailable should be retryable")
	}
	if isRetryableRPC(status.Error(codes.PermissionDenied, "no")) {
		t.Fatalf("permission denied should not be retryable")
	}
	if !isRetryableRPC(context.DeadlineExceeded) {
		t.Fatalf("deadline exceeded should be retryable")
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	c, err := NewClient(nil, Config{})
	if err != nil || c != nil {
		t.Fatalf("want nil,nil got=%v,%v", c, err)
	}
}
