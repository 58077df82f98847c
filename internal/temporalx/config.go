package temporalx

import (
	"time"

	"github.com/yungbote/cart-backend/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	// SweepWorkflowID names the single long-running sweep workflow.
	SweepWorkflowID string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	// AutoRegisterNamespace creates Namespace when it is missing. Local and
	// self-hosted clusters only; managed namespaces are provisioned up front.
	AutoRegisterNamespace bool
	RetentionDays         int

	DialTimeout time.Duration
	// MaxWait bounds dial, namespace and worker start retries. Zero means one try.
	MaxWait    time.Duration
	Backoff    time.Duration
	BackoffMax time.Duration
}

func LoadConfig() Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "carts"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "carts"),

		SweepWorkflowID: envutil.String("TEMPORAL_SWEEP_WORKFLOW_ID", "cart-sweep"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		RetentionDays:         clampInt(envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7), 1, 365),

		DialTimeout: envutil.Duration("TEMPORAL_DIAL_TIMEOUT", 5*time.Second),
		MaxWait:     nonNegative(envutil.Duration("TEMPORAL_MAX_WAIT", time.Minute)),
		Backoff:     envutil.Duration("TEMPORAL_BACKOFF", 250*time.Millisecond),
		BackoffMax:  envutil.Duration("TEMPORAL_BACKOFF_MAX", 5*time.Second),
	}
}

func (c Config) tlsEnabled() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
