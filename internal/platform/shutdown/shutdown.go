// Package shutdown turns SIGINT/SIGTERM into context cancellation.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/cart-backend/internal/platform/logger"
)

// SignalError is the cancellation cause recorded when a signal arrives.
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string { return "received " + e.Signal.String() }

// NotifyContext returns a context cancelled on the first SIGINT or SIGTERM.
// The signal is logged and kept as the cause; see Signal. A second signal is
// left to the default handler so an operator can still force exit.
func NotifyContext(parent context.Context, log *logger.Logger) (context.Context, context.CancelFunc) {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancelCause(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			log.Info("shutdown signal received", "signal", sig.String())
			signal.Stop(sigCh)
			cancel(&SignalError{Signal: sig})
		case <-ctx.Done():
			signal.Stop(sigCh)
		}
	}()
	return ctx, func() { cancel(context.Canceled) }
}

// Signal reports the signal that cancelled ctx, if any.
func Signal(ctx context.Context) (os.Signal, bool) {
	var se *SignalError
	if errors.As(context.Cause(ctx), &se) {
		return se.Signal, true
	}
	return nil, false
}
