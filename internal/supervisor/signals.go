package supervisor

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WatchSignals returns a context that is canceled the first time SIGINT or
// SIGTERM arrives, and a stop func the caller must invoke to release the
// signal notification once the context is no longer needed. The
// notification channel is buffered so a signal delivered before the
// select loop starts is never lost.
func WatchSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	stop := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-stop:
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		close(stop)
		cancel()
	}
}
