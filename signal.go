package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// shutdownContext returns a context that is canceled on the first SIGINT or
// SIGTERM. onSignal then runs (the delegation-token cancel), so credentials
// are revoked even if the workers are slow to stop. A second signal exits
// immediately. The returned stop func releases the signal handler.
func shutdownContext(parent context.Context, logger *slog.Logger, onSignal func()) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	done := make(chan struct{})

	var once sync.Once

	stop := func() {
		once.Do(func() { close(done) })
		cancel()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Warn("received signal, stopping", slog.String("signal", sig.String()))
			cancel()

			if onSignal != nil {
				onSignal()
			}
		case <-done:
			return
		case <-parent.Done():
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit", slog.String("signal", sig.String()))
			os.Exit(1)
		case <-done:
			return
		case <-parent.Done():
			return
		}
	}()

	return ctx, stop
}
