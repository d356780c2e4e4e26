package updater

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/interlay/vault-runner/internal/supervisor"
)

// RunWithShutdown runs loop.Run in the background and races it against
// the next signal delivered on signals. Whichever happens first, the
// held worker is given a best-effort TerminateAndWait before returning:
// a signal means a clean shutdown, a loop return means something the
// update logic could not recover from.
func RunWithShutdown(ctx context.Context, signals <-chan os.Signal, loop *Loop, sup *supervisor.Supervisor) error {
	logger := loop.logger

	// loopCtx is cancelled as soon as either branch of the race below
	// resolves, so the drain on the losing side returns promptly instead
	// of waiting out the next BlockTime tick or the parent ctx's own
	// deadline — cancellation is the mechanism, not a hung channel read.
	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()

	done := make(chan error, 1)
	go func() {
		done <- loop.Run(loopCtx)
	}()

	select {
	case sig := <-signals:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		if _, err := sup.TerminateAndWait(context.Background()); err != nil && !errors.Is(err, supervisor.ErrNoChildProcess) {
			logger.Warn("shutdown: failed to terminate worker cleanly", zap.Error(err))
		}
		cancelLoop()
		// Drain the loop goroutine so it does not leak, but its
		// outcome no longer matters: shutdown was operator-initiated.
		<-done
		return nil

	case err := <-done:
		logger.Error("update loop terminated unexpectedly", zap.Error(err))
		if _, termErr := sup.TerminateAndWait(context.Background()); termErr != nil && !errors.Is(termErr, supervisor.ErrNoChildProcess) {
			logger.Warn("shutdown: failed to terminate worker after loop exit", zap.Error(termErr))
		}
		if err == nil {
			return ErrAutoUpdaterTerminated
		}
		return errors.Join(ErrAutoUpdaterTerminated, err)
	}
}
