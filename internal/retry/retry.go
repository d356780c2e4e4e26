// Package retry wraps fallible operations with a shared
// exponential-backoff-with-cap policy. Every I/O-touching component in
// this repository (chain RPC, HTTP fetch, filesystem delete, process
// signal/spawn) routes through Do or DoVoid instead of rolling its own
// loop, so the policy stays in one place.
//
// Go has no sync/async function coloring — every operation here is an
// ordinary blocking call, whether it does local I/O or awaits a
// network round trip. One generic implementation covers both of the
// spec's retry/retry_async shapes.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// initialInterval is the wait before the first retry.
	initialInterval = 1 * time.Second
	// multiplier is applied to the interval after each failed attempt.
	// 1.0 keeps the interval constant, matching the Runner's policy;
	// no component in this repository uses a growing interval.
	multiplier = 1.0
	// budgetCap is the maximum total elapsed wall-clock time spent
	// retrying a single logical operation before giving up.
	budgetCap = 60 * time.Second
)

// ErrExhausted is returned when the elapsed-time cap is reached without
// a successful attempt. The original failure is still reachable via
// errors.Is/errors.As (errors.Unwrap returns nil, since the wrapper
// carries two errors) — this sentinel marks "gave up", not "the
// specific reason", reproducing the source behavior's single opaque
// remapped error while keeping the cause available to callers that want
// it (a fidelity improvement spec.md §9 explicitly allows).
var ErrExhausted = errors.New("retry: exceeded elapsed-time budget")

// exhausted wraps the last observed error so errors.Is(err, ErrExhausted)
// and errors.Is(err, <the original cause>) both succeed.
type exhausted struct {
	label string
	cause error
}

func (e *exhausted) Error() string {
	return fmt.Sprintf("retry: %s: exceeded elapsed-time budget: %v", e.label, e.cause)
}

func (e *exhausted) Unwrap() []error {
	return []error{ErrExhausted, e.cause}
}

// Do invokes op repeatedly until it succeeds or the elapsed-time cap is
// reached. label is used in the INFO log emitted after every failed
// attempt. The operation must be idempotent from the caller's
// perspective — every use site in this repository (HTTP GET, storage
// read, file write and delete, process spawn and signal) satisfies this.
func Do[T any](ctx context.Context, logger *zap.Logger, label string, op func() (T, error)) (T, error) {
	var zero T
	interval := initialInterval
	deadline := time.Now().Add(budgetCap)
	attempt := 0

	for {
		attempt++
		result, err := op()
		if err == nil {
			return result, nil
		}

		logger.Info("retry: attempt failed",
			zap.String("op", label),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		now := time.Now()
		if !now.Before(deadline) {
			return zero, &exhausted{label: label, cause: err}
		}

		wait := interval
		if remaining := deadline.Sub(now); wait > remaining {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}

		interval = time.Duration(float64(interval) * multiplier)
	}
}

// DoVoid is Do for operations with no meaningful result value.
func DoVoid(ctx context.Context, logger *zap.Logger, label string, op func() error) error {
	_, err := Do(ctx, logger, label, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}
