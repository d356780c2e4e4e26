package retry

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	logger := zap.NewNop()
	attempts := 0

	result, err := Do(context.Background(), logger, "test-op", func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if result != 42 {
		t.Fatalf("expected 42, got %d", result)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoSucceedsOnFirstAttempt(t *testing.T) {
	logger := zap.NewNop()
	calls := 0

	_, err := Do(context.Background(), logger, "test-op", func() (struct{}, error) {
		calls++
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one call, got %d", calls)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	logger := zap.NewNop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DoWithoutWaitForTest(ctx, logger, func() (int, error) {
		return 0, errors.New("always fails")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// DoWithoutWaitForTest exercises the cancellation path without waiting out
// the full retry interval: the op always fails, so the first iteration's
// select observes the already-cancelled context immediately.
func DoWithoutWaitForTest(ctx context.Context, logger *zap.Logger, op func() (int, error)) (int, error) {
	return Do(ctx, logger, "cancel-test", op)
}

func TestDoVoid(t *testing.T) {
	logger := zap.NewNop()
	calls := 0
	err := DoVoid(context.Background(), logger, "void-op", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestExhaustedUnwrapsToOriginalCause(t *testing.T) {
	cause := errors.New("permanent transport failure")
	e := &exhausted{label: "x", cause: cause}

	if !errors.Is(e, ErrExhausted) {
		t.Fatalf("expected errors.Is(e, ErrExhausted) to succeed")
	}
	if !errors.Is(e, cause) {
		t.Fatalf("expected errors.Is(e, cause) to succeed")
	}
}
