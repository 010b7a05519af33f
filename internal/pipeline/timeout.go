package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout marks a step that exceeded its budget.
var ErrTimeout = errors.New("timed out")

// await runs op and stops waiting once d elapses. The host-side
// operation is not cancelled: a slow command may still complete after
// the pipeline has reported the timeout and moved on.
func await(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	if d <= 0 {
		return op(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTimeout, d)
		}
		return ctx.Err()
	}
}
