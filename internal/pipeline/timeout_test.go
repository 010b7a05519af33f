package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitReturnsOpError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("boom")
	err := await(context.Background(), time.Second, func(context.Context) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
}

func TestAwaitZeroDurationRunsDirect(t *testing.T) {
	t.Parallel()

	ran := false
	err := await(context.Background(), 0, func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestAwaitTimesOutAtApproximatelyT(t *testing.T) {
	t.Parallel()

	start := time.Now()
	err := await(context.Background(), 60*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second, "must not hang")
}

func TestAwaitHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := await(ctx, time.Second, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
}
