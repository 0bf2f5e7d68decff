package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundwork-io/groundwork/pkg/adapter"
)

func fastPolicy() *RetryPolicy {
	return &RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryWithBackoff_RecoversFromTransient(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		calls++
		if calls < 3 {
			return adapter.NewTransient("throttled", nil)
		}
		return nil
	}, IsRetryable)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_PermanentFailsImmediately(t *testing.T) {
	calls := 0
	cause := adapter.NewPermanent("invalid image id", nil)
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		calls++
		return cause
	}, IsRetryable)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, cause)
}

func TestRetryWithBackoff_ExhaustsCeiling(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		calls++
		return adapter.NewTransient("still throttled", nil)
	}, IsRetryable)

	require.Error(t, err)
	assert.Equal(t, 4, calls) // initial attempt + 3 retries
	assert.Contains(t, err.Error(), "max retries")
}

func TestRetryWithBackoff_CancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, fastPolicy(), func() error {
		return adapter.NewTransient("throttled", nil)
	}, IsRetryable)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable_Classification(t *testing.T) {
	assert.True(t, IsRetryable(adapter.NewTransient("slow down", nil)))
	assert.False(t, IsRetryable(adapter.NewPermanent("bad request", nil)))
	assert.False(t, IsRetryable(adapter.NewPrecondition("final snapshot required", nil)))

	// Unclassified errors fall back to message heuristics.
	assert.True(t, IsRetryable(errors.New("RequestLimitExceeded: Throttling")))
	assert.True(t, IsRetryable(errors.New("dial tcp: connection refused")))
	assert.False(t, IsRetryable(errors.New("InvalidAMIID.NotFound")))
	assert.False(t, IsRetryable(nil))
}

func TestBackoffDelay_Bounded(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := backoffDelay(attempt, time.Second, 30*time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 30*time.Second)
	}
}
