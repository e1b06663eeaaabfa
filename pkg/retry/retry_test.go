package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestDoWithResult(t *testing.T) {
	fast := ConstantBackoff(time.Millisecond)

	tests := []struct {
		name         string
		policy       Policy
		failures     int
		permanent    bool
		wantErr      bool
		wantAttempts int
	}{
		{name: "success on first attempt", policy: Policy{MaxAttempts: 3, Backoff: fast}, wantAttempts: 1},
		{name: "success after retries", policy: Policy{MaxAttempts: 3, Backoff: fast}, failures: 2, wantAttempts: 3},
		{name: "attempts exhausted", policy: Policy{MaxAttempts: 2, Backoff: fast}, failures: 5, wantErr: true, wantAttempts: 2},
		{
			name:         "non retryable error stops immediately",
			policy:       Policy{MaxAttempts: 5, Backoff: fast, ShouldRetry: func(err error) bool { return errors.Is(err, errTransient) }},
			failures:     5,
			permanent:    true,
			wantErr:      true,
			wantAttempts: 1,
		},
		{name: "zero attempts means one", policy: Policy{Backoff: fast}, failures: 1, wantErr: true, wantAttempts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			attempts := 0
			fn := func() (string, error) {
				attempts++
				if attempts <= tt.failures {
					if tt.permanent {
						return "", errors.New("permanent")
					}
					return "", errTransient
				}
				return "ok", nil
			}

			// when
			got, err := DoWithResult(context.Background(), tt.policy, fn)

			// then
			assert.Equal(t, tt.wantAttempts, attempts)
			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", got)
		})
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	// given
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false

	// when
	err := Do(ctx, Policy{MaxAttempts: 3}, func() error {
		called = true
		return nil
	})

	// then
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	// given
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{MaxAttempts: 3, Backoff: ConstantBackoff(time.Hour)}

	// when
	err := Do(ctx, policy, func() error {
		cancel()
		return errTransient
	})

	// then
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, errTransient)
}

func TestExponentialBackoff(t *testing.T) {
	backoff := ExponentialBackoff(10 * time.Millisecond)

	for attempt, base := range map[int]time.Duration{1: 10 * time.Millisecond, 2: 20 * time.Millisecond, 3: 40 * time.Millisecond} {
		got := backoff(attempt)
		assert.GreaterOrEqual(t, got, base)
		assert.LessOrEqual(t, got, base+base/2)
	}
}
