package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	var retried []int

	err := Do(context.Background(), fastConfig(5), "postgres", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, func(attempt int, err error, next time.Duration) {
		retried = append(retried, attempt)
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_GivesUp(t *testing.T) {
	cause := errors.New("connection refused")

	err := Do(context.Background(), fastConfig(2), "postgres", func(context.Context) error {
		return cause
	}, nil)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "postgres: max retry attempts (2) exceeded")
}

func TestDo_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastConfig(3), "redis", func(context.Context) error {
		t.Fatal("fn must not run")
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
}
