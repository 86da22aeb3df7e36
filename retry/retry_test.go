package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/kartta/types"
)

func fastPolicy() *Policy {
	return &Policy{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       0,
	}
}

func TestExecute_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := fastPolicy().Execute(context.Background(), "list", func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecute_RetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	err := fastPolicy().Execute(context.Background(), "list", func() error {
		calls++
		if calls < 3 {
			return types.NewError(types.ErrTransient, "list", errors.New("flaky"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecute_NonRetryableReturnsImmediately(t *testing.T) {
	tests := []struct {
		name string
		kind types.ErrorKind
	}{
		{"permission denied", types.ErrPermissionDenied},
		{"not found", types.ErrNotFound},
		{"fatal", types.ErrFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := fastPolicy().Execute(context.Background(), "get", func() error {
				calls++
				return types.NewError(tt.kind, "get", errors.New("nope"))
			})

			require.Error(t, err)
			assert.Equal(t, 1, calls)
			assert.Equal(t, tt.kind, types.KindOf(err))
		})
	}
}

func TestExecute_UnclassifiedErrorNotRetried(t *testing.T) {
	calls := 0
	cause := errors.New("programmer mistake")
	err := fastPolicy().Execute(context.Background(), "get", func() error {
		calls++
		return cause
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, cause, err)
}

func TestExecute_ExhaustsBudget(t *testing.T) {
	calls := 0
	cause := errors.New("still flaky")
	err := fastPolicy().Execute(context.Background(), "list", func() error {
		calls++
		return types.NewError(types.ErrTransient, "list", cause)
	})

	require.Error(t, err)
	assert.Equal(t, 5, calls)
	assert.Equal(t, types.ErrRetryExhausted, types.KindOf(err))
	assert.ErrorIs(t, err, cause)
}

func TestExecuteNotify_SignalsEachQuotaRejection(t *testing.T) {
	calls := 0
	signals := 0
	err := fastPolicy().ExecuteNotify(context.Background(), "list", func() error {
		calls++
		if calls < 3 {
			return types.NewRateLimited("list", errors.New("quota"))
		}
		return nil
	}, func() { signals++ })

	require.NoError(t, err)
	assert.Equal(t, 2, signals)
}

func TestExecuteNotify_SignalsOnFinalAttempt(t *testing.T) {
	p := fastPolicy()
	p.MaxAttempts = 3

	signals := 0
	err := p.ExecuteNotify(context.Background(), "list", func() error {
		return types.NewRateLimited("list", errors.New("quota"))
	}, func() { signals++ })

	require.Error(t, err)
	assert.Equal(t, types.ErrRetryExhausted, types.KindOf(err))
	assert.Equal(t, 3, signals)
}

func TestExecute_ContextCancelledDuringBackoff(t *testing.T) {
	p := fastPolicy()
	p.InitialDelay = 10 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	err := p.Execute(ctx, "list", func() error {
		calls++
		return types.NewError(types.ErrTransient, "list", errors.New("flaky"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, types.ErrTransient, types.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetDelay_ExponentialGrowth(t *testing.T) {
	p := &Policy{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Jitter:       0,
	}

	assert.Equal(t, 100*time.Millisecond, p.GetDelay(0))
	assert.Equal(t, 200*time.Millisecond, p.GetDelay(1))
	assert.Equal(t, 400*time.Millisecond, p.GetDelay(2))
	assert.Equal(t, 800*time.Millisecond, p.GetDelay(3))
	assert.Equal(t, time.Second, p.GetDelay(4))
}

func TestGetDelay_JitterStaysBounded(t *testing.T) {
	p := DefaultPolicy()

	for i := 0; i < 100; i++ {
		d := p.GetDelay(1)
		assert.GreaterOrEqual(t, d, 320*time.Millisecond)
		assert.LessOrEqual(t, d, 480*time.Millisecond)
	}
}
