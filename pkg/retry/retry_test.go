package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	// Packages
	mlflow "github.com/imishinist/mlflow-client/pkg/mlflow"
	retry "github.com/imishinist/mlflow-client/pkg/retry"
	assert "github.com/stretchr/testify/assert"
)

func Test_Retry_001(t *testing.T) {
	assert := assert.New(t)

	assert.True(retry.Retryable(&mlflow.Error{Kind: mlflow.ErrTransport}))
	assert.True(retry.Retryable(&mlflow.Error{Kind: mlflow.ErrServer}))
	assert.False(retry.Retryable(&mlflow.Error{Kind: mlflow.ErrNotFound}))
	assert.False(retry.Retryable(&mlflow.Error{Kind: mlflow.ErrConflict}))
	assert.False(retry.Retryable(&mlflow.Error{Kind: mlflow.ErrInvalidArgument}))
	assert.False(retry.Retryable(&mlflow.Error{Kind: mlflow.ErrDecode}))
	assert.False(retry.Retryable(errors.New("plain")))
	assert.False(retry.Retryable(nil))
}

func Test_Retry_002(t *testing.T) {
	assert := assert.New(t)

	// Succeeds on the third call
	calls := 0
	err := retry.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &mlflow.Error{Kind: mlflow.ErrServer, StatusCode: 503}
		}
		return nil
	}, retry.OptAttempts(5), retry.OptDelay(time.Millisecond))
	assert.NoError(err)
	assert.Equal(3, calls)
}

func Test_Retry_003(t *testing.T) {
	assert := assert.New(t)

	// Non-retryable kinds stop after one call and are returned as-is
	calls := 0
	err := retry.Do(context.Background(), func(context.Context) error {
		calls++
		return &mlflow.Error{Kind: mlflow.ErrConflict}
	}, retry.OptAttempts(5), retry.OptDelay(time.Millisecond))
	assert.Equal(1, calls)
	assert.ErrorIs(err, mlflow.ErrConflict)
}

func Test_Retry_004(t *testing.T) {
	assert := assert.New(t)

	// Attempts exhausted returns the last error
	calls := 0
	err := retry.Do(context.Background(), func(context.Context) error {
		calls++
		return &mlflow.Error{Kind: mlflow.ErrTransport, Message: "refused"}
	}, retry.OptAttempts(3), retry.OptDelay(time.Millisecond))
	assert.Equal(3, calls)
	assert.ErrorIs(err, mlflow.ErrTransport)
	assert.Equal(mlflow.ErrTransport, mlflow.KindOf(err))
}

func Test_Retry_005(t *testing.T) {
	assert := assert.New(t)

	// A cancelled context means fn is never called
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := retry.Do(ctx, func(context.Context) error {
		calls++
		return nil
	})
	assert.Equal(0, calls)
	assert.ErrorIs(err, context.Canceled)
}

func Test_Retry_006(t *testing.T) {
	assert := assert.New(t)

	calls := 0
	value, err := retry.Value(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &mlflow.Error{Kind: mlflow.ErrTransport}
		}
		return "ok", nil
	}, retry.OptDelay(time.Millisecond))
	assert.NoError(err)
	assert.Equal("ok", value)
	assert.Equal(2, calls)
}

func Test_Retry_007(t *testing.T) {
	assert := assert.New(t)

	assert.Error(retry.Do(context.Background(), func(context.Context) error { return nil }, retry.OptAttempts(0)))
	assert.Error(retry.Do(context.Background(), func(context.Context) error { return nil }, retry.OptDelay(-1)))

	// Custom predicate
	calls := 0
	sentinel := errors.New("flaky")
	err := retry.Do(context.Background(), func(context.Context) error {
		calls++
		return sentinel
	}, retry.OptAttempts(2), retry.OptDelay(time.Millisecond), retry.OptRetryIf(func(err error) bool {
		return errors.Is(err, sentinel)
	}))
	assert.Equal(2, calls)
	assert.ErrorIs(err, sentinel)
}
