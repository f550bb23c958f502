package mlflow_test

import (
	"context"
	"errors"
	"testing"

	// Packages
	mlflow "github.com/imishinist/mlflow-client/pkg/mlflow"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func Test_Params_001(t *testing.T) {
	assert := assert.New(t)
	_, client := newTestClient(t)
	ctx := context.Background()

	run, err := client.CreateRun(ctx, "0")
	require.NoError(t, err)
	id := run.Info.RunID

	// Same value twice is idempotent
	assert.NoError(client.LogParam(ctx, id, "lr", "0.01"))
	assert.NoError(client.LogParam(ctx, id, "lr", "0.01"))

	// "constant" 42 then 43 conflicts
	assert.NoError(client.LogParam(ctx, id, "constant", "42"))
	err = client.LogParam(ctx, id, "constant", "43")
	assert.ErrorIs(err, mlflow.ErrConflict)

	var apiErr *mlflow.Error
	if assert.True(errors.As(err, &apiErr)) {
		assert.Equal("runs/log-parameter", apiErr.Op)
		assert.Equal("INVALID_PARAMETER_VALUE", apiErr.Code)
	}

	// The first value wins
	run, err = client.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal("42", run.Params()["constant"])
}

func Test_Params_002(t *testing.T) {
	assert := assert.New(t)
	_, client := newTestClient(t)
	ctx := context.Background()

	run, err := client.CreateRun(ctx, "0")
	require.NoError(t, err)
	id := run.Info.RunID

	assert.NoError(client.LogParams(ctx, id, map[string]string{
		"b": "2",
		"a": "1",
		"c": "3",
	}))
	run, err = client.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(map[string]string{"a": "1", "b": "2", "c": "3"}, run.Params())

	// Stops at the first conflicting key
	err = client.LogParams(ctx, id, map[string]string{"a": "1", "b": "changed"})
	assert.ErrorIs(err, mlflow.ErrConflict)

	// Other invalid values are not conflicts
	assert.ErrorIs(client.LogParam(ctx, "missing", "a", "1"), mlflow.ErrNotFound)
}
