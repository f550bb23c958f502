package mlflow_test

import (
	"context"
	"fmt"
	"testing"

	// Packages
	mlflow "github.com/imishinist/mlflow-client/pkg/mlflow"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func Test_Tracking_001(t *testing.T) {
	assert := assert.New(t)
	server, client := newTestClient(t)
	ctx := context.Background()

	tracking := mlflow.NewTrackingRun("buffered")
	require.NoError(t, tracking.LogParam("i", "0"))
	require.NoError(t, tracking.LogParam("constant", "42"))
	require.NoError(t, tracking.SetTag("source", "test"))
	for step := 0; step < 10; step++ {
		tracking.LogMetric("rand", float64(step)/10, int64(step))
	}

	// Nothing is sent until Submit
	assert.Empty(server.Requests())

	run, err := tracking.Submit(ctx, client, "0")
	require.NoError(t, err)
	assert.Equal("buffered", run.Info.RunName)
	assert.Equal(mlflow.RunStatusFinished, run.Info.Status)
	assert.NotNil(run.Info.EndTime)
	assert.Equal("42", run.Params()["constant"])
	assert.Equal("test", run.Tags()["source"])
	assert.Equal(0.9, run.Metrics()["rand"].Value)

	var paths []string
	for _, request := range server.Requests() {
		paths = append(paths, request.Path)
	}
	assert.Equal([]string{"runs/create", "runs/log-batch", "runs/log-batch", "runs/update", "runs/get"}, paths)

	history, err := client.GetMetricHistory(ctx, run.Info.RunID, "rand")
	require.NoError(t, err)
	assert.Len(history, 10)
}

func Test_Tracking_002(t *testing.T) {
	assert := assert.New(t)
	server, client := newTestClient(t)

	// Metrics are sent in chunks of MaxBatchMetrics
	tracking := mlflow.NewTrackingRun("")
	for step := 0; step < 2*mlflow.MaxBatchMetrics+1; step++ {
		tracking.LogMetric("loss", 1, int64(step))
	}
	run, err := tracking.Submit(context.Background(), client, "0")
	require.NoError(t, err)
	assert.NotEmpty(run.Info.RunName)

	batches := 0
	for _, request := range server.Requests() {
		if request.Path == "runs/log-batch" {
			batches++
		}
	}
	assert.Equal(3, batches)

	history, err := client.GetMetricHistory(context.Background(), run.Info.RunID, "loss")
	require.NoError(t, err)
	assert.Len(history, 2*mlflow.MaxBatchMetrics+1)
}

func Test_Tracking_003(t *testing.T) {
	assert := assert.New(t)

	tracking := mlflow.NewTrackingRun("full")
	for i := 0; i < mlflow.MaxBatchParams; i++ {
		require.NoError(t, tracking.LogParam(fmt.Sprint("p", i), "v"))
	}
	assert.ErrorIs(tracking.LogParam("one-more", "v"), mlflow.ErrInvalidArgument)
	assert.ErrorIs(tracking.LogParam("", "v"), mlflow.ErrInvalidArgument)

	for i := 0; i < mlflow.MaxBatchTags; i++ {
		require.NoError(t, tracking.SetTag(fmt.Sprint("t", i), "v"))
	}
	assert.ErrorIs(tracking.SetTag("one-more", "v"), mlflow.ErrInvalidArgument)
	assert.ErrorIs(tracking.SetTag("", "v"), mlflow.ErrInvalidArgument)
}

func Test_Tracking_004(t *testing.T) {
	assert := assert.New(t)
	_, client := newTestClient(t)

	// Failures stop the submission
	_, err := mlflow.NewTrackingRun("x").Submit(context.Background(), client, "999")
	assert.ErrorIs(err, mlflow.ErrNotFound)
}
