package mlflow_test

import (
	"context"
	"testing"
	"time"

	// Packages
	mlflow "github.com/imishinist/mlflow-client/pkg/mlflow"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func Test_Handle_001(t *testing.T) {
	assert := assert.New(t)
	server, client := newTestClient(t)
	ctx := context.Background()

	created, err := client.CreateExperiment(ctx, "handles")
	require.NoError(t, err)

	experiment := client.Experiment(created.ID)
	assert.Equal(created.ID, experiment.ID())

	got, err := experiment.Get(ctx)
	require.NoError(t, err)
	assert.Equal("handles", got.Name)
	assert.Equal(created.ID, server.LastRequest().Query.Get("experiment_id"))

	require.NoError(t, experiment.Rename(ctx, "handles-renamed"))
	require.NoError(t, experiment.SetTag(ctx, "k", "v"))
	got, err = experiment.Get(ctx)
	require.NoError(t, err)
	assert.Equal("handles-renamed", got.Name)
	value, _ := got.Tag("k")
	assert.Equal("v", value)

	// Runs created through the handle belong to the experiment
	run, info, err := experiment.CreateRun(ctx, mlflow.OptRunName("child"))
	require.NoError(t, err)
	assert.Equal(info.Info.RunID, run.ID())
	assert.Equal(created.ID, info.Info.ExperimentID)

	// ExperimentIDs is replaced by the bound id
	runs, err := experiment.SearchRuns(ctx, mlflow.SearchRunsRequest{ExperimentIDs: []string{"0"}})
	require.NoError(t, err)
	if assert.Len(runs, 1) {
		assert.Equal(run.ID(), runs[0].Info.RunID)
	}

	deleted := mlflow.LifecycleDeleted
	require.NoError(t, experiment.Update(ctx, mlflow.ExperimentUpdate{NewStage: &deleted}))
	require.NoError(t, experiment.Restore(ctx))
	require.NoError(t, experiment.Delete(ctx))
	got, err = experiment.Get(ctx)
	require.NoError(t, err)
	assert.Equal(mlflow.LifecycleDeleted, got.LifecycleStage)

	_, err = client.Experiment("999").Get(ctx)
	assert.ErrorIs(err, mlflow.ErrNotFound)
}

func Test_Handle_002(t *testing.T) {
	assert := assert.New(t)
	server, client := newTestClient(t)
	ctx := context.Background()

	_, created, err := client.Experiment("0").CreateRun(ctx)
	require.NoError(t, err)
	run := client.Run(created.Info.RunID)
	assert.Equal(created.Info.RunID, run.ID())

	require.NoError(t, run.LogParam(ctx, "i", "0"))
	assert.ErrorIs(run.LogParam(ctx, "i", "1"), mlflow.ErrConflict)
	require.NoError(t, run.LogMetric(ctx, "rand", 0.1, time.Time{}, 0))
	require.NoError(t, run.LogMetric(ctx, "rand", 0.2, time.Time{}, 0))
	require.NoError(t, run.SetTag(ctx, "k", "v"))
	require.NoError(t, run.LogBatch(ctx, mlflow.Batch{Tags: []mlflow.Tag{{Key: "k2", Value: "v2"}}}))
	require.NoError(t, run.DeleteTag(ctx, "k"))

	// Every request carries the bound run id
	for _, request := range server.Requests()[1:] {
		assert.Contains(string(request.Body), created.Info.RunID, request.Path)
	}

	history, err := run.MetricHistory(ctx, "rand")
	require.NoError(t, err)
	assert.Len(history, 2)
	assert.Equal(created.Info.RunID, server.LastRequest().Query.Get("run_id"))

	name := "renamed"
	info, err := run.Update(ctx, mlflow.RunUpdate{RunName: &name})
	require.NoError(t, err)
	assert.Equal("renamed", info.RunName)

	info, err = run.Terminate(ctx, mlflow.RunStatusFailed, time.Time{})
	require.NoError(t, err)
	assert.Equal(mlflow.RunStatusFailed, info.Status)

	got, err := run.Get(ctx)
	require.NoError(t, err)
	assert.Equal(map[string]string{"i": "0"}, got.Params())
	assert.Equal("v2", got.Tags()["k2"])
	_, exists := got.Tags()["k"]
	assert.False(exists)

	require.NoError(t, run.Delete(ctx))
	got, err = run.Get(ctx)
	require.NoError(t, err)
	assert.Equal(mlflow.LifecycleDeleted, got.Info.LifecycleStage)
}
