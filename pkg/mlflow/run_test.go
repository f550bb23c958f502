package mlflow_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	// Packages
	mlflow "github.com/imishinist/mlflow-client/pkg/mlflow"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func Test_Run_001(t *testing.T) {
	assert := assert.New(t)
	_, client := newTestClient(t)
	ctx := context.Background()

	// exp1 -> run -> param -> metric -> terminate -> finished with end time
	experiment, err := client.CreateExperiment(ctx, "exp1")
	require.NoError(t, err)

	run, err := client.CreateRun(ctx, experiment.ID)
	require.NoError(t, err)
	assert.NotEmpty(run.Info.RunID)
	assert.Equal(experiment.ID, run.Info.ExperimentID)
	assert.Equal(mlflow.RunStatusRunning, run.Info.Status)
	assert.False(run.Info.StartTime.IsZero())
	assert.Nil(run.Info.EndTime)

	require.NoError(t, client.LogParam(ctx, run.Info.RunID, "i", "0"))
	require.NoError(t, client.LogMetric(ctx, run.Info.RunID, "rand", 0.42, time.Now(), 0))

	info, err := client.TerminateRun(ctx, run.Info.RunID, "", time.Time{})
	require.NoError(t, err)
	assert.Equal(mlflow.RunStatusFinished, info.Status)

	run, err = client.GetRun(ctx, run.Info.RunID)
	require.NoError(t, err)
	assert.Equal(mlflow.RunStatusFinished, run.Info.Status)
	assert.True(run.Info.Status.Terminal())
	if assert.NotNil(run.Info.EndTime) {
		assert.False(run.Info.EndTime.Before(run.Info.StartTime))
	}
	assert.Equal(map[string]string{"i": "0"}, run.Params())
	if metric, ok := run.Metrics()["rand"]; assert.True(ok) {
		assert.Equal(0.42, metric.Value)
		assert.Equal(int64(0), metric.Step)
	}
}

func Test_Run_002(t *testing.T) {
	assert := assert.New(t)
	server, client := newTestClient(t)
	ctx := context.Background()

	experiment, err := client.CreateExperiment(ctx, "named")
	require.NoError(t, err)

	start := time.Date(2024, 1, 2, 3, 4, 5, 6000000, time.UTC)
	run, err := client.CreateRun(ctx, experiment.ID,
		mlflow.OptRunName("first"),
		mlflow.OptRunDescription("a note"),
		mlflow.OptRunTag("source", "test"),
		mlflow.OptRunUser("alice"),
		mlflow.OptStartTime(start),
	)
	require.NoError(t, err)
	assert.Equal("first", run.Info.RunName)
	assert.Equal("alice", run.Info.UserID)
	assert.Equal(start.UnixMilli(), run.Info.StartTime.UnixMilli())

	tags := run.Tags()
	assert.Equal("first", tags[mlflow.TagRunName])
	assert.Equal("a note", tags[mlflow.TagNoteContent])
	assert.Equal("test", tags["source"])

	// start_time is sent as epoch milliseconds
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(server.Requests()[2].Body, &body))
	assert.Equal(float64(start.UnixMilli()), body["start_time"])
}

func Test_Run_003(t *testing.T) {
	assert := assert.New(t)
	_, client := newTestClient(t)

	_, err := client.CreateRun(context.Background(), "999")
	assert.ErrorIs(err, mlflow.ErrNotFound)

	_, err = client.GetRun(context.Background(), "0123456789abcdef")
	assert.ErrorIs(err, mlflow.ErrNotFound)
}

func Test_Run_004(t *testing.T) {
	assert := assert.New(t)
	server, client := newTestClient(t)
	ctx := context.Background()

	run, err := client.CreateRun(ctx, "0")
	require.NoError(t, err)
	id := run.Info.RunID

	// Only the fields set are sent
	status := mlflow.RunStatusFailed
	info, err := client.UpdateRun(ctx, id, mlflow.RunUpdate{Status: &status})
	require.NoError(t, err)
	assert.Equal(mlflow.RunStatusFailed, info.Status)
	assert.Nil(info.EndTime)
	assert.JSONEq(`{"run_id":"`+id+`","status":"FAILED"}`, string(server.LastRequest().Body))

	end := time.UnixMilli(1700000000000)
	info, err = client.UpdateRun(ctx, id, mlflow.RunUpdate{EndTime: &end})
	require.NoError(t, err)
	assert.Equal(mlflow.RunStatusFailed, info.Status)
	if assert.NotNil(info.EndTime) {
		assert.Equal(end.UnixMilli(), info.EndTime.UnixMilli())
	}

	name := "renamed"
	info, err = client.UpdateRun(ctx, id, mlflow.RunUpdate{RunName: &name})
	require.NoError(t, err)
	assert.Equal("renamed", info.RunName)

	_, err = client.UpdateRun(ctx, id, mlflow.RunUpdate{})
	assert.ErrorIs(err, mlflow.ErrInvalidArgument)

	bad := mlflow.RunStatus("DONE")
	_, err = client.UpdateRun(ctx, id, mlflow.RunUpdate{Status: &bad})
	assert.ErrorIs(err, mlflow.ErrInvalidArgument)

	_, err = client.UpdateRun(ctx, "missing", mlflow.RunUpdate{Status: &status})
	assert.ErrorIs(err, mlflow.ErrNotFound)
}

func Test_Run_005(t *testing.T) {
	assert := assert.New(t)
	_, client := newTestClient(t)
	ctx := context.Background()

	run, err := client.CreateRun(ctx, "0")
	require.NoError(t, err)

	// Explicit status and end time
	end := time.UnixMilli(1700000000000)
	info, err := client.TerminateRun(ctx, run.Info.RunID, mlflow.RunStatusKilled, end)
	require.NoError(t, err)
	assert.Equal(mlflow.RunStatusKilled, info.Status)
	if assert.NotNil(info.EndTime) {
		assert.Equal(end.UnixMilli(), info.EndTime.UnixMilli())
	}
}

func Test_Run_006(t *testing.T) {
	assert := assert.New(t)
	_, client := newTestClient(t)
	ctx := context.Background()

	run, err := client.CreateRun(ctx, "0")
	require.NoError(t, err)
	id := run.Info.RunID

	require.NoError(t, client.DeleteRun(ctx, id))
	run, err = client.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(mlflow.LifecycleDeleted, run.Info.LifecycleStage)

	// Deleted runs do not accept writes
	assert.ErrorIs(client.LogParam(ctx, id, "k", "v"), mlflow.ErrInvalidArgument)

	require.NoError(t, client.RestoreRun(ctx, id))
	run, err = client.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(mlflow.LifecycleActive, run.Info.LifecycleStage)
	assert.NoError(client.LogParam(ctx, id, "k", "v"))

	assert.ErrorIs(client.DeleteRun(ctx, "missing"), mlflow.ErrNotFound)
}

func Test_Run_007(t *testing.T) {
	assert := assert.New(t)
	_, client := newTestClient(t)
	ctx := context.Background()

	run, err := client.CreateRun(ctx, "0")
	require.NoError(t, err)
	id := run.Info.RunID

	// Tags are upserted
	require.NoError(t, client.SetTag(ctx, id, "stage", "train"))
	require.NoError(t, client.SetTag(ctx, id, "stage", "eval"))
	run, err = client.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal("eval", run.Tags()["stage"])

	require.NoError(t, client.DeleteTag(ctx, id, "stage"))
	run, err = client.GetRun(ctx, id)
	require.NoError(t, err)
	_, exists := run.Tags()["stage"]
	assert.False(exists)

	assert.ErrorIs(client.DeleteTag(ctx, id, "stage"), mlflow.ErrNotFound)
	assert.ErrorIs(client.SetTag(ctx, "missing", "k", "v"), mlflow.ErrNotFound)
}
