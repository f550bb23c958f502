package mlflow_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	// Packages
	mlflow "github.com/imishinist/mlflow-client/pkg/mlflow"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

// seedRuns creates n runs in each of the given experiments, logging param
// "i", metric "score" = i and tag "parity"
func seedRuns(t *testing.T, client *mlflow.Client, n int, experimentIDs ...string) map[string][]string {
	t.Helper()
	ctx := context.Background()
	base := time.UnixMilli(1700000000000)

	result := make(map[string][]string)
	for _, experimentID := range experimentIDs {
		for i := 0; i < n; i++ {
			run, err := client.CreateRun(ctx, experimentID, mlflow.OptStartTime(base.Add(time.Duration(i)*time.Minute)))
			require.NoError(t, err)
			parity := "even"
			if i%2 == 1 {
				parity = "odd"
			}
			require.NoError(t, client.LogBatch(ctx, run.Info.RunID, mlflow.Batch{
				Params:  []mlflow.Param{{Key: "i", Value: fmt.Sprint(i)}},
				Metrics: []mlflow.Metric{{Key: "score", Value: float64(i)}},
				Tags:    []mlflow.Tag{{Key: "parity", Value: parity}},
			}))
			result[experimentID] = append(result[experimentID], run.Info.RunID)
		}
	}
	return result
}

func Test_Search_001(t *testing.T) {
	assert := assert.New(t)
	_, client := newTestClient(t)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"s1", "s2", "s3"} {
		experiment, err := client.CreateExperiment(ctx, name)
		require.NoError(t, err)
		ids = append(ids, experiment.ID)
	}
	seeded := seedRuns(t, client, 4, ids...)

	// Restricting to one experiment returns only its runs
	for _, id := range ids {
		runs, err := client.SearchRuns(ctx, mlflow.SearchRunsRequest{ExperimentIDs: []string{id}})
		require.NoError(t, err)
		assert.Len(runs, len(seeded[id]))
		for _, run := range runs {
			assert.Equal(id, run.Info.ExperimentID)
			assert.Contains(seeded[id], run.Info.RunID)
		}
	}

	runs, err := client.SearchRuns(ctx, mlflow.SearchRunsRequest{ExperimentIDs: ids[:2]})
	require.NoError(t, err)
	assert.Len(runs, 8)
}

func Test_Search_002(t *testing.T) {
	assert := assert.New(t)
	_, client := newTestClient(t)
	ctx := context.Background()

	experiment, err := client.CreateExperiment(ctx, "filters")
	require.NoError(t, err)
	seedRuns(t, client, 6, experiment.ID)

	search := func(filter string, orderBy ...string) []mlflow.Run {
		runs, err := client.SearchRuns(ctx, mlflow.SearchRunsRequest{
			ExperimentIDs: []string{experiment.ID},
			Filter:        filter,
			OrderBy:       orderBy,
		})
		require.NoError(t, err, filter)
		return runs
	}

	assert.Len(search("metrics.score >= 3"), 3)
	assert.Len(search("metrics.score < 1"), 1)
	assert.Len(search("params.i = '2'"), 1)
	assert.Len(search("tags.parity = 'odd'"), 3)
	assert.Len(search("tags.parity = 'odd' and metrics.score > 2"), 2)
	assert.Len(search("params.i != '0' AND tags.parity = 'even'"), 2)
	assert.Len(search("attributes.status = 'RUNNING'"), 6)
	assert.Len(search("tags.`parity` LIKE 'ev%'"), 3)

	// Default order is newest first
	runs := search("")
	if assert.Len(runs, 6) {
		assert.Equal("5", runs[0].Params()["i"])
		assert.Equal("0", runs[5].Params()["i"])
	}

	runs = search("", "metrics.score ASC")
	if assert.Len(runs, 6) {
		for i, run := range runs {
			assert.Equal(float64(i), run.Metrics()["score"].Value)
		}
	}

	// Clauses apply in sequence
	runs = search("", "tags.parity DESC", "metrics.score DESC")
	if assert.Len(runs, 6) {
		assert.Equal([]string{"5", "3", "1", "4", "2", "0"}, []string{
			runs[0].Params()["i"], runs[1].Params()["i"], runs[2].Params()["i"],
			runs[3].Params()["i"], runs[4].Params()["i"], runs[5].Params()["i"],
		})
	}
}

func Test_Search_003(t *testing.T) {
	assert := assert.New(t)
	server, client := newTestClient(t)
	ctx := context.Background()

	experiment, err := client.CreateExperiment(ctx, "bounds")
	require.NoError(t, err)
	seeded := seedRuns(t, client, 5, experiment.ID)

	runs, err := client.SearchRuns(ctx, mlflow.SearchRunsRequest{
		ExperimentIDs: []string{experiment.ID},
		OrderBy:       []string{"start_time ASC"},
		MaxResults:    2,
	})
	require.NoError(t, err)
	if assert.Len(runs, 2) {
		assert.Equal(seeded[experiment.ID][0], runs[0].Info.RunID)
		assert.Equal(seeded[experiment.ID][1], runs[1].Info.RunID)
	}

	// Request body carries every field set
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(server.LastRequest().Body, &body))
	assert.Equal([]interface{}{experiment.ID}, body["experiment_ids"])
	assert.Equal([]interface{}{"start_time ASC"}, body["order_by"])
	assert.Equal(float64(2), body["max_results"])
	assert.Equal("ACTIVE_ONLY", body["run_view_type"])
	_, hasFilter := body["filter"]
	assert.False(hasFilter)

	// Deleted runs need a view type
	require.NoError(t, client.DeleteRun(ctx, seeded[experiment.ID][0]))
	runs, err = client.SearchRuns(ctx, mlflow.SearchRunsRequest{ExperimentIDs: []string{experiment.ID}})
	require.NoError(t, err)
	assert.Len(runs, 4)
	runs, err = client.SearchRuns(ctx, mlflow.SearchRunsRequest{ExperimentIDs: []string{experiment.ID}, ViewType: mlflow.ViewDeletedOnly})
	require.NoError(t, err)
	assert.Len(runs, 1)
	runs, err = client.SearchRuns(ctx, mlflow.SearchRunsRequest{ExperimentIDs: []string{experiment.ID}, ViewType: mlflow.ViewAll})
	require.NoError(t, err)
	assert.Len(runs, 5)
}

func Test_Search_004(t *testing.T) {
	assert := assert.New(t)
	server, client := newTestClient(t)
	ctx := context.Background()

	// Malformed filters are rejected by the server
	for _, filter := range []string{
		"metrics.score <",
		"metrics.score > 'high'",
		"params.i = 2",
		"unknown.key = 'x'",
		"tags.parity > 'a'",
	} {
		_, err := client.SearchRuns(ctx, mlflow.SearchRunsRequest{ExperimentIDs: []string{"0"}, Filter: filter})
		assert.ErrorIs(err, mlflow.ErrInvalidArgument, filter)
	}
	assert.Len(server.Requests(), 5)

	// Local checks
	for _, req := range []mlflow.SearchRunsRequest{
		{},
		{ExperimentIDs: []string{""}},
		{ExperimentIDs: []string{"0"}, MaxResults: -1},
		{ExperimentIDs: []string{"0"}, MaxResults: mlflow.MaxSearchResults + 1},
		{ExperimentIDs: []string{"0"}, ViewType: "EVERYTHING"},
	} {
		_, err := client.SearchRuns(ctx, req)
		assert.ErrorIs(err, mlflow.ErrInvalidArgument)
	}
	assert.Len(server.Requests(), 5)

	// No runs is an empty result
	runs, err := client.SearchRuns(ctx, mlflow.SearchRunsRequest{ExperimentIDs: []string{"0"}})
	require.NoError(t, err)
	assert.Empty(runs)
}
