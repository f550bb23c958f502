package mlflow

import (
	"context"
	"time"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// ExperimentHandle binds a client to an experiment id. Every method forwards
// to the Client with the id filled in.
type ExperimentHandle struct {
	client *Client
	id     string
}

// RunHandle binds a client to a run id. Every method forwards to the Client
// with the id filled in.
type RunHandle struct {
	client *Client
	id     string
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func (c *Client) Experiment(id string) *ExperimentHandle {
	return &ExperimentHandle{client: c, id: id}
}

func (c *Client) Run(id string) *RunHandle {
	return &RunHandle{client: c, id: id}
}

///////////////////////////////////////////////////////////////////////////////
// EXPERIMENT

func (e *ExperimentHandle) ID() string {
	return e.id
}

func (e *ExperimentHandle) Get(ctx context.Context) (*Experiment, error) {
	return e.client.GetExperiment(ctx, e.id)
}

func (e *ExperimentHandle) Update(ctx context.Context, update ExperimentUpdate) error {
	return e.client.UpdateExperiment(ctx, e.id, update)
}

func (e *ExperimentHandle) Rename(ctx context.Context, name string) error {
	return e.client.UpdateExperiment(ctx, e.id, ExperimentUpdate{NewName: &name})
}

func (e *ExperimentHandle) Delete(ctx context.Context) error {
	return e.client.DeleteExperiment(ctx, e.id)
}

func (e *ExperimentHandle) Restore(ctx context.Context) error {
	return e.client.RestoreExperiment(ctx, e.id)
}

func (e *ExperimentHandle) SetTag(ctx context.Context, key, value string) error {
	return e.client.SetExperimentTag(ctx, e.id, key, value)
}

// CreateRun starts a run in the experiment and returns a handle to it
func (e *ExperimentHandle) CreateRun(ctx context.Context, opts ...RunOpt) (*RunHandle, *Run, error) {
	run, err := e.client.CreateRun(ctx, e.id, opts...)
	if err != nil {
		return nil, nil, err
	}
	return e.client.Run(run.Info.RunID), run, nil
}

// SearchRuns searches this experiment only; ExperimentIDs in req is replaced
func (e *ExperimentHandle) SearchRuns(ctx context.Context, req SearchRunsRequest) ([]Run, error) {
	req.ExperimentIDs = []string{e.id}
	return e.client.SearchRuns(ctx, req)
}

///////////////////////////////////////////////////////////////////////////////
// RUN

func (r *RunHandle) ID() string {
	return r.id
}

func (r *RunHandle) Get(ctx context.Context) (*Run, error) {
	return r.client.GetRun(ctx, r.id)
}

func (r *RunHandle) Update(ctx context.Context, update RunUpdate) (*RunInfo, error) {
	return r.client.UpdateRun(ctx, r.id, update)
}

func (r *RunHandle) Delete(ctx context.Context) error {
	return r.client.DeleteRun(ctx, r.id)
}

func (r *RunHandle) LogParam(ctx context.Context, key, value string) error {
	return r.client.LogParam(ctx, r.id, key, value)
}

func (r *RunHandle) LogMetric(ctx context.Context, key string, value float64, timestamp time.Time, step int64) error {
	return r.client.LogMetric(ctx, r.id, key, value, timestamp, step)
}

func (r *RunHandle) SetTag(ctx context.Context, key, value string) error {
	return r.client.SetTag(ctx, r.id, key, value)
}

func (r *RunHandle) DeleteTag(ctx context.Context, key string) error {
	return r.client.DeleteTag(ctx, r.id, key)
}

func (r *RunHandle) LogBatch(ctx context.Context, batch Batch) error {
	return r.client.LogBatch(ctx, r.id, batch)
}

func (r *RunHandle) MetricHistory(ctx context.Context, key string) ([]Metric, error) {
	return r.client.GetMetricHistory(ctx, r.id, key)
}

// Terminate ends the run; see Client.TerminateRun for defaults
func (r *RunHandle) Terminate(ctx context.Context, status RunStatus, end time.Time) (*RunInfo, error) {
	return r.client.TerminateRun(ctx, r.id, status, end)
}
