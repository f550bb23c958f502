package mlflow

import (
	"context"
	"time"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// TrackingRun buffers params, tags and metrics locally and writes them to
// the server in one go with Submit. It is not safe for concurrent use.
type TrackingRun struct {
	name      string
	startTime time.Time
	params    []Param
	tags      []Tag
	metrics   []Metric
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewTrackingRun starts buffering a run. The start time is taken now; an
// empty name lets the server pick one.
func NewTrackingRun(name string) *TrackingRun {
	return &TrackingRun{
		name:      name,
		startTime: time.Now(),
	}
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// LogParam buffers a parameter. Params and tags are sent in a single batch
// so their count is bounded by the batch limits.
func (t *TrackingRun) LogParam(key, value string) error {
	if key == "" {
		return newError(ErrInvalidArgument, "", "param key is empty")
	}
	if len(t.params) >= MaxBatchParams {
		return newError(ErrInvalidArgument, "", "only up to %d params can be buffered", MaxBatchParams)
	}
	t.params = append(t.params, Param{Key: key, Value: value})
	return nil
}

// SetTag buffers a tag
func (t *TrackingRun) SetTag(key, value string) error {
	if key == "" {
		return newError(ErrInvalidArgument, "", "tag key is empty")
	}
	if len(t.tags) >= MaxBatchTags {
		return newError(ErrInvalidArgument, "", "only up to %d tags can be buffered", MaxBatchTags)
	}
	t.tags = append(t.tags, Tag{Key: key, Value: value})
	return nil
}

// LogMetric buffers a metric sample stamped with the current time
func (t *TrackingRun) LogMetric(key string, value float64, step int64) {
	t.metrics = append(t.metrics, Metric{
		Key:       key,
		Value:     value,
		Timestamp: time.Now(),
		Step:      step,
	})
}

// Submit creates the run in an experiment, writes the buffered data in
// batches of at most MaxBatchMetrics metrics, marks the run FINISHED and
// returns it as stored by the server.
func (t *TrackingRun) Submit(ctx context.Context, client *Client, experimentID string) (*Run, error) {
	opts := []RunOpt{OptStartTime(t.startTime)}
	if t.name != "" {
		opts = append(opts, OptRunName(t.name))
	}

	run, err := client.CreateRun(ctx, experimentID, opts...)
	if err != nil {
		return nil, err
	}
	id := run.Info.RunID

	if len(t.params) > 0 || len(t.tags) > 0 {
		if err := client.LogBatch(ctx, id, Batch{Params: t.params, Tags: t.tags}); err != nil {
			return nil, err
		}
	}
	for start := 0; start < len(t.metrics); start += MaxBatchMetrics {
		end := start + MaxBatchMetrics
		if end > len(t.metrics) {
			end = len(t.metrics)
		}
		if err := client.LogBatch(ctx, id, Batch{Metrics: t.metrics[start:end]}); err != nil {
			return nil, err
		}
	}

	if _, err := client.TerminateRun(ctx, id, RunStatusFinished, time.Time{}); err != nil {
		return nil, err
	}
	return client.GetRun(ctx, id)
}
