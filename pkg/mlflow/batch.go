package mlflow

import (
	"context"
	"fmt"
	"time"

	// Packages
	multierror "github.com/hashicorp/go-multierror"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Batch groups metrics, params and tags written in a single request
type Batch struct {
	Metrics []Metric
	Params  []Param
	Tags    []Tag
}

type logBatchRequest struct {
	RunID   string       `json:"run_id"`
	Metrics []wireMetric `json:"metrics,omitempty"`
	Params  []wireParam  `json:"params,omitempty"`
	Tags    []wireTag    `json:"tags,omitempty"`
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Limits enforced by the tracking server on runs/log-batch
const (
	MaxBatchMetrics = 1000
	MaxBatchParams  = 100
	MaxBatchTags    = 100
	MaxBatchItems   = 1000
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Len returns the number of items in the batch
func (b Batch) Len() int {
	return len(b.Metrics) + len(b.Params) + len(b.Tags)
}

// Validate checks the batch against the server limits and reports every
// violated limit
func (b Batch) Validate() error {
	var result *multierror.Error
	if n := len(b.Metrics); n > MaxBatchMetrics {
		result = multierror.Append(result, fmt.Errorf("only up to %d metrics can be logged at once, found %d", MaxBatchMetrics, n))
	}
	if n := len(b.Params); n > MaxBatchParams {
		result = multierror.Append(result, fmt.Errorf("only up to %d params can be logged at once, found %d", MaxBatchParams, n))
	}
	if n := len(b.Tags); n > MaxBatchTags {
		result = multierror.Append(result, fmt.Errorf("only up to %d tags can be logged at once, found %d", MaxBatchTags, n))
	}
	if n := b.Len(); n > MaxBatchItems {
		result = multierror.Append(result, fmt.Errorf("only up to %d items can be logged at once, found %d", MaxBatchItems, n))
	}
	for _, metric := range b.Metrics {
		if metric.Key == "" {
			result = multierror.Append(result, fmt.Errorf("metric key is empty"))
			break
		}
	}
	for _, param := range b.Params {
		if param.Key == "" {
			result = multierror.Append(result, fmt.Errorf("param key is empty"))
			break
		}
	}
	for _, tag := range b.Tags {
		if tag.Key == "" {
			result = multierror.Append(result, fmt.Errorf("tag key is empty"))
			break
		}
	}
	return result.ErrorOrNil()
}

// LogBatch writes metrics, params and tags in one request. Params keep their
// write-once semantics; metric samples with a zero timestamp are stamped now.
func (c *Client) LogBatch(ctx context.Context, runID string, batch Batch) error {
	if runID == "" {
		return newError(ErrInvalidArgument, epLogBatch.path, "run id is required")
	}
	if err := batch.Validate(); err != nil {
		return wrapError(ErrInvalidArgument, epLogBatch.path, err)
	}

	request := logBatchRequest{
		RunID:  runID,
		Params: toWireParams(batch.Params),
		Tags:   toWireTags(batch.Tags),
	}
	if len(batch.Metrics) > 0 {
		now := time.Now()
		request.Metrics = make([]wireMetric, 0, len(batch.Metrics))
		for _, metric := range batch.Metrics {
			if metric.Timestamp.IsZero() {
				metric.Timestamp = now
			}
			request.Metrics = append(request.Metrics, toWireMetric(metric))
		}
	}

	return refineParamConflict(c.post(ctx, epLogBatch, request, nil))
}
