package mlflow

import (
	"context"
	"net/url"
	"time"
)

type logMetricRequest struct {
	RunID     string        `json:"run_id"`
	Key       string        `json:"key"`
	Value     float64String `json:"value"`
	Timestamp int64         `json:"timestamp"`
	Step      int64         `json:"step"`
}

type metricHistoryResponse struct {
	Metrics []wireMetric `json:"metrics"`
}

// LogMetric appends a sample to a metric. Samples are never overwritten, so
// repeating a (key, step) pair adds another sample. A zero timestamp means now.
func (c *Client) LogMetric(ctx context.Context, runID, key string, value float64, timestamp time.Time, step int64) error {
	if runID == "" || key == "" {
		return newError(ErrInvalidArgument, epLogMetric.path, "run id and key are required")
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return c.post(ctx, epLogMetric, logMetricRequest{
		RunID:     runID,
		Key:       key,
		Value:     float64String(value),
		Timestamp: toMillis(timestamp),
		Step:      step,
	}, nil)
}

// LogMetrics logs samples one request at a time, in order
func (c *Client) LogMetrics(ctx context.Context, runID string, metrics []Metric) error {
	for _, metric := range metrics {
		if err := c.LogMetric(ctx, runID, metric.Key, metric.Value, metric.Timestamp, metric.Step); err != nil {
			return err
		}
	}
	return nil
}

// GetMetricHistory returns every sample logged for a metric, in logging order
func (c *Client) GetMetricHistory(ctx context.Context, runID, key string) ([]Metric, error) {
	if runID == "" || key == "" {
		return nil, newError(ErrInvalidArgument, epGetMetricHistory.path, "run id and key are required")
	}

	var response metricHistoryResponse
	if err := c.get(ctx, epGetMetricHistory, url.Values{
		"run_id":     {runID},
		"metric_key": {key},
	}, &response); err != nil {
		return nil, err
	}

	metrics := fromWireMetrics(response.Metrics)
	if metrics == nil {
		metrics = []Metric{}
	}
	return metrics, nil
}
