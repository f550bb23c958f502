package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-client/internal/models"
	"github.com/imishinist/mlflow-client/internal/parser"
	timeutils "github.com/imishinist/mlflow-client/internal/time"
	"github.com/imishinist/mlflow-client/pkg/mlflow"
)

func (c *cli) logMetricCmd() *cobra.Command {
	logMetricCmd := &cobra.Command{
		Use:   "metric",
		Short: "Log a single metric to MLflow run",
		Long:  "Log a single metric to an existing MLflow run",
		RunE:  c.logMetric,
	}

	// Single metric command flags
	logMetricCmd.Flags().String("run-id", "", "Run ID to log metric to (required)")
	logMetricCmd.Flags().String("name", "", "Metric name (required)")
	logMetricCmd.Flags().Float64("value", 0, "Metric value (required)")
	logMetricCmd.Flags().Int64("step", 0, "Step number")
	logMetricCmd.Flags().String("timestamp", "", "Timestamp in ISO8601 format (default: now)")
	logMetricCmd.MarkFlagRequired("run-id")
	logMetricCmd.MarkFlagRequired("name")
	logMetricCmd.MarkFlagRequired("value")
	return logMetricCmd
}

func (c *cli) logMetricsCmd() *cobra.Command {
	logMetricsCmd := &cobra.Command{
		Use:   "metrics",
		Short: "Log multiple metrics to MLflow run",
		Long: `Log multiple metrics from file to an existing MLflow run.
Each row of the file holds an optional timestamp and step plus any number of metric values:

  metrics:
    - timestamp: 2024-01-01T10:00:00Z
      execution_time: 1.5
      error_count: 0`,
		RunE: c.logMetrics,
	}

	// Multiple metrics command flags
	logMetricsCmd.Flags().String("run-id", "", "Run ID to log metrics to (required)")
	logMetricsCmd.Flags().String("from-file", "", "Load metrics from file (JSON/YAML)")
	logMetricsCmd.Flags().String("time-resolution", "", "Time resolution (1m/5m/1h)")
	logMetricsCmd.Flags().String("time-alignment", "", "Time alignment (floor/ceil/round)")
	logMetricsCmd.Flags().String("step-mode", "", "Step mode (auto/timestamp/sequence)")
	logMetricsCmd.MarkFlagRequired("run-id")
	logMetricsCmd.MarkFlagRequired("from-file")
	return logMetricsCmd
}

func (c *cli) logMetric(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	// Parse flags
	runID, _ := cmd.Flags().GetString("run-id")
	name, _ := cmd.Flags().GetString("name")
	value, _ := cmd.Flags().GetFloat64("value")
	step, _ := cmd.Flags().GetInt64("step")
	timestampStr, _ := cmd.Flags().GetString("timestamp")

	// Parse timestamp if provided
	timestamp := time.Now()
	if timestampStr != "" {
		timestamp, err = time.Parse(time.RFC3339, timestampStr)
		if err != nil {
			return fmt.Errorf("invalid timestamp format: %s (expected ISO8601)", timestampStr)
		}
	}

	if err := c.do(cmd.Context(), func(ctx context.Context) error {
		return client.LogMetric(ctx, runID, name, value, timestamp, step)
	}); err != nil {
		return fmt.Errorf("failed to log metric: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Successfully logged metric: %s = %g (step: %d) (timestamp: %s)\n",
		name, value, step, timestamp.Format(time.RFC3339))
	return nil
}

func (c *cli) logMetrics(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	// Parse flags
	runID, _ := cmd.Flags().GetString("run-id")
	fromFile, _ := cmd.Flags().GetString("from-file")
	timeResolution, _ := cmd.Flags().GetString("time-resolution")
	timeAlignment, _ := cmd.Flags().GetString("time-alignment")
	stepMode, _ := cmd.Flags().GetString("step-mode")

	// Use config defaults if not specified
	if timeResolution == "" {
		timeResolution = c.cfg.TimeResolution
	}
	if timeAlignment == "" {
		timeAlignment = c.cfg.TimeAlignment
	}
	if stepMode == "" {
		stepMode = c.cfg.StepMode
	}

	metricsFile, err := readMetricsFile(fromFile)
	if err != nil {
		return err
	}

	// Process metrics with time configuration
	timeConfig := models.TimeConfig{
		Resolution: timeResolution,
		Alignment:  timeAlignment,
		StepMode:   stepMode,
	}

	processedMetrics, err := timeutils.ProcessMetrics(metricsFile.Metrics, timeConfig, nil)
	if err != nil {
		return fmt.Errorf("failed to process metrics: %w", err)
	}

	// Log metrics using batch API for efficiency
	if err := c.logMetricBatches(cmd.Context(), client, runID, processedMetrics); err != nil {
		return fmt.Errorf("failed to log metrics: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Successfully logged %d metrics from %s\n", len(processedMetrics), fromFile)
	fmt.Fprintf(w, "Time configuration: resolution=%s, alignment=%s, step_mode=%s\n",
		timeResolution, timeAlignment, stepMode)

	// Show summary of metrics
	metricCounts := make(map[string]int)
	for _, metric := range processedMetrics {
		metricCounts[metric.Key]++
	}

	fmt.Fprintln(w, "Metrics summary:")
	for _, key := range sortedKeys(metricCounts) {
		fmt.Fprintf(w, "  %s: %d data points\n", key, metricCounts[key])
	}

	return nil
}

func readMetricsFile(path string) (*models.MetricsFile, error) {
	format, err := parser.FormatOf(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	metricsFile, err := parser.ParseMetrics(format, file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metrics file: %w", err)
	}
	return metricsFile, nil
}

// logMetricBatches splits metrics into batches the server accepts
func (c *cli) logMetricBatches(ctx context.Context, client *mlflow.Client, runID string, metrics []mlflow.Metric) error {
	for start := 0; start < len(metrics); start += mlflow.MaxBatchMetrics {
		end := start + mlflow.MaxBatchMetrics
		if end > len(metrics) {
			end = len(metrics)
		}
		batch := mlflow.Batch{Metrics: metrics[start:end]}
		c.log.WithField("run_id", runID).Debugf("logging metrics %d-%d", start, end)
		if err := c.do(ctx, func(ctx context.Context) error {
			return client.LogBatch(ctx, runID, batch)
		}); err != nil {
			return err
		}
	}
	return nil
}
