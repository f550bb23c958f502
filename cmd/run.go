package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-client/internal/models"
	"github.com/imishinist/mlflow-client/internal/parser"
	"github.com/imishinist/mlflow-client/pkg/mlflow"
	"github.com/imishinist/mlflow-client/pkg/retry"
)

// Valid run statuses
var validRunStatuses = map[string]mlflow.RunStatus{
	"FINISHED": mlflow.RunStatusFinished,
	"FAILED":   mlflow.RunStatusFailed,
	"KILLED":   mlflow.RunStatusKilled,
}

func (c *cli) runCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Manage MLflow runs",
		Long:  "Create, update, and manage MLflow runs",
	}

	runStartCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new MLflow run",
		Long:  "Create and start a new MLflow run",
		RunE:  c.runStart,
	}
	runStartCmd.Flags().String("run-name", "", "Run name (default: timestamp-based)")
	runStartCmd.Flags().StringArray("tag", []string{}, "Tags in key=value format")
	runStartCmd.Flags().String("description", "", "Run description")

	runEndCmd := &cobra.Command{
		Use:   "end",
		Short: "End an MLflow run",
		Long:  "End an existing MLflow run",
		RunE:  c.runEnd,
	}
	runEndCmd.Flags().String("run-id", "", "Run ID to end (required)")
	runEndCmd.Flags().String("status", "FINISHED", "End status (FINISHED/FAILED/KILLED)")
	runEndCmd.MarkFlagRequired("run-id")

	runGetCmd := &cobra.Command{
		Use:   "get RUN_ID",
		Short: "Show a run with its params, tags and latest metrics",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runGet,
	}

	runDeleteCmd := &cobra.Command{
		Use:   "delete RUN_ID",
		Short: "Mark a run as deleted",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runDelete,
	}

	runRestoreCmd := &cobra.Command{
		Use:   "restore RUN_ID",
		Short: "Restore a deleted run",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runRestore,
	}

	runSearchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search runs of one or more experiments",
		Long: `Search runs with an MLflow filter expression, for example:

  mlflow-client run search --experiment-id 1 \
    --filter "metrics.rmse < 1 AND params.model = 'tree'" --order-by "metrics.rmse ASC"`,
		RunE: c.runSearch,
	}
	runSearchCmd.Flags().StringArray("in", []string{}, "Additional experiment IDs to search")
	runSearchCmd.Flags().String("filter", "", "Filter expression")
	runSearchCmd.Flags().StringArray("order-by", []string{}, "Order by clause, e.g. \"metrics.rmse ASC\"")
	runSearchCmd.Flags().Int("max-results", 0, "Maximum number of runs (0 for the server default)")
	runSearchCmd.Flags().String("view", string(mlflow.ViewActiveOnly), "ACTIVE_ONLY, DELETED_ONLY or ALL")

	runHistoryCmd := &cobra.Command{
		Use:   "history",
		Short: "Show every sample of a metric",
		RunE:  c.runHistory,
	}
	runHistoryCmd.Flags().String("run-id", "", "Run ID (required)")
	runHistoryCmd.Flags().String("name", "", "Metric name (required)")
	runHistoryCmd.MarkFlagRequired("run-id")
	runHistoryCmd.MarkFlagRequired("name")

	runCmd.AddCommand(runStartCmd, runEndCmd, runGetCmd, runDeleteCmd, runRestoreCmd, runSearchCmd, runHistoryCmd)
	return runCmd
}

func (c *cli) runStart(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	runConfig, err := c.buildRunConfig(cmd)
	if err != nil {
		return err
	}

	// Create run
	opts := runConfig.RunOpts(time.Now())
	run, err := retry.Value(cmd.Context(), func(ctx context.Context) (*mlflow.Run, error) {
		return client.CreateRun(ctx, runConfig.ExperimentID, opts...)
	}, c.retryOpts()...)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	// Output only run ID for shell scripting
	return c.print(cmd, run, func(w io.Writer) {
		fmt.Fprintf(w, "%s\n", run.Info.RunID)
	})
}

// buildRunConfig constructs RunConfig from command flags and configuration
func (c *cli) buildRunConfig(cmd *cobra.Command) (*models.RunConfig, error) {
	// Parse flags
	runName, _ := cmd.Flags().GetString("run-name")
	tags, _ := cmd.Flags().GetStringArray("tag")
	description, _ := cmd.Flags().GetString("description")

	experimentID, err := c.experimentID()
	if err != nil {
		return nil, err
	}

	// Parse tags
	tagMap, err := parser.ParseKeyValues(tags)
	if err != nil {
		return nil, err
	}

	// Build run config
	runConfig := &models.RunConfig{
		ExperimentID: experimentID,
		Tags:         tagMap,
	}

	if runName != "" {
		runConfig.RunName = &runName
	}

	if description != "" {
		// Process escape sequences in description
		processedDescription := processEscapeSequences(description)
		runConfig.Description = &processedDescription
	}

	return runConfig, nil
}

func (c *cli) runEnd(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	// Parse flags
	runID, _ := cmd.Flags().GetString("run-id")
	status, _ := cmd.Flags().GetString("status")

	// Validate status
	runStatus, valid := validRunStatuses[strings.ToUpper(status)]
	if !valid {
		return fmt.Errorf("invalid status: %s (valid: FINISHED, FAILED, KILLED)", status)
	}

	// Update run
	info, err := retry.Value(cmd.Context(), func(ctx context.Context) (*mlflow.RunInfo, error) {
		return client.Run(runID).Terminate(ctx, runStatus, time.Now())
	}, c.retryOpts()...)
	if err != nil {
		return fmt.Errorf("failed to end run: %w", err)
	}

	return c.print(cmd, info, func(w io.Writer) {
		fmt.Fprintf(w, "Run ended successfully\n")
		fmt.Fprintf(w, "Run ID: %s\n", runID)
		fmt.Fprintf(w, "Status: %s\n", info.Status)
	})
}

func (c *cli) runGet(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	run, err := retry.Value(cmd.Context(), client.Run(args[0]).Get, c.retryOpts()...)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	return c.print(cmd, run, func(w io.Writer) {
		printRun(w, run)
	})
}

func (c *cli) runDelete(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	if err := c.do(cmd.Context(), client.Run(args[0]).Delete); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s deleted\n", args[0])
	return nil
}

func (c *cli) runRestore(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	if err := c.do(cmd.Context(), func(ctx context.Context) error {
		return client.RestoreRun(ctx, args[0])
	}); err != nil {
		return fmt.Errorf("failed to restore run: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s restored\n", args[0])
	return nil
}

func (c *cli) runSearch(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	experimentID, err := c.experimentID()
	if err != nil {
		return err
	}
	more, _ := cmd.Flags().GetStringArray("in")
	filter, _ := cmd.Flags().GetString("filter")
	orderBy, _ := cmd.Flags().GetStringArray("order-by")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	view, _ := cmd.Flags().GetString("view")

	request := mlflow.SearchRunsRequest{
		ExperimentIDs: append([]string{experimentID}, more...),
		Filter:        filter,
		OrderBy:       orderBy,
		MaxResults:    maxResults,
		ViewType:      mlflow.ViewType(view),
	}
	runs, err := retry.Value(cmd.Context(), func(ctx context.Context) ([]mlflow.Run, error) {
		return client.SearchRuns(ctx, request)
	}, c.retryOpts()...)
	if err != nil {
		return fmt.Errorf("failed to search runs: %w", err)
	}

	return c.print(cmd, runs, func(w io.Writer) {
		printRunTable(w, runs)
	})
}

func (c *cli) runHistory(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	runID, _ := cmd.Flags().GetString("run-id")
	name, _ := cmd.Flags().GetString("name")

	metrics, err := retry.Value(cmd.Context(), func(ctx context.Context) ([]mlflow.Metric, error) {
		return client.Run(runID).MetricHistory(ctx, name)
	}, c.retryOpts()...)
	if err != nil {
		return fmt.Errorf("failed to get metric history: %w", err)
	}

	return c.print(cmd, metrics, func(w io.Writer) {
		printMetricHistory(w, metrics)
	})
}
