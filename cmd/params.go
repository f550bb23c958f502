package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-client/internal/parser"
	"github.com/imishinist/mlflow-client/pkg/mlflow"
)

func (c *cli) logCmd() *cobra.Command {
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Log parameters, metrics, and tags",
		Long:  "Log parameters, metrics, and tags to MLflow runs",
	}

	logParamsCmd := &cobra.Command{
		Use:   "params",
		Short: "Log parameters to MLflow run",
		Long: `Log parameters to an existing MLflow run.
Parameters are write-once: logging a different value for an existing key fails.`,
		RunE: c.logParams,
	}
	logParamsCmd.Flags().String("run-id", "", "Run ID to log parameters to (required)")
	logParamsCmd.Flags().StringArray("param", []string{}, "Parameters in key=value format")
	logParamsCmd.Flags().String("from-file", "", "Load parameters from file (JSON/YAML)")
	logParamsCmd.MarkFlagRequired("run-id")

	logTagCmd := &cobra.Command{
		Use:   "tag",
		Short: "Set or delete run tags",
		RunE:  c.logTag,
	}
	logTagCmd.Flags().String("run-id", "", "Run ID (required)")
	logTagCmd.Flags().StringArray("tag", []string{}, "Tags in key=value format")
	logTagCmd.Flags().StringArray("delete", []string{}, "Tag keys to delete")
	logTagCmd.MarkFlagRequired("run-id")

	logCmd.AddCommand(logParamsCmd, logTagCmd, c.logMetricCmd(), c.logMetricsCmd())
	return logCmd
}

func (c *cli) logParams(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	// Parse flags
	runID, _ := cmd.Flags().GetString("run-id")
	params, _ := cmd.Flags().GetStringArray("param")
	fromFile, _ := cmd.Flags().GetString("from-file")

	if len(params) == 0 && fromFile == "" {
		return fmt.Errorf("either --param or --from-file must be specified")
	}

	w := cmd.OutOrStdout()

	// Log parameters from command line
	if len(params) > 0 {
		paramMap, err := parser.ParseKeyValues(params)
		if err != nil {
			return err
		}

		if err := c.logParamMap(cmd.Context(), client, runID, paramMap); err != nil {
			return fmt.Errorf("failed to log parameters: %w", err)
		}

		fmt.Fprintf(w, "Successfully logged %d parameters\n", len(paramMap))
		printParams(w, paramMap)
	}

	// Log parameters from file
	if fromFile != "" {
		paramMap, err := readParamsFile(fromFile)
		if err != nil {
			return err
		}

		if err := c.logParamMap(cmd.Context(), client, runID, paramMap); err != nil {
			return fmt.Errorf("failed to log parameters from file: %w", err)
		}

		fmt.Fprintf(w, "Successfully logged %d parameters from %s\n", len(paramMap), fromFile)
		printParams(w, paramMap)
	}

	return nil
}

// logParamMap sends the params in one batch when they fit, which makes the
// write atomic on the server
func (c *cli) logParamMap(ctx context.Context, client *mlflow.Client, runID string, params map[string]string) error {
	if len(params) > mlflow.MaxBatchParams {
		return c.do(ctx, func(ctx context.Context) error {
			return client.LogParams(ctx, runID, params)
		})
	}

	batch := mlflow.Batch{Params: make([]mlflow.Param, 0, len(params))}
	for _, key := range sortedKeys(params) {
		batch.Params = append(batch.Params, mlflow.Param{Key: key, Value: params[key]})
	}
	return c.do(ctx, func(ctx context.Context) error {
		return client.LogBatch(ctx, runID, batch)
	})
}

func readParamsFile(path string) (map[string]string, error) {
	format, err := parser.FormatOf(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	params, err := parser.ParseParams(format, file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse parameters file: %w", err)
	}
	return params, nil
}

func printParams(w io.Writer, params map[string]string) {
	for _, key := range sortedKeys(params) {
		fmt.Fprintf(w, "  %s: %s\n", key, params[key])
	}
}

func (c *cli) logTag(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	runID, _ := cmd.Flags().GetString("run-id")
	tags, _ := cmd.Flags().GetStringArray("tag")
	deletes, _ := cmd.Flags().GetStringArray("delete")

	if len(tags) == 0 && len(deletes) == 0 {
		return fmt.Errorf("either --tag or --delete must be specified")
	}

	tagMap, err := parser.ParseKeyValues(tags)
	if err != nil {
		return err
	}

	run := client.Run(runID)
	for _, key := range sortedKeys(tagMap) {
		if err := c.do(cmd.Context(), func(ctx context.Context) error {
			return run.SetTag(ctx, key, tagMap[key])
		}); err != nil {
			return fmt.Errorf("failed to set tag %s: %w", key, err)
		}
	}
	for _, key := range deletes {
		if err := c.do(cmd.Context(), func(ctx context.Context) error {
			return run.DeleteTag(ctx, key)
		}); err != nil {
			return fmt.Errorf("failed to delete tag %s: %w", key, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Successfully set %d tags and deleted %d tags\n", len(tagMap), len(deletes))
	return nil
}
