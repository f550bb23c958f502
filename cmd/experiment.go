package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-client/internal/parser"
	"github.com/imishinist/mlflow-client/pkg/mlflow"
	"github.com/imishinist/mlflow-client/pkg/retry"
)

func (c *cli) experimentCmd() *cobra.Command {
	experimentCmd := &cobra.Command{
		Use:   "experiment",
		Short: "Manage MLflow experiments",
		Long:  "Create, inspect, rename, delete and search MLflow experiments",
	}

	createCmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an experiment",
		Args:  cobra.ExactArgs(1),
		RunE:  c.experimentCreate,
	}
	createCmd.Flags().String("artifact-location", "", "Artifact root for the experiment's runs")
	createCmd.Flags().StringArray("tag", []string{}, "Tags in key=value format")
	createCmd.Flags().Bool("get-existing", false, "Return the existing experiment if the name is taken")

	getCmd := &cobra.Command{
		Use:   "get [ID]",
		Short: "Show an experiment by ID or name",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.experimentGet,
	}
	getCmd.Flags().String("name", "", "Look the experiment up by name")

	renameCmd := &cobra.Command{
		Use:   "rename ID NEW_NAME",
		Short: "Rename an experiment",
		Args:  cobra.ExactArgs(2),
		RunE:  c.experimentRename,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Mark an experiment as deleted",
		Args:  cobra.ExactArgs(1),
		RunE:  c.experimentDelete,
	}

	restoreCmd := &cobra.Command{
		Use:   "restore ID",
		Short: "Restore a deleted experiment",
		Args:  cobra.ExactArgs(1),
		RunE:  c.experimentRestore,
	}

	setTagCmd := &cobra.Command{
		Use:   "set-tag ID KEY=VALUE...",
		Short: "Set experiment tags",
		Args:  cobra.MinimumNArgs(2),
		RunE:  c.experimentSetTag,
	}

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search experiments",
		RunE:  c.experimentSearch,
	}
	searchCmd.Flags().String("filter", "", "Filter expression, e.g. \"name LIKE 'prod-%'\"")
	searchCmd.Flags().StringArray("order-by", []string{}, "Order by clause, e.g. \"name ASC\"")
	searchCmd.Flags().Int("max-results", 0, "Maximum number of experiments (0 for the server default)")
	searchCmd.Flags().String("view", string(mlflow.ViewActiveOnly), "ACTIVE_ONLY, DELETED_ONLY or ALL")

	experimentCmd.AddCommand(createCmd, getCmd, renameCmd, deleteCmd, restoreCmd, setTagCmd, searchCmd)
	return experimentCmd
}

func (c *cli) experimentCreate(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	name := args[0]
	artifactLocation, _ := cmd.Flags().GetString("artifact-location")
	tags, _ := cmd.Flags().GetStringArray("tag")
	getExisting, _ := cmd.Flags().GetBool("get-existing")

	tagMap, err := parser.ParseKeyValues(tags)
	if err != nil {
		return err
	}

	var opts []mlflow.ExperimentOpt
	if artifactLocation != "" {
		opts = append(opts, mlflow.OptArtifactLocation(artifactLocation))
	}
	for _, key := range sortedKeys(tagMap) {
		opts = append(opts, mlflow.OptExperimentTag(key, tagMap[key]))
	}

	ctx := cmd.Context()
	experiment, err := retry.Value(ctx, func(ctx context.Context) (*mlflow.Experiment, error) {
		return client.CreateExperiment(ctx, name, opts...)
	}, c.retryOpts()...)
	if errors.Is(err, mlflow.ErrConflict) && getExisting {
		c.log.WithField("name", name).Debug("experiment exists")
		experiment, err = retry.Value(ctx, func(ctx context.Context) (*mlflow.Experiment, error) {
			return client.GetExperimentByName(ctx, name)
		}, c.retryOpts()...)
	}
	if err != nil {
		return fmt.Errorf("failed to create experiment: %w", err)
	}

	// Output only the experiment ID for shell scripting
	return c.print(cmd, experiment, func(w io.Writer) {
		fmt.Fprintln(w, experiment.ID)
	})
}

func (c *cli) experimentGet(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	if (len(args) == 0) == (name == "") {
		return fmt.Errorf("either an experiment ID or --name must be specified")
	}

	experiment, err := retry.Value(cmd.Context(), func(ctx context.Context) (*mlflow.Experiment, error) {
		if name != "" {
			return client.GetExperimentByName(ctx, name)
		}
		return client.GetExperiment(ctx, args[0])
	}, c.retryOpts()...)
	if err != nil {
		return fmt.Errorf("failed to get experiment: %w", err)
	}

	return c.print(cmd, experiment, func(w io.Writer) {
		printExperiment(w, experiment)
	})
}

func (c *cli) experimentRename(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	if err := c.do(cmd.Context(), func(ctx context.Context) error {
		return client.Experiment(args[0]).Rename(ctx, args[1])
	}); err != nil {
		return fmt.Errorf("failed to rename experiment: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Experiment %s renamed to %s\n", args[0], args[1])
	return nil
}

func (c *cli) experimentDelete(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	if err := c.do(cmd.Context(), func(ctx context.Context) error {
		return client.Experiment(args[0]).Delete(ctx)
	}); err != nil {
		return fmt.Errorf("failed to delete experiment: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Experiment %s deleted\n", args[0])
	return nil
}

func (c *cli) experimentRestore(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	if err := c.do(cmd.Context(), func(ctx context.Context) error {
		return client.Experiment(args[0]).Restore(ctx)
	}); err != nil {
		return fmt.Errorf("failed to restore experiment: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Experiment %s restored\n", args[0])
	return nil
}

func (c *cli) experimentSetTag(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	tags, err := parser.ParseKeyValues(args[1:])
	if err != nil {
		return err
	}

	experiment := client.Experiment(args[0])
	for _, key := range sortedKeys(tags) {
		if err := c.do(cmd.Context(), func(ctx context.Context) error {
			return experiment.SetTag(ctx, key, tags[key])
		}); err != nil {
			return fmt.Errorf("failed to set tag %s: %w", key, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Successfully set %d tags\n", len(tags))
	return nil
}

func (c *cli) experimentSearch(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	filter, _ := cmd.Flags().GetString("filter")
	orderBy, _ := cmd.Flags().GetStringArray("order-by")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	view, _ := cmd.Flags().GetString("view")

	experiments, err := retry.Value(cmd.Context(), func(ctx context.Context) ([]mlflow.Experiment, error) {
		return client.SearchExperiments(ctx, mlflow.SearchExperimentsRequest{
			Filter:     filter,
			OrderBy:    orderBy,
			MaxResults: maxResults,
			ViewType:   mlflow.ViewType(view),
		})
	}, c.retryOpts()...)
	if err != nil {
		return fmt.Errorf("failed to search experiments: %w", err)
	}

	return c.print(cmd, experiments, func(w io.Writer) {
		printExperimentTable(w, experiments)
	})
}
