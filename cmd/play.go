package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/imishinist/mlflow-client/pkg/mlflow"
	"github.com/imishinist/mlflow-client/pkg/retry"
)

func (c *cli) playCmd() *cobra.Command {
	playCmd := &cobra.Command{
		Use:   "play",
		Short: "Submit demo runs with random metrics",
		Long: `Submit demo runs to an experiment, creating it when needed.
Every run logs its index as a param and a "rand" metric with one sample per step.
Runs are seeded with their index, so repeated invocations log the same values.`,
		RunE: c.play,
	}
	playCmd.Flags().String("experiment", "My Experiment", "Experiment name")
	playCmd.Flags().Int("runs", 3, "Number of runs")
	playCmd.Flags().Int("steps", 10, "Metric samples per run")
	return playCmd
}

func (c *cli) play(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("experiment")
	runs, _ := cmd.Flags().GetInt("runs")
	steps, _ := cmd.Flags().GetInt("steps")
	if runs < 1 || steps < 0 {
		return fmt.Errorf("--runs must be positive and --steps must not be negative")
	}

	ctx := cmd.Context()
	experiment, err := c.getOrCreateExperiment(ctx, client, name)
	if err != nil {
		return err
	}

	submitted := make([]*mlflow.Run, 0, runs)
	for i := 0; i < runs; i++ {
		tracking := mlflow.NewTrackingRun(fmt.Sprintf("play-%d", i))
		if err := tracking.LogParam("i", strconv.Itoa(i)); err != nil {
			return err
		}
		if err := tracking.LogParam("constant", "42"); err != nil {
			return err
		}
		if err := tracking.SetTag("source", "mlflow-client play"); err != nil {
			return err
		}

		rng := rand.New(rand.NewSource(int64(i)))
		for step := 0; step < steps; step++ {
			tracking.LogMetric("rand", rng.Float64(), int64(step))
		}

		// Submit is not idempotent, so it is never retried
		run, err := tracking.Submit(ctx, client, experiment.ID)
		if err != nil {
			return fmt.Errorf("failed to submit run %d: %w", i, err)
		}
		c.log.WithField("run_id", run.Info.RunID).Debugf("submitted run %d", i)
		submitted = append(submitted, run)
	}

	return c.print(cmd, submitted, func(w io.Writer) {
		fmt.Fprintf(w, "Experiment %s (%s)\n", experiment.Name, experiment.ID)
		for _, run := range submitted {
			fmt.Fprintf(w, "%s\t%s\n", run.Info.RunID, run.Info.RunName)
		}
	})
}

// getOrCreateExperiment looks an experiment up by name, creating it when it
// does not exist yet
func (c *cli) getOrCreateExperiment(ctx context.Context, client *mlflow.Client, name string) (*mlflow.Experiment, error) {
	experiment, err := retry.Value(ctx, func(ctx context.Context) (*mlflow.Experiment, error) {
		return client.GetExperimentByName(ctx, name)
	}, c.retryOpts()...)
	if err == nil {
		return experiment, nil
	}
	if !errors.Is(err, mlflow.ErrNotFound) {
		return nil, fmt.Errorf("failed to get experiment %q: %w", name, err)
	}

	c.log.WithField("name", name).Info("creating experiment")
	experiment, err = client.CreateExperiment(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create experiment %q: %w", name, err)
	}
	return experiment, nil
}
