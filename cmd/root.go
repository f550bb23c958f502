package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	log "github.com/sirupsen/logrus"

	"github.com/imishinist/mlflow-client/internal/config"
	"github.com/imishinist/mlflow-client/pkg/retry"
)

// cli carries the state shared by all commands of one invocation
type cli struct {
	v   *viper.Viper
	log *log.Logger
	cfg *config.Config
}

// NewRootCmd builds the command tree with its own configuration
func NewRootCmd() *cobra.Command {
	c := &cli{
		v:   viper.New(),
		log: log.New(),
	}

	rootCmd := &cobra.Command{
		Use:   "mlflow-client",
		Short: "MLflow Tracking CLI Tool",
		Long: `A command line tool for MLflow tracking operations.
Manages experiments and runs, and logs parameters, metrics and tags to an MLflow tracking server.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.initConfig,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.String("tracking-uri", "", "MLflow tracking URI (overrides MLFLOW_TRACKING_URI)")
	flags.String("experiment-id", "", "Experiment ID (overrides MLFLOW_EXPERIMENT_ID)")
	flags.Duration("timeout", 0, "Per-request timeout (overrides MLFLOW_TIMEOUT)")
	flags.Uint("retries", 0, "Retries for transport and server errors (overrides MLFLOW_RETRIES)")
	flags.StringP("output", "o", "", "Output format: text, json or yaml")
	flags.BoolP("verbose", "v", false, "Log every request")
	c.v.BindPFlag("tracking_uri", flags.Lookup("tracking-uri"))
	c.v.BindPFlag("experiment_id", flags.Lookup("experiment-id"))
	c.v.BindPFlag("timeout", flags.Lookup("timeout"))
	c.v.BindPFlag("retries", flags.Lookup("retries"))
	c.v.BindPFlag("output", flags.Lookup("output"))
	c.v.BindPFlag("verbose", flags.Lookup("verbose"))

	rootCmd.AddCommand(
		c.experimentCmd(),
		c.runCmd(),
		c.logCmd(),
		c.playCmd(),
	)
	return rootCmd
}

func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

func (c *cli) initConfig(cmd *cobra.Command, args []string) error {
	// Environment variables
	c.v.SetEnvPrefix("MLFLOW")
	c.v.AutomaticEnv()

	// Also bind Databricks environment variables
	c.v.BindEnv("databricks_host", "DATABRICKS_HOST")
	c.v.BindEnv("databricks_token", "DATABRICKS_TOKEN")

	config.SetDefaults(c.v)

	c.cfg = config.NewFrom(c.v)
	if err := c.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	c.log.SetOutput(cmd.ErrOrStderr())
	c.log.SetLevel(log.WarnLevel)
	if c.cfg.Verbose {
		c.log.SetLevel(log.DebugLevel)
	}
	if os.Getenv("MLFLOW_LOG_JSON") != "" {
		c.log.SetFormatter(&log.JSONFormatter{})
	}
	return nil
}

// retryOpts turns --retries into a retry policy
func (c *cli) retryOpts() []retry.Opt {
	return []retry.Opt{
		retry.OptAttempts(c.cfg.Retries + 1),
		retry.OptDelay(100 * time.Millisecond),
		retry.OptLogger(c.log),
	}
}

// do runs an MLflow call under the retry policy
func (c *cli) do(ctx context.Context, fn func(context.Context) error) error {
	return retry.Do(ctx, fn, c.retryOpts()...)
}

// experimentID is taken from --experiment-id or MLFLOW_EXPERIMENT_ID
func (c *cli) experimentID() (string, error) {
	experimentID := c.cfg.ExperimentID
	if experimentID == "" {
		return "", fmt.Errorf("experiment ID must be specified via --experiment-id flag or MLFLOW_EXPERIMENT_ID environment variable")
	}
	return experimentID, nil
}
