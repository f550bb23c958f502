package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/imishinist/mlflow-client/pkg/mlflow"
)

// print writes v as JSON or YAML when --output asks for it, and falls back
// to the text renderer otherwise
func (c *cli) print(cmd *cobra.Command, v interface{}, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	switch c.cfg.Output {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	}
	text(w)
	return nil
}

func printExperiment(w io.Writer, e *mlflow.Experiment) {
	fmt.Fprintf(w, "Experiment ID: %s\n", e.ID)
	fmt.Fprintf(w, "Name: %s\n", e.Name)
	fmt.Fprintf(w, "Lifecycle stage: %s\n", e.LifecycleStage)
	if e.ArtifactLocation != "" {
		fmt.Fprintf(w, "Artifact location: %s\n", e.ArtifactLocation)
	}
	if !e.CreationTime.IsZero() {
		fmt.Fprintf(w, "Created: %s\n", e.CreationTime.Format(time.RFC3339))
	}
	if len(e.Tags) > 0 {
		fmt.Fprintln(w, "Tags:")
		for _, tag := range e.Tags {
			fmt.Fprintf(w, "  %s: %s\n", tag.Key, tag.Value)
		}
	}
}

func printRun(w io.Writer, run *mlflow.Run) {
	fmt.Fprintf(w, "Run ID: %s\n", run.Info.RunID)
	if run.Info.RunName != "" {
		fmt.Fprintf(w, "Name: %s\n", run.Info.RunName)
	}
	fmt.Fprintf(w, "Experiment ID: %s\n", run.Info.ExperimentID)
	fmt.Fprintf(w, "Status: %s\n", run.Info.Status)
	fmt.Fprintf(w, "Lifecycle stage: %s\n", run.Info.LifecycleStage)
	if !run.Info.StartTime.IsZero() {
		fmt.Fprintf(w, "Start time: %s\n", run.Info.StartTime.Format(time.RFC3339))
	}
	if run.Info.EndTime != nil {
		fmt.Fprintf(w, "End time: %s\n", run.Info.EndTime.Format(time.RFC3339))
	}

	printSection(w, "Params", run.Params())
	printSection(w, "Tags", run.Tags())

	metrics := run.Metrics()
	if len(metrics) > 0 {
		fmt.Fprintln(w, "Metrics:")
		for _, key := range sortedKeys(metrics) {
			metric := metrics[key]
			fmt.Fprintf(w, "  %s: %g (step: %d)\n", key, metric.Value, metric.Step)
		}
	}
}

func printSection(w io.Writer, title string, values map[string]string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, key := range sortedKeys(values) {
		fmt.Fprintf(w, "  %s: %s\n", key, values[key])
	}
}

// printRunTable prints one line per run, tab separated
func printRunTable(w io.Writer, runs []mlflow.Run) {
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			run.Info.RunID, run.Info.Status, run.Info.StartTime.Format(time.RFC3339), run.Info.RunName)
	}
}

func printExperimentTable(w io.Writer, experiments []mlflow.Experiment) {
	for _, e := range experiments {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, e.LifecycleStage, e.Name)
	}
}

func printMetricHistory(w io.Writer, metrics []mlflow.Metric) {
	for _, m := range metrics {
		fmt.Fprintf(w, "%d\t%s\t%g\n", m.Step, m.Timestamp.Format(time.RFC3339), m.Value)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// processEscapeSequences processes common escape sequences in strings
func processEscapeSequences(s string) string {
	// Replace common escape sequences
	s = strings.ReplaceAll(s, "\\n", "\n")
	s = strings.ReplaceAll(s, "\\t", "\t")
	s = strings.ReplaceAll(s, "\\r", "\r")
	s = strings.ReplaceAll(s, "\\\\", "\\")
	return s
}
