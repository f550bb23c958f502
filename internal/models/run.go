package models

import (
	"sort"
	"time"

	"github.com/imishinist/mlflow-client/pkg/mlflow"
)

// RunConfig collects the options of a new run from flags and config
type RunConfig struct {
	ExperimentID string            `json:"experiment_id"`
	RunName      *string           `json:"run_name,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
	Description  *string           `json:"description,omitempty"`
}

// DefaultRunName names runs after their start time
func DefaultRunName(t time.Time) string {
	return "run-" + t.Format("2006-01-02-15-04-05")
}

// RunOpts converts the config into create options. Tags are applied in
// key order; the run name defaults to DefaultRunName(start).
func (r *RunConfig) RunOpts(start time.Time) []mlflow.RunOpt {
	runName := DefaultRunName(start)
	if r.RunName != nil {
		runName = *r.RunName
	}

	opts := []mlflow.RunOpt{
		mlflow.OptStartTime(start),
		mlflow.OptRunName(runName),
	}

	keys := make([]string, 0, len(r.Tags))
	for key := range r.Tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		opts = append(opts, mlflow.OptRunTag(key, r.Tags[key]))
	}

	if r.Description != nil {
		opts = append(opts, mlflow.OptRunDescription(*r.Description))
	}
	return opts
}
