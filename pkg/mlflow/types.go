package mlflow

import (
	"time"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type LifecycleStage string

type RunStatus string

// ViewType selects active, deleted or all entities in search calls
type ViewType string

type Tag struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

type Param struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Metric is a single sample of a metric time series
type Metric struct {
	Key       string    `json:"key" yaml:"key"`
	Value     float64   `json:"value" yaml:"value"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Step      int64     `json:"step" yaml:"step"`
}

type Experiment struct {
	ID               string         `json:"experiment_id" yaml:"experiment_id"`
	Name             string         `json:"name" yaml:"name"`
	ArtifactLocation string         `json:"artifact_location,omitempty" yaml:"artifact_location,omitempty"`
	LifecycleStage   LifecycleStage `json:"lifecycle_stage" yaml:"lifecycle_stage"`
	CreationTime     time.Time      `json:"creation_time" yaml:"creation_time"`
	LastUpdateTime   time.Time      `json:"last_update_time" yaml:"last_update_time"`
	Tags             []Tag          `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// RunInfo is the metadata of a run. EndTime is nil while the run has not
// ended; the wire format uses 0 for unset, so an end time of exactly the
// Unix epoch also reads as nil.
type RunInfo struct {
	RunID          string         `json:"run_id" yaml:"run_id"`
	RunName        string         `json:"run_name,omitempty" yaml:"run_name,omitempty"`
	ExperimentID   string         `json:"experiment_id" yaml:"experiment_id"`
	UserID         string         `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Status         RunStatus      `json:"status" yaml:"status"`
	StartTime      time.Time      `json:"start_time" yaml:"start_time"`
	EndTime        *time.Time     `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	ArtifactURI    string         `json:"artifact_uri,omitempty" yaml:"artifact_uri,omitempty"`
	LifecycleStage LifecycleStage `json:"lifecycle_stage" yaml:"lifecycle_stage"`
}

// RunData holds the latest value of every metric, plus params and tags
type RunData struct {
	Metrics []Metric `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Params  []Param  `json:"params,omitempty" yaml:"params,omitempty"`
	Tags    []Tag    `json:"tags,omitempty" yaml:"tags,omitempty"`
}

type Run struct {
	Info RunInfo `json:"info" yaml:"info"`
	Data RunData `json:"data" yaml:"data"`
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	LifecycleActive  LifecycleStage = "active"
	LifecycleDeleted LifecycleStage = "deleted"
)

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusScheduled RunStatus = "SCHEDULED"
	RunStatusFinished  RunStatus = "FINISHED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusKilled    RunStatus = "KILLED"
)

const (
	ViewActiveOnly  ViewType = "ACTIVE_ONLY"
	ViewDeletedOnly ViewType = "DELETED_ONLY"
	ViewAll         ViewType = "ALL"
)

// Reserved tag keys understood by the MLflow UI
const (
	TagRunName     = "mlflow.runName"
	TagNoteContent = "mlflow.note.content"
	TagUser        = "mlflow.user"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusRunning, RunStatusScheduled, RunStatusFinished, RunStatusFailed, RunStatusKilled:
		return true
	}
	return false
}

// Terminal reports whether a run in this status has ended
func (s RunStatus) Terminal() bool {
	return s == RunStatusFinished || s == RunStatusFailed || s == RunStatusKilled
}

func (v ViewType) Valid() bool {
	switch v {
	case ViewActiveOnly, ViewDeletedOnly, ViewAll:
		return true
	}
	return false
}

// Tag returns the value of an experiment tag
func (e *Experiment) Tag(key string) (string, bool) {
	for _, tag := range e.Tags {
		if tag.Key == key {
			return tag.Value, true
		}
	}
	return "", false
}

// Params returns the run parameters keyed by name
func (r *Run) Params() map[string]string {
	params := make(map[string]string, len(r.Data.Params))
	for _, param := range r.Data.Params {
		params[param.Key] = param.Value
	}
	return params
}

// Tags returns the run tags keyed by name
func (r *Run) Tags() map[string]string {
	tags := make(map[string]string, len(r.Data.Tags))
	for _, tag := range r.Data.Tags {
		tags[tag.Key] = tag.Value
	}
	return tags
}

// Metrics returns the latest sample of each metric keyed by name
func (r *Run) Metrics() map[string]Metric {
	metrics := make(map[string]Metric, len(r.Data.Metrics))
	for _, metric := range r.Data.Metrics {
		metrics[metric.Key] = metric
	}
	return metrics
}
