package mlflow

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"
)

// MLflow serves protobuf JSON: int64 fields may be quoted and
// non-finite doubles are sent as "NaN", "Infinity" or "-Infinity".

////////////////////////////////////////////////////////////////////////////////
// TYPES

type int64String int64

type float64String float64

type wireTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type wireParam struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type wireMetric struct {
	Key       string        `json:"key"`
	Value     float64String `json:"value"`
	Timestamp int64String   `json:"timestamp"`
	Step      int64String   `json:"step"`
}

type wireExperiment struct {
	ExperimentID     string      `json:"experiment_id"`
	Name             string      `json:"name"`
	ArtifactLocation string      `json:"artifact_location"`
	LifecycleStage   string      `json:"lifecycle_stage"`
	LastUpdateTime   int64String `json:"last_update_time"`
	CreationTime     int64String `json:"creation_time"`
	Tags             []wireTag   `json:"tags"`
}

type wireRunInfo struct {
	RunID          string      `json:"run_id"`
	RunUUID        string      `json:"run_uuid"`
	RunName        string      `json:"run_name"`
	ExperimentID   string      `json:"experiment_id"`
	UserID         string      `json:"user_id"`
	Status         string      `json:"status"`
	StartTime      int64String `json:"start_time"`
	EndTime        int64String `json:"end_time"`
	ArtifactURI    string      `json:"artifact_uri"`
	LifecycleStage string      `json:"lifecycle_stage"`
}

type wireRunData struct {
	Metrics []wireMetric `json:"metrics"`
	Params  []wireParam  `json:"params"`
	Tags    []wireTag    `json:"tags"`
}

type wireRun struct {
	Info wireRunInfo `json:"info"`
	Data wireRunData `json:"data"`
}

////////////////////////////////////////////////////////////////////////////////
// JSON

func (v *int64String) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid int64 %q: %w", data, err)
	}
	*v = int64String(n)
	return nil
}

func (v float64String) MarshalJSON() ([]byte, error) {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

func (v *float64String) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	switch string(data) {
	case "", "null":
		*v = 0
		return nil
	case "NaN":
		*v = float64String(math.NaN())
		return nil
	case "Infinity":
		*v = float64String(math.Inf(1))
		return nil
	case "-Infinity":
		*v = float64String(math.Inf(-1))
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid double %q: %w", data, err)
	}
	*v = float64String(f)
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// CONVERSION

func fromMillis(ms int64String) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms))
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromWireTags(tags []wireTag) []Tag {
	if len(tags) == 0 {
		return nil
	}
	result := make([]Tag, 0, len(tags))
	for _, tag := range tags {
		result = append(result, Tag{Key: tag.Key, Value: tag.Value})
	}
	return result
}

func toWireTags(tags []Tag) []wireTag {
	if len(tags) == 0 {
		return nil
	}
	result := make([]wireTag, 0, len(tags))
	for _, tag := range tags {
		result = append(result, wireTag{Key: tag.Key, Value: tag.Value})
	}
	return result
}

func toWireParams(params []Param) []wireParam {
	if len(params) == 0 {
		return nil
	}
	result := make([]wireParam, 0, len(params))
	for _, param := range params {
		result = append(result, wireParam{Key: param.Key, Value: param.Value})
	}
	return result
}

func (m wireMetric) metric() Metric {
	return Metric{
		Key:       m.Key,
		Value:     float64(m.Value),
		Timestamp: fromMillis(m.Timestamp),
		Step:      int64(m.Step),
	}
}

func toWireMetric(m Metric) wireMetric {
	return wireMetric{
		Key:       m.Key,
		Value:     float64String(m.Value),
		Timestamp: int64String(toMillis(m.Timestamp)),
		Step:      int64String(m.Step),
	}
}

func fromWireMetrics(metrics []wireMetric) []Metric {
	if len(metrics) == 0 {
		return nil
	}
	result := make([]Metric, 0, len(metrics))
	for _, metric := range metrics {
		result = append(result, metric.metric())
	}
	return result
}

func (e *wireExperiment) experiment() (*Experiment, error) {
	if e.ExperimentID == "" {
		return nil, fmt.Errorf("experiment has no experiment_id")
	}
	return &Experiment{
		ID:               e.ExperimentID,
		Name:             e.Name,
		ArtifactLocation: e.ArtifactLocation,
		LifecycleStage:   LifecycleStage(e.LifecycleStage),
		CreationTime:     fromMillis(e.CreationTime),
		LastUpdateTime:   fromMillis(e.LastUpdateTime),
		Tags:             fromWireTags(e.Tags),
	}, nil
}

func (i *wireRunInfo) runInfo() (*RunInfo, error) {
	id := i.RunID
	if id == "" {
		id = i.RunUUID
	}
	if id == "" {
		return nil, fmt.Errorf("run has no run_id")
	}
	info := &RunInfo{
		RunID:          id,
		RunName:        i.RunName,
		ExperimentID:   i.ExperimentID,
		UserID:         i.UserID,
		Status:         RunStatus(i.Status),
		StartTime:      fromMillis(i.StartTime),
		ArtifactURI:    i.ArtifactURI,
		LifecycleStage: LifecycleStage(i.LifecycleStage),
	}
	if i.EndTime != 0 {
		end := fromMillis(i.EndTime)
		info.EndTime = &end
	}
	return info, nil
}

func (r *wireRun) run() (*Run, error) {
	info, err := r.Info.runInfo()
	if err != nil {
		return nil, err
	}
	run := &Run{
		Info: *info,
		Data: RunData{
			Metrics: fromWireMetrics(r.Data.Metrics),
			Tags:    fromWireTags(r.Data.Tags),
		},
	}
	for _, param := range r.Data.Params {
		run.Data.Params = append(run.Data.Params, Param{Key: param.Key, Value: param.Value})
	}
	return run, nil
}
