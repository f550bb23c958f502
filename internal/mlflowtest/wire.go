package mlflowtest

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// Response bodies mirror the tracking server's protobuf JSON, which sends
// int64 fields as strings.

type number float64

type tagJSON struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type metricJSON struct {
	Key       string `json:"key"`
	Value     number `json:"value"`
	Timestamp int64  `json:"timestamp,string"`
	Step      int64  `json:"step,string"`
}

type experimentJSON struct {
	ExperimentID     string    `json:"experiment_id"`
	Name             string    `json:"name"`
	ArtifactLocation string    `json:"artifact_location"`
	LifecycleStage   string    `json:"lifecycle_stage"`
	LastUpdateTime   int64     `json:"last_update_time,string"`
	CreationTime     int64     `json:"creation_time,string"`
	Tags             []tagJSON `json:"tags,omitempty"`
}

type runInfoJSON struct {
	RunID          string `json:"run_id"`
	RunUUID        string `json:"run_uuid"`
	RunName        string `json:"run_name"`
	ExperimentID   string `json:"experiment_id"`
	UserID         string `json:"user_id"`
	Status         string `json:"status"`
	StartTime      int64  `json:"start_time,string"`
	EndTime        int64  `json:"end_time,omitempty,string"`
	ArtifactURI    string `json:"artifact_uri"`
	LifecycleStage string `json:"lifecycle_stage"`
}

type runDataJSON struct {
	Metrics []metricJSON `json:"metrics,omitempty"`
	Params  []tagJSON    `json:"params,omitempty"`
	Tags    []tagJSON    `json:"tags,omitempty"`
}

type runJSON struct {
	Info runInfoJSON `json:"info"`
	Data runDataJSON `json:"data"`
}

// Request bodies

type metricRequest struct {
	Key       string `json:"key"`
	Value     number `json:"value"`
	Timestamp int64  `json:"timestamp"`
	Step      int64  `json:"step"`
}

type createExperimentRequest struct {
	Name             string    `json:"name"`
	ArtifactLocation string    `json:"artifact_location"`
	Tags             []tagJSON `json:"tags"`
}

type searchExperimentsRequest struct {
	MaxResults int      `json:"max_results"`
	Filter     string   `json:"filter"`
	OrderBy    []string `json:"order_by"`
	ViewType   string   `json:"view_type"`
}

type updateExperimentRequest struct {
	ExperimentID string `json:"experiment_id"`
	NewName      string `json:"new_name"`
}

type experimentTagRequest struct {
	ExperimentID string `json:"experiment_id"`
	Key          string `json:"key"`
	Value        string `json:"value"`
}

type createRunRequest struct {
	ExperimentID string    `json:"experiment_id"`
	UserID       string    `json:"user_id"`
	RunName      string    `json:"run_name"`
	StartTime    int64     `json:"start_time"`
	Tags         []tagJSON `json:"tags"`
}

type updateRunRequest struct {
	RunID   string `json:"run_id"`
	Status  string `json:"status"`
	EndTime *int64 `json:"end_time"`
	RunName string `json:"run_name"`
}

type searchRunsRequest struct {
	ExperimentIDs []string `json:"experiment_ids"`
	Filter        string   `json:"filter"`
	RunViewType   string   `json:"run_view_type"`
	MaxResults    int      `json:"max_results"`
	OrderBy       []string `json:"order_by"`
}

type runKeyValueRequest struct {
	RunID string `json:"run_id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

type logMetricRequest struct {
	RunID string `json:"run_id"`
	metricRequest
}

type logBatchRequest struct {
	RunID   string          `json:"run_id"`
	Metrics []metricRequest `json:"metrics"`
	Params  []tagJSON       `json:"params"`
	Tags    []tagJSON       `json:"tags"`
}

type errorJSON struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

////////////////////////////////////////////////////////////////////////////////
// JSON

func (v number) MarshalJSON() ([]byte, error) {
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

func (v *number) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	switch string(data) {
	case "NaN":
		*v = number(math.NaN())
	case "Infinity":
		*v = number(math.Inf(1))
	case "-Infinity":
		*v = number(math.Inf(-1))
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid double %q", data)
		}
		*v = number(f)
	}
	return nil
}
