package mlflow

import (
	"context"
	"net/url"
	"time"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// RunOpt sets optional fields when creating a run
type RunOpt func(*createRunRequest)

// RunUpdate is a partial update. Nil fields are omitted from the request.
type RunUpdate struct {
	Status  *RunStatus
	EndTime *time.Time
	RunName *string
}

type createRunRequest struct {
	ExperimentID string    `json:"experiment_id"`
	UserID       string    `json:"user_id,omitempty"`
	RunName      string    `json:"run_name,omitempty"`
	StartTime    int64     `json:"start_time"`
	Tags         []wireTag `json:"tags,omitempty"`

	startTime time.Time
}

type runResponse struct {
	Run *wireRun `json:"run"`
}

type updateRunRequest struct {
	RunID   string    `json:"run_id"`
	Status  RunStatus `json:"status,omitempty"`
	EndTime *int64    `json:"end_time,omitempty"`
	RunName string    `json:"run_name,omitempty"`
}

type updateRunResponse struct {
	RunInfo *wireRunInfo `json:"run_info"`
}

type runIDRequest struct {
	RunID string `json:"run_id"`
}

///////////////////////////////////////////////////////////////////////////////
// OPTIONS

// OptRunName names the run and sets the mlflow.runName tag
func OptRunName(name string) RunOpt {
	return func(r *createRunRequest) {
		r.RunName = name
		r.Tags = append(r.Tags, wireTag{Key: TagRunName, Value: name})
	}
}

// OptRunDescription sets the mlflow.note.content tag shown in the UI
func OptRunDescription(description string) RunOpt {
	return func(r *createRunRequest) {
		r.Tags = append(r.Tags, wireTag{Key: TagNoteContent, Value: description})
	}
}

// OptRunTag adds a tag to the new run
func OptRunTag(key, value string) RunOpt {
	return func(r *createRunRequest) {
		r.Tags = append(r.Tags, wireTag{Key: key, Value: value})
	}
}

// OptRunUser sets the user the run is attributed to
func OptRunUser(user string) RunOpt {
	return func(r *createRunRequest) {
		r.UserID = user
	}
}

// OptStartTime overrides the start time, which defaults to now
func OptStartTime(t time.Time) RunOpt {
	return func(r *createRunRequest) {
		r.startTime = t
	}
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// CreateRun starts a run in an experiment. The server assigns the run id.
func (c *Client) CreateRun(ctx context.Context, experimentID string, opts ...RunOpt) (*Run, error) {
	if experimentID == "" {
		return nil, newError(ErrInvalidArgument, epCreateRun.path, "experiment id is required")
	}

	request := createRunRequest{ExperimentID: experimentID}
	for _, opt := range opts {
		opt(&request)
	}
	if request.startTime.IsZero() {
		request.startTime = time.Now()
	}
	request.StartTime = toMillis(request.startTime)

	return c.runFrom(epCreateRun, func(response *runResponse) error {
		return c.post(ctx, epCreateRun, request, response)
	})
}

// GetRun returns a run with its latest metrics, params and tags
func (c *Client) GetRun(ctx context.Context, id string) (*Run, error) {
	if id == "" {
		return nil, newError(ErrInvalidArgument, epGetRun.path, "run id is required")
	}
	return c.runFrom(epGetRun, func(response *runResponse) error {
		return c.get(ctx, epGetRun, url.Values{"run_id": {id}}, response)
	})
}

// UpdateRun changes the status, end time or name of a run
func (c *Client) UpdateRun(ctx context.Context, id string, update RunUpdate) (*RunInfo, error) {
	if id == "" {
		return nil, newError(ErrInvalidArgument, epUpdateRun.path, "run id is required")
	}
	if update.Status == nil && update.EndTime == nil && update.RunName == nil {
		return nil, newError(ErrInvalidArgument, epUpdateRun.path, "nothing to update")
	}

	request := updateRunRequest{RunID: id}
	if update.Status != nil {
		if !update.Status.Valid() {
			return nil, newError(ErrInvalidArgument, epUpdateRun.path, "invalid run status %q", *update.Status)
		}
		request.Status = *update.Status
	}
	if update.EndTime != nil {
		end := toMillis(*update.EndTime)
		request.EndTime = &end
	}
	if update.RunName != nil {
		request.RunName = *update.RunName
	}

	var response updateRunResponse
	if err := c.post(ctx, epUpdateRun, request, &response); err != nil {
		return nil, err
	}
	if response.RunInfo == nil {
		return nil, newError(ErrDecode, epUpdateRun.path, "response has no run_info")
	}
	info, err := response.RunInfo.runInfo()
	if err != nil {
		return nil, wrapError(ErrDecode, epUpdateRun.path, err)
	}
	return info, nil
}

// TerminateRun ends a run. A zero status means FINISHED and a zero end time
// means now.
func (c *Client) TerminateRun(ctx context.Context, id string, status RunStatus, end time.Time) (*RunInfo, error) {
	if status == "" {
		status = RunStatusFinished
	}
	if end.IsZero() {
		end = time.Now()
	}
	return c.UpdateRun(ctx, id, RunUpdate{
		Status:  &status,
		EndTime: &end,
	})
}

// DeleteRun marks a run as deleted
func (c *Client) DeleteRun(ctx context.Context, id string) error {
	if id == "" {
		return newError(ErrInvalidArgument, epDeleteRun.path, "run id is required")
	}
	return c.post(ctx, epDeleteRun, runIDRequest{RunID: id}, nil)
}

// RestoreRun moves a deleted run back to the active stage
func (c *Client) RestoreRun(ctx context.Context, id string) error {
	if id == "" {
		return newError(ErrInvalidArgument, epRestoreRun.path, "run id is required")
	}
	return c.post(ctx, epRestoreRun, runIDRequest{RunID: id}, nil)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (c *Client) runFrom(ep endpoint, fn func(*runResponse) error) (*Run, error) {
	var response runResponse
	if err := fn(&response); err != nil {
		return nil, err
	}
	if response.Run == nil {
		return nil, newError(ErrDecode, ep.path, "response has no run")
	}
	run, err := response.Run.run()
	if err != nil {
		return nil, wrapError(ErrDecode, ep.path, err)
	}
	return run, nil
}
