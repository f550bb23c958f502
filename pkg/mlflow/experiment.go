package mlflow

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// ExperimentOpt sets optional fields when creating an experiment
type ExperimentOpt func(*createExperimentRequest)

// ExperimentUpdate is a partial update. Nil fields are left unchanged.
type ExperimentUpdate struct {
	NewName  *string
	NewStage *LifecycleStage
}

// SearchExperimentsRequest describes a single-page experiment search.
// A zero MaxResults leaves the bound to the server; the largest accepted
// value is MaxSearchResults, as for runs.
type SearchExperimentsRequest struct {
	Filter     string
	OrderBy    []string
	MaxResults int
	ViewType   ViewType
}

type createExperimentRequest struct {
	Name             string    `json:"name"`
	ArtifactLocation string    `json:"artifact_location,omitempty"`
	Tags             []wireTag `json:"tags,omitempty"`
}

type createExperimentResponse struct {
	ExperimentID string `json:"experiment_id"`
}

type experimentResponse struct {
	Experiment *wireExperiment `json:"experiment"`
}

type searchExperimentsRequest struct {
	MaxResults int      `json:"max_results,omitempty"`
	Filter     string   `json:"filter,omitempty"`
	OrderBy    []string `json:"order_by,omitempty"`
	ViewType   ViewType `json:"view_type,omitempty"`
}

type searchExperimentsResponse struct {
	Experiments []wireExperiment `json:"experiments"`
}

type updateExperimentRequest struct {
	ExperimentID string `json:"experiment_id"`
	NewName      string `json:"new_name"`
}

type experimentIDRequest struct {
	ExperimentID string `json:"experiment_id"`
}

type setExperimentTagRequest struct {
	ExperimentID string `json:"experiment_id"`
	Key          string `json:"key"`
	Value        string `json:"value"`
}

///////////////////////////////////////////////////////////////////////////////
// OPTIONS

// OptArtifactLocation sets where the server stores run artifacts
func OptArtifactLocation(location string) ExperimentOpt {
	return func(r *createExperimentRequest) {
		r.ArtifactLocation = location
	}
}

// OptExperimentTag adds a tag to the new experiment
func OptExperimentTag(key, value string) ExperimentOpt {
	return func(r *createExperimentRequest) {
		r.Tags = append(r.Tags, wireTag{Key: key, Value: value})
	}
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// CreateExperiment creates an experiment and returns it as stored by the
// server. Fails with ErrConflict when the name is taken.
func (c *Client) CreateExperiment(ctx context.Context, name string, opts ...ExperimentOpt) (*Experiment, error) {
	if strings.TrimSpace(name) == "" {
		return nil, newError(ErrInvalidArgument, epCreateExperiment.path, "experiment name is required")
	}

	request := createExperimentRequest{Name: name}
	for _, opt := range opts {
		opt(&request)
	}

	var response createExperimentResponse
	if err := c.post(ctx, epCreateExperiment, request, &response); err != nil {
		return nil, err
	}
	if response.ExperimentID == "" {
		return nil, newError(ErrDecode, epCreateExperiment.path, "response has no experiment_id")
	}

	return c.GetExperiment(ctx, response.ExperimentID)
}

// GetExperiment returns an experiment by identifier
func (c *Client) GetExperiment(ctx context.Context, id string) (*Experiment, error) {
	if id == "" {
		return nil, newError(ErrInvalidArgument, epGetExperiment.path, "experiment id is required")
	}
	return c.getExperiment(ctx, epGetExperiment, url.Values{"experiment_id": {id}})
}

// GetExperimentByName returns an experiment by its unique name
func (c *Client) GetExperimentByName(ctx context.Context, name string) (*Experiment, error) {
	if name == "" {
		return nil, newError(ErrInvalidArgument, epGetExperimentByName.path, "experiment name is required")
	}
	return c.getExperiment(ctx, epGetExperimentByName, url.Values{"experiment_name": {name}})
}

// SearchExperiments returns one page of experiments matching the request
func (c *Client) SearchExperiments(ctx context.Context, req SearchExperimentsRequest) ([]Experiment, error) {
	if req.MaxResults < 0 || req.MaxResults > MaxSearchResults {
		return nil, newError(ErrInvalidArgument, epSearchExperiments.path, "max results must be between 0 and %d, got %d", MaxSearchResults, req.MaxResults)
	}
	if req.ViewType == "" {
		req.ViewType = ViewActiveOnly
	} else if !req.ViewType.Valid() {
		return nil, newError(ErrInvalidArgument, epSearchExperiments.path, "invalid view type %q", req.ViewType)
	}

	var response searchExperimentsResponse
	if err := c.post(ctx, epSearchExperiments, searchExperimentsRequest{
		MaxResults: req.MaxResults,
		Filter:     req.Filter,
		OrderBy:    req.OrderBy,
		ViewType:   req.ViewType,
	}, &response); err != nil {
		return nil, err
	}

	experiments := make([]Experiment, 0, len(response.Experiments))
	for i := range response.Experiments {
		experiment, err := response.Experiments[i].experiment()
		if err != nil {
			return nil, wrapError(ErrDecode, epSearchExperiments.path, err)
		}
		experiments = append(experiments, *experiment)
	}
	return experiments, nil
}

// UpdateExperiment renames an experiment and/or moves it between the active
// and deleted lifecycle stages. The server only renames through
// experiments/update; stage changes go through delete and restore.
func (c *Client) UpdateExperiment(ctx context.Context, id string, update ExperimentUpdate) error {
	if id == "" {
		return newError(ErrInvalidArgument, epUpdateExperiment.path, "experiment id is required")
	}
	if update.NewName == nil && update.NewStage == nil {
		return newError(ErrInvalidArgument, epUpdateExperiment.path, "nothing to update")
	}

	if update.NewName != nil {
		if strings.TrimSpace(*update.NewName) == "" {
			return newError(ErrInvalidArgument, epUpdateExperiment.path, "new name is empty")
		}
		if err := c.post(ctx, epUpdateExperiment, updateExperimentRequest{
			ExperimentID: id,
			NewName:      *update.NewName,
		}, nil); err != nil {
			return err
		}
	}

	if update.NewStage != nil {
		switch *update.NewStage {
		case LifecycleDeleted:
			return c.DeleteExperiment(ctx, id)
		case LifecycleActive:
			return c.RestoreExperiment(ctx, id)
		default:
			return newError(ErrInvalidArgument, epUpdateExperiment.path, "invalid lifecycle stage %q", *update.NewStage)
		}
	}

	return nil
}

// DeleteExperiment marks an experiment and its runs as deleted
func (c *Client) DeleteExperiment(ctx context.Context, id string) error {
	if id == "" {
		return newError(ErrInvalidArgument, epDeleteExperiment.path, "experiment id is required")
	}
	return c.post(ctx, epDeleteExperiment, experimentIDRequest{ExperimentID: id}, nil)
}

// RestoreExperiment moves a deleted experiment back to the active stage
func (c *Client) RestoreExperiment(ctx context.Context, id string) error {
	if id == "" {
		return newError(ErrInvalidArgument, epRestoreExperiment.path, "experiment id is required")
	}
	return c.post(ctx, epRestoreExperiment, experimentIDRequest{ExperimentID: id}, nil)
}

// SetExperimentTag sets a tag on an experiment, replacing any previous value
func (c *Client) SetExperimentTag(ctx context.Context, id, key, value string) error {
	if id == "" || key == "" {
		return newError(ErrInvalidArgument, epSetExperimentTag.path, "experiment id and key are required")
	}
	return c.post(ctx, epSetExperimentTag, setExperimentTagRequest{
		ExperimentID: id,
		Key:          key,
		Value:        value,
	}, nil)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (c *Client) getExperiment(ctx context.Context, ep endpoint, query url.Values) (*Experiment, error) {
	var response experimentResponse
	if err := c.get(ctx, ep, query, &response); err != nil {
		return nil, err
	}
	if response.Experiment == nil {
		return nil, newError(ErrDecode, ep.path, "response has no experiment")
	}
	experiment, err := response.Experiment.experiment()
	if err != nil {
		return nil, wrapError(ErrDecode, ep.path, fmt.Errorf("invalid experiment: %w", err))
	}
	return experiment, nil
}
