package mlflow

import (
	"context"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// SearchRunsRequest describes a single-page run search.
//
// Filter uses the MLflow search syntax, for example
// "metrics.rmse < 1 and params.model = 'tree'". OrderBy clauses are applied
// in sequence, for example []string{"metrics.rmse ASC", "start_time DESC"}.
// A zero MaxResults leaves the bound to the server default.
type SearchRunsRequest struct {
	ExperimentIDs []string
	Filter        string
	OrderBy       []string
	MaxResults    int
	ViewType      ViewType
}

type searchRunsRequest struct {
	ExperimentIDs []string `json:"experiment_ids"`
	Filter        string   `json:"filter,omitempty"`
	RunViewType   ViewType `json:"run_view_type,omitempty"`
	MaxResults    int      `json:"max_results,omitempty"`
	OrderBy       []string `json:"order_by,omitempty"`
}

type searchRunsResponse struct {
	Runs          []wireRun `json:"runs"`
	NextPageToken string    `json:"next_page_token"`
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

// MaxSearchResults is the largest page the tracking server accepts
const MaxSearchResults = 50000

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// SearchRuns returns runs of the given experiments in server order. Only the
// first page is returned; a malformed filter fails with ErrInvalidArgument.
func (c *Client) SearchRuns(ctx context.Context, req SearchRunsRequest) ([]Run, error) {
	if len(req.ExperimentIDs) == 0 {
		return nil, newError(ErrInvalidArgument, epSearchRuns.path, "at least one experiment id is required")
	}
	for _, id := range req.ExperimentIDs {
		if id == "" {
			return nil, newError(ErrInvalidArgument, epSearchRuns.path, "experiment id is empty")
		}
	}
	if req.MaxResults < 0 || req.MaxResults > MaxSearchResults {
		return nil, newError(ErrInvalidArgument, epSearchRuns.path, "max results must be between 0 and %d, got %d", MaxSearchResults, req.MaxResults)
	}
	if req.ViewType == "" {
		req.ViewType = ViewActiveOnly
	} else if !req.ViewType.Valid() {
		return nil, newError(ErrInvalidArgument, epSearchRuns.path, "invalid view type %q", req.ViewType)
	}

	var response searchRunsResponse
	if err := c.post(ctx, epSearchRuns, searchRunsRequest{
		ExperimentIDs: req.ExperimentIDs,
		Filter:        req.Filter,
		RunViewType:   req.ViewType,
		MaxResults:    req.MaxResults,
		OrderBy:       req.OrderBy,
	}, &response); err != nil {
		return nil, err
	}

	runs := make([]Run, 0, len(response.Runs))
	for i := range response.Runs {
		run, err := response.Runs[i].run()
		if err != nil {
			return nil, wrapError(ErrDecode, epSearchRuns.path, err)
		}
		runs = append(runs, *run)
	}
	return runs, nil
}
