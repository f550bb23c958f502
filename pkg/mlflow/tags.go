package mlflow

import (
	"context"
)

type setTagRequest struct {
	RunID string `json:"run_id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

type deleteTagRequest struct {
	RunID string `json:"run_id"`
	Key   string `json:"key"`
}

// SetTag sets a run tag, replacing any previous value
func (c *Client) SetTag(ctx context.Context, runID, key, value string) error {
	if runID == "" || key == "" {
		return newError(ErrInvalidArgument, epSetTag.path, "run id and key are required")
	}
	return c.post(ctx, epSetTag, setTagRequest{
		RunID: runID,
		Key:   key,
		Value: value,
	}, nil)
}

// DeleteTag removes a run tag. Fails with ErrNotFound if the tag is not set.
func (c *Client) DeleteTag(ctx context.Context, runID, key string) error {
	if runID == "" || key == "" {
		return newError(ErrInvalidArgument, epDeleteTag.path, "run id and key are required")
	}
	return c.post(ctx, epDeleteTag, deleteTagRequest{
		RunID: runID,
		Key:   key,
	}, nil)
}
