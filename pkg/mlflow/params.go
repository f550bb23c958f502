package mlflow

import (
	"context"
	"errors"
	"sort"
)

type logParamRequest struct {
	RunID string `json:"run_id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// LogParam records a parameter. Parameters are write-once: logging the same
// value again succeeds, a different value fails with ErrConflict.
func (c *Client) LogParam(ctx context.Context, runID, key, value string) error {
	if runID == "" || key == "" {
		return newError(ErrInvalidArgument, epLogParam.path, "run id and key are required")
	}

	err := c.post(ctx, epLogParam, logParamRequest{
		RunID: runID,
		Key:   key,
		Value: value,
	}, nil)
	return refineParamConflict(err)
}

// LogParams logs parameters one by one in key order, stopping at the first error
func (c *Client) LogParams(ctx context.Context, runID string, params map[string]string) error {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := c.LogParam(ctx, runID, key, params[key]); err != nil {
			return err
		}
	}
	return nil
}

// refineParamConflict turns the server's "changing param values is not
// allowed" rejection into ErrConflict
func refineParamConflict(err error) error {
	if isParamOverwrite(err) {
		var apiErr *Error
		errors.As(err, &apiErr)
		apiErr.Kind = ErrConflict
	}
	return err
}
