package mlflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	// Packages
	log "github.com/sirupsen/logrus"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type endpoint struct {
	method string
	path   string
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

var (
	epCreateExperiment    = endpoint{http.MethodPost, "experiments/create"}
	epGetExperiment       = endpoint{http.MethodGet, "experiments/get"}
	epGetExperimentByName = endpoint{http.MethodGet, "experiments/get-by-name"}
	epSearchExperiments   = endpoint{http.MethodPost, "experiments/search"}
	epUpdateExperiment    = endpoint{http.MethodPost, "experiments/update"}
	epDeleteExperiment    = endpoint{http.MethodPost, "experiments/delete"}
	epRestoreExperiment   = endpoint{http.MethodPost, "experiments/restore"}
	epSetExperimentTag    = endpoint{http.MethodPost, "experiments/set-experiment-tag"}
	epCreateRun           = endpoint{http.MethodPost, "runs/create"}
	epGetRun              = endpoint{http.MethodGet, "runs/get"}
	epUpdateRun           = endpoint{http.MethodPost, "runs/update"}
	epDeleteRun           = endpoint{http.MethodPost, "runs/delete"}
	epRestoreRun          = endpoint{http.MethodPost, "runs/restore"}
	epSearchRuns          = endpoint{http.MethodPost, "runs/search"}
	epLogParam            = endpoint{http.MethodPost, "runs/log-parameter"}
	epLogMetric           = endpoint{http.MethodPost, "runs/log-metric"}
	epLogBatch            = endpoint{http.MethodPost, "runs/log-batch"}
	epSetTag              = endpoint{http.MethodPost, "runs/set-tag"}
	epDeleteTag           = endpoint{http.MethodPost, "runs/delete-tag"}
	epGetMetricHistory    = endpoint{http.MethodGet, "metrics/get-history"}
)

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// get issues a GET with query parameters and decodes the response into out
func (c *Client) get(ctx context.Context, ep endpoint, query url.Values, out interface{}) error {
	return c.do(ctx, ep, query, nil, out)
}

// post issues a POST with a JSON body and decodes the response into out,
// which may be nil for endpoints with an empty response
func (c *Client) post(ctx context.Context, ep endpoint, in interface{}, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return wrapError(ErrInvalidArgument, ep.path, fmt.Errorf("failed to encode request: %w", err))
	}
	return c.do(ctx, ep, nil, body, out)
}

func (c *Client) do(ctx context.Context, ep endpoint, query url.Values, body []byte, out interface{}) error {
	uri := c.endpoint + "/" + ep.path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, ep.method, uri, reader)
	if err != nil {
		return wrapError(ErrInvalidArgument, ep.path, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if c.auth != nil {
		if err := c.auth(req); err != nil {
			return wrapError(ErrTransport, ep.path, fmt.Errorf("failed to authenticate request: %w", err))
		}
	}

	logger := c.log.WithFields(log.Fields{
		"method":   ep.method,
		"endpoint": ep.path,
	})

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		logger.WithError(err).Debug("mlflow request failed")
		return wrapError(ErrTransport, ep.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.WithError(err).Debug("failed to read mlflow response")
		return wrapError(ErrTransport, ep.path, fmt.Errorf("failed to read response: %w", err))
	}

	logger.WithFields(log.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("mlflow request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(ep.path, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return wrapError(ErrDecode, ep.path, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// responseError builds a typed error from a non-2xx response
func responseError(op string, status int, body []byte) *Error {
	apiErr := &Error{
		Op:         op,
		StatusCode: status,
	}

	var response errorResponse
	if err := json.Unmarshal(body, &response); err == nil && response.ErrorCode != "" {
		apiErr.Code = response.ErrorCode
		apiErr.Message = response.Message
	} else {
		apiErr.Message = string(bytes.TrimSpace(body))
	}
	apiErr.Kind = kindFor(status, apiErr.Code)

	return apiErr
}
