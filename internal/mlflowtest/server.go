/*
mlflowtest runs an in-memory MLflow tracking server for tests. It keeps the
server-side rules the client relies on: unique experiment names, write-once
params, append-only metric history and rejection of malformed filters.
*/
package mlflowtest

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	// Packages
	uuid "github.com/google/uuid"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Server is a fake tracking server. Point a client at Server.URL.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	experiments map[string]*experiment
	runs        map[string]*run
	runOrder    []string
	nextID      int
	failures    []failure
	requests    []Request
}

// Request records a call received by the server
type Request struct {
	Method string
	Path   string // relative to /api/2.0/mlflow/
	Query  url.Values
	Body   []byte
	Header http.Header
}

type failure struct {
	status int
	body   string
}

type experiment struct {
	id               string
	name             string
	artifactLocation string
	stage            string
	created          int64
	updated          int64
	tags             map[string]string
}

type run struct {
	info    runInfoJSON
	params  map[string]string
	tags    map[string]string
	history map[string][]metricJSON
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	Prefix = "/api/2.0/mlflow/"

	// DefaultExperimentID is the experiment every tracking server starts with
	DefaultExperimentID = "0"

	maxSearchResults = 50000
	maxBatchMetrics  = 1000
	maxBatchParams   = 100
	maxBatchTags     = 100
)

const (
	codeInvalidParameterValue = "INVALID_PARAMETER_VALUE"
	codeResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	codeResourceDoesNotExist  = "RESOURCE_DOES_NOT_EXIST"
	codeBadRequest            = "BAD_REQUEST"
	codeInvalidState          = "INVALID_STATE"
)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New starts a server which is closed when the test ends
func New(t testing.TB) *Server {
	t.Helper()
	s := NewServer()
	t.Cleanup(s.Close)
	return s
}

// NewServer starts a server. The caller closes it.
func NewServer() *Server {
	s := &Server{
		experiments: make(map[string]*experiment),
		runs:        make(map[string]*run),
		nextID:      1,
	}
	now := nowMillis()
	s.experiments[DefaultExperimentID] = &experiment{
		id:               DefaultExperimentID,
		name:             "Default",
		artifactLocation: "mlflow-artifacts:/0",
		stage:            "active",
		created:          now,
		updated:          now,
		tags:             map[string]string{},
	}

	mux := http.NewServeMux()
	for path, handler := range map[string]struct {
		method string
		fn     func(*http.Request) (interface{}, *apiError)
	}{
		"experiments/create":             {http.MethodPost, s.createExperiment},
		"experiments/get":                {http.MethodGet, s.getExperiment},
		"experiments/get-by-name":        {http.MethodGet, s.getExperimentByName},
		"experiments/search":             {http.MethodPost, s.searchExperiments},
		"experiments/update":             {http.MethodPost, s.updateExperiment},
		"experiments/delete":             {http.MethodPost, s.setExperimentStage("deleted")},
		"experiments/restore":            {http.MethodPost, s.setExperimentStage("active")},
		"experiments/set-experiment-tag": {http.MethodPost, s.setExperimentTag},
		"runs/create":                    {http.MethodPost, s.createRun},
		"runs/get":                       {http.MethodGet, s.getRun},
		"runs/update":                    {http.MethodPost, s.updateRun},
		"runs/delete":                    {http.MethodPost, s.setRunStage("deleted")},
		"runs/restore":                   {http.MethodPost, s.setRunStage("active")},
		"runs/search":                    {http.MethodPost, s.searchRuns},
		"runs/log-parameter":             {http.MethodPost, s.logParam},
		"runs/log-metric":                {http.MethodPost, s.logMetric},
		"runs/log-batch":                 {http.MethodPost, s.logBatch},
		"runs/set-tag":                   {http.MethodPost, s.setTag},
		"runs/delete-tag":                {http.MethodPost, s.deleteTag},
		"metrics/get-history":            {http.MethodGet, s.getMetricHistory},
	} {
		mux.Handle(Prefix+path, s.handle(path, handler.method, handler.fn))
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorJSON{ErrorCode: "ENDPOINT_NOT_FOUND", Message: "No API endpoint found for " + r.URL.Path})
	})

	s.Server = httptest.NewServer(mux)
	return s
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// FailNext makes the next request fail with the given status and raw body,
// before it reaches any handler. Calls queue up.
func (s *Server) FailNext(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, body: body})
}

// Requests returns the calls received so far, in order
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent call, or a zero Request
func (s *Server) LastRequest() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS - ROUTING

type apiError struct {
	status int
	errorJSON
}

func newAPIError(status int, code, format string, args ...interface{}) *apiError {
	return &apiError{status: status, errorJSON: errorJSON{ErrorCode: code, Message: fmt.Sprintf(format, args...)}}
}

func (s *Server) handle(path, method string, fn func(*http.Request) (interface{}, *apiError)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   path,
			Query:  r.URL.Query(),
			Body:   body,
			Header: r.Header.Clone(),
		})
		var fail *failure
		if len(s.failures) > 0 {
			fail = &s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		if fail != nil {
			w.WriteHeader(fail.status)
			io.WriteString(w, fail.body)
			return
		}
		if r.Method != method {
			writeJSON(w, http.StatusMethodNotAllowed, errorJSON{ErrorCode: codeBadRequest, Message: "method not allowed"})
			return
		}

		s.mu.Lock()
		response, err := fn(r)
		s.mu.Unlock()
		if err != nil {
			writeJSON(w, err.status, err.errorJSON)
			return
		}
		if response == nil {
			response = struct{}{}
		}
		writeJSON(w, http.StatusOK, response)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decode(r *http.Request, v interface{}) *apiError {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return newAPIError(http.StatusBadRequest, codeBadRequest, "malformed request body: %v", err)
	}
	return nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS - EXPERIMENTS

func (s *Server) createExperiment(r *http.Request) (interface{}, *apiError) {
	var req createExperimentRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, newAPIError(http.StatusBadRequest, codeInvalidParameterValue, "Missing value for required parameter 'name'.")
	}
	if s.experimentByName(req.Name) != nil {
		return nil, newAPIError(http.StatusBadRequest, codeResourceAlreadyExists, "Experiment(name=%s) already exists.", req.Name)
	}

	id := strconv.Itoa(s.nextID)
	s.nextID++
	now := nowMillis()
	e := &experiment{
		id:               id,
		name:             req.Name,
		artifactLocation: req.ArtifactLocation,
		stage:            "active",
		created:          now,
		updated:          now,
		tags:             map[string]string{},
	}
	if e.artifactLocation == "" {
		e.artifactLocation = "mlflow-artifacts:/" + id
	}
	for _, tag := range req.Tags {
		e.tags[tag.Key] = tag.Value
	}
	s.experiments[id] = e

	return map[string]string{"experiment_id": id}, nil
}

func (s *Server) getExperiment(r *http.Request) (interface{}, *apiError) {
	e, err := s.experiment(r.URL.Query().Get("experiment_id"))
	if err != nil {
		return nil, err
	}
	return map[string]experimentJSON{"experiment": e.json()}, nil
}

func (s *Server) getExperimentByName(r *http.Request) (interface{}, *apiError) {
	name := r.URL.Query().Get("experiment_name")
	e := s.experimentByName(name)
	if e == nil {
		return nil, newAPIError(http.StatusNotFound, codeResourceDoesNotExist, "Could not find experiment with name '%s'", name)
	}
	return map[string]experimentJSON{"experiment": e.json()}, nil
}

func (s *Server) searchExperiments(r *http.Request) (interface{}, *apiError) {
	var req searchExperimentsRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	clauses, err := parseFilter(req.Filter)
	if err != nil {
		return nil, newAPIError(http.StatusBadRequest, codeInvalidParameterValue, "Error on parsing filter '%s': %v", req.Filter, err)
	}
	order, err := parseOrderBy(req.OrderBy)
	if err != nil {
		return nil, newAPIError(http.StatusBadRequest, codeInvalidParameterValue, "%v", err)
	}

	var result []*experiment
	for _, e := range s.experiments {
		if !stageMatches(e.stage, req.ViewType) || !matchAll(clauses, e.lookup) {
			continue
		}
		result = append(result, e)
	}
	// Newest first, like the tracking server
	sort.Slice(result, func(i, j int) bool {
		a, _ := strconv.Atoi(result[i].id)
		b, _ := strconv.Atoi(result[j].id)
		return a > b
	})
	sortBy(result, order, func(e *experiment) lookup { return e.lookup })
	if req.MaxResults > 0 && len(result) > req.MaxResults {
		result = result[:req.MaxResults]
	}

	experiments := make([]experimentJSON, 0, len(result))
	for _, e := range result {
		experiments = append(experiments, e.json())
	}
	return map[string][]experimentJSON{"experiments": experiments}, nil
}

func (s *Server) updateExperiment(r *http.Request) (interface{}, *apiError) {
	var req updateExperimentRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	e, err := s.experiment(req.ExperimentID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.NewName) == "" {
		return nil, newAPIError(http.StatusBadRequest, codeInvalidParameterValue, "Missing value for required parameter 'new_name'.")
	}
	if other := s.experimentByName(req.NewName); other != nil && other.id != e.id {
		return nil, newAPIError(http.StatusBadRequest, codeResourceAlreadyExists, "Experiment(name=%s) already exists.", req.NewName)
	}
	e.name = req.NewName
	e.updated = nowMillis()
	return nil, nil
}

func (s *Server) setExperimentStage(stage string) func(*http.Request) (interface{}, *apiError) {
	return func(r *http.Request) (interface{}, *apiError) {
		var req struct {
			ExperimentID string `json:"experiment_id"`
		}
		if err := decode(r, &req); err != nil {
			return nil, err
		}
		e, err := s.experiment(req.ExperimentID)
		if err != nil {
			return nil, err
		}
		if stage == "deleted" && e.id == DefaultExperimentID {
			return nil, newAPIError(http.StatusBadRequest, codeInvalidParameterValue, "Cannot delete the default experiment '0'.")
		}
		e.stage = stage
		e.updated = nowMillis()
		for _, run := range s.runs {
			if run.info.ExperimentID == e.id {
				run.info.LifecycleStage = stage
			}
		}
		return nil, nil
	}
}

func (s *Server) setExperimentTag(r *http.Request) (interface{}, *apiError) {
	var req experimentTagRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	e, err := s.experiment(req.ExperimentID)
	if err != nil {
		return nil, err
	}
	if req.Key == "" {
		return nil, newAPIError(http.StatusBadRequest, codeInvalidParameterValue, "Missing value for required parameter 'key'.")
	}
	e.tags[req.Key] = req.Value
	return nil, nil
}

func (s *Server) experiment(id string) (*experiment, *apiError) {
	if id == "" {
		return nil, newAPIError(http.StatusBadRequest, codeInvalidParameterValue, "Missing value for required parameter 'experiment_id'.")
	}
	e, exists := s.experiments[id]
	if !exists {
		return nil, newAPIError(http.StatusNotFound, codeResourceDoesNotExist, "No Experiment with id=%s exists", id)
	}
	return e, nil
}

func (s *Server) experimentByName(name string) *experiment {
	for _, e := range s.experiments {
		if e.name == name {
			return e
		}
	}
	return nil
}

func (e *experiment) json() experimentJSON {
	return experimentJSON{
		ExperimentID:     e.id,
		Name:             e.name,
		ArtifactLocation: e.artifactLocation,
		LifecycleStage:   e.stage,
		CreationTime:     e.created,
		LastUpdateTime:   e.updated,
		Tags:             tagsJSON(e.tags),
	}
}

func (e *experiment) lookup(entity, key string) (value, bool) {
	switch entity {
	case "tags":
		v, ok := e.tags[key]
		return value{text: v}, ok
	case "attributes":
		switch key {
		case "name":
			return value{text: e.name}, true
		case "experiment_id":
			return value{text: e.id}, true
		case "creation_time":
			return value{number: float64(e.created), numeric: true}, true
		case "last_update_time":
			return value{number: float64(e.updated), numeric: true}, true
		}
	}
	return value{}, false
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS - RUNS

func (s *Server) createRun(r *http.Request) (interface{}, *apiError) {
	var req createRunRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	e, err := s.experiment(req.ExperimentID)
	if err != nil {
		return nil, err
	}
	if e.stage != "active" {
		return nil, newAPIError(http.StatusBadRequest, codeInvalidState, "The experiment %s must be in the 'active' state. Current state is %s.", e.id, e.stage)
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	run := &run{
		info: runInfoJSON{
			RunID:          id,
			RunUUID:        id,
			RunName:        req.RunName,
			ExperimentID:   e.id,
			UserID:         req.UserID,
			Status:         "RUNNING",
			StartTime:      req.StartTime,
			ArtifactURI:    e.artifactLocation + "/" + id + "/artifacts",
			LifecycleStage: "active",
		},
		params:  map[string]string{},
		tags:    map[string]string{},
		history: map[string][]metricJSON{},
	}
	for _, tag := range req.Tags {
		run.tags[tag.Key] = tag.Value
	}
	if run.info.RunName == "" {
		run.info.RunName = run.tags["mlflow.runName"]
	}
	if run.info.RunName == "" {
		run.info.RunName = fmt.Sprintf("run-%d", len(s.runOrder)+1)
	}
	run.tags["mlflow.runName"] = run.info.RunName
	if run.info.StartTime == 0 {
		run.info.StartTime = nowMillis()
	}
	s.runs[id] = run
	s.runOrder = append(s.runOrder, id)

	return map[string]runJSON{"run": run.json()}, nil
}

func (s *Server) getRun(r *http.Request) (interface{}, *apiError) {
	run, err := s.run(r.URL.Query().Get("run_id"))
	if err != nil {
		return nil, err
	}
	return map[string]runJSON{"run": run.json()}, nil
}

func (s *Server) updateRun(r *http.Request) (interface{}, *apiError) {
	var req updateRunRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	run, err := s.run(req.RunID)
	if err != nil {
		return nil, err
	}
	if req.Status != "" {
		switch req.Status {
		case "RUNNING", "SCHEDULED", "FINISHED", "FAILED", "KILLED":
			run.info.Status = req.Status
		default:
			return nil, newAPIError(http.StatusBadRequest, codeInvalidParameterValue, "Invalid value %s for parameter 'status'", req.Status)
		}
	}
	if req.EndTime != nil {
		run.info.EndTime = *req.EndTime
	}
	if req.RunName != "" {
		run.info.RunName = req.RunName
		run.tags["mlflow.runName"] = req.RunName
	}
	return map[string]runInfoJSON{"run_info": run.info}, nil
}

func (s *Server) setRunStage(stage string) func(*http.Request) (interface{}, *apiError) {
	return func(r *http.Request) (interface{}, *apiError) {
		var req struct {
			RunID string `json:"run_id"`
		}
		if err := decode(r, &req); err != nil {
			return nil, err
		}
		run, err := s.run(req.RunID)
		if err != nil {
			return nil, err
		}
		run.info.LifecycleStage = stage
		return nil, nil
	}
}

func (s *Server) searchRuns(r *http.Request) (interface{}, *apiError) {
	var req searchRunsRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	if req.MaxResults < 0 || req.MaxResults > maxSearchResults {
		return nil, newAPIError(http.StatusBadRequest, codeInvalidParameterValue, "Invalid value %d for parameter 'max_results' supplied. It must be at most %d", req.MaxResults, maxSearchResults)
	}
	clauses, err := parseFilter(req.Filter)
	if err != nil {
		return nil, newAPIError(http.StatusBadRequest, codeInvalidParameterValue, "Error on parsing filter '%s': %v", req.Filter, err)
	}
	order, err := parseOrderBy(req.OrderBy)
	if err != nil {
		return nil, newAPIError(http.StatusBadRequest, codeInvalidParameterValue, "%v", err)
	}
	experiments := make(map[string]bool, len(req.ExperimentIDs))
	for _, id := range req.ExperimentIDs {
		experiments[id] = true
	}

	var result []*run
	for _, id := range s.runOrder {
		run := s.runs[id]
		if !experiments[run.info.ExperimentID] || !stageMatches(run.info.LifecycleStage, req.RunViewType) {
			continue
		}
		if !matchAll(clauses, run.lookup) {
			continue
		}
		result = append(result, run)
	}
	// Default order is start_time DESC, then the order runs were created
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].info.StartTime > result[j].info.StartTime
	})
	sortBy(result, order, func(r *run) lookup { return r.lookup })
	if req.MaxResults > 0 && len(result) > req.MaxResults {
		result = result[:req.MaxResults]
	}

	runs := make([]runJSON, 0, len(result))
	for _, run := range result {
		runs = append(runs, run.json())
	}
	return map[string][]runJSON{"runs": runs}, nil
}

func (s *Server) logParam(r *http.Request) (interface{}, *apiError) {
	var req runKeyValueRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	run, err := s.activeRun(req.RunID)
	if err != nil {
		return nil, err
	}
	if err := run.logParam(req.Key, req.Value); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) logMetric(r *http.Request) (interface{}, *apiError) {
	var req logMetricRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	run, err := s.activeRun(req.RunID)
	if err != nil {
		return nil, err
	}
	if req.Key == "" {
		return nil, newAPIError(http.StatusBadRequest, codeInvalidParameterValue, "Missing value for required parameter 'key'.")
	}
	run.logMetric(req.metricRequest)
	return nil, nil
}

func (s *Server) logBatch(r *http.Request) (interface{}, *apiError) {
	var req logBatchRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	run, err := s.activeRun(req.RunID)
	if err != nil {
		return nil, err
	}
	if len(req.Metrics) > maxBatchMetrics || len(req.Params) > maxBatchParams || len(req.Tags) > maxBatchTags {
		return nil, newAPIError(http.StatusBadRequest, codeInvalidParameterValue, "A batch logging request can contain at most %d metrics, %d params and %d tags", maxBatchMetrics, maxBatchParams, maxBatchTags)
	}
	for _, param := range req.Params {
		if err := run.logParam(param.Key, param.Value); err != nil {
			return nil, err
		}
	}
	for _, metric := range req.Metrics {
		run.logMetric(metric)
	}
	for _, tag := range req.Tags {
		run.setTag(tag.Key, tag.Value)
	}
	return nil, nil
}

func (s *Server) setTag(r *http.Request) (interface{}, *apiError) {
	var req runKeyValueRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	run, err := s.activeRun(req.RunID)
	if err != nil {
		return nil, err
	}
	if req.Key == "" {
		return nil, newAPIError(http.StatusBadRequest, codeInvalidParameterValue, "Missing value for required parameter 'key'.")
	}
	run.setTag(req.Key, req.Value)
	return nil, nil
}

func (s *Server) deleteTag(r *http.Request) (interface{}, *apiError) {
	var req runKeyValueRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	run, err := s.activeRun(req.RunID)
	if err != nil {
		return nil, err
	}
	if _, exists := run.tags[req.Key]; !exists {
		return nil, newAPIError(http.StatusNotFound, codeResourceDoesNotExist, "No tag with name: %s in run with id %s", req.Key, req.RunID)
	}
	delete(run.tags, req.Key)
	return nil, nil
}

func (s *Server) getMetricHistory(r *http.Request) (interface{}, *apiError) {
	query := r.URL.Query()
	run, err := s.run(query.Get("run_id"))
	if err != nil {
		return nil, err
	}
	key := query.Get("metric_key")
	if key == "" {
		return nil, newAPIError(http.StatusBadRequest, codeInvalidParameterValue, "Missing value for required parameter 'metric_key'.")
	}
	// Unknown metrics come back as an empty object
	return struct {
		Metrics []metricJSON `json:"metrics,omitempty"`
	}{run.history[key]}, nil
}

func (s *Server) run(id string) (*run, *apiError) {
	if id == "" {
		return nil, newAPIError(http.StatusBadRequest, codeInvalidParameterValue, "Missing value for required parameter 'run_id'.")
	}
	run, exists := s.runs[id]
	if !exists {
		return nil, newAPIError(http.StatusNotFound, codeResourceDoesNotExist, "Run with id=%s not found", id)
	}
	return run, nil
}

func (s *Server) activeRun(id string) (*run, *apiError) {
	run, err := s.run(id)
	if err != nil {
		return nil, err
	}
	if run.info.LifecycleStage != "active" {
		return nil, newAPIError(http.StatusBadRequest, codeInvalidState, "The run %s must be in the 'active' state. Current state is %s.", id, run.info.LifecycleStage)
	}
	return run, nil
}

func (r *run) logParam(key, value string) *apiError {
	if key == "" {
		return newAPIError(http.StatusBadRequest, codeInvalidParameterValue, "Missing value for required parameter 'key'.")
	}
	if existing, exists := r.params[key]; exists && existing != value {
		return newAPIError(http.StatusBadRequest, codeInvalidParameterValue,
			"Changing param values is not allowed. Param with key='%s' was already logged with value='%s' for run ID='%s'. Attempted logging new value '%s'.",
			key, existing, r.info.RunID, value)
	}
	r.params[key] = value
	return nil
}

func (r *run) logMetric(m metricRequest) {
	r.history[m.Key] = append(r.history[m.Key], metricJSON{
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Timestamp,
		Step:      m.Step,
	})
}

func (r *run) setTag(key, value string) {
	r.tags[key] = value
	if key == "mlflow.runName" {
		r.info.RunName = value
	}
}

// latest returns the sample with the highest step, then timestamp
func (r *run) latest(key string) (metricJSON, bool) {
	history := r.history[key]
	if len(history) == 0 {
		return metricJSON{}, false
	}
	best := history[0]
	for _, m := range history[1:] {
		if m.Step > best.Step || (m.Step == best.Step && m.Timestamp >= best.Timestamp) {
			best = m
		}
	}
	return best, true
}

func (r *run) json() runJSON {
	result := runJSON{
		Info: r.info,
		Data: runDataJSON{
			Params: tagsJSON(r.params),
			Tags:   tagsJSON(r.tags),
		},
	}
	keys := make([]string, 0, len(r.history))
	for key := range r.history {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if m, ok := r.latest(key); ok {
			result.Data.Metrics = append(result.Data.Metrics, m)
		}
	}
	return result
}

func (r *run) lookup(entity, key string) (value, bool) {
	switch entity {
	case "metrics":
		m, ok := r.latest(key)
		if !ok || math.IsNaN(float64(m.Value)) {
			return value{}, false
		}
		return value{number: float64(m.Value), numeric: true}, true
	case "params":
		v, ok := r.params[key]
		return value{text: v}, ok
	case "tags":
		v, ok := r.tags[key]
		return value{text: v}, ok
	case "attributes":
		switch key {
		case "run_id":
			return value{text: r.info.RunID}, true
		case "run_name":
			return value{text: r.info.RunName}, true
		case "status":
			return value{text: r.info.Status}, true
		case "user_id":
			return value{text: r.info.UserID}, true
		case "artifact_uri":
			return value{text: r.info.ArtifactURI}, true
		case "start_time":
			return value{number: float64(r.info.StartTime), numeric: true}, true
		case "end_time":
			return value{number: float64(r.info.EndTime), numeric: r.info.EndTime != 0}, r.info.EndTime != 0
		}
	}
	return value{}, false
}

func stageMatches(stage, viewType string) bool {
	switch viewType {
	case "ALL":
		return true
	case "DELETED_ONLY":
		return stage == "deleted"
	default:
		return stage == "active"
	}
}

func tagsJSON(tags map[string]string) []tagJSON {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	result := make([]tagJSON, 0, len(keys))
	for _, key := range keys {
		result = append(result, tagJSON{Key: key, Value: tags[key]})
	}
	return result
}
