package parser_test

import (
	"strings"
	"testing"
	"time"

	// Packages
	parser "github.com/imishinist/mlflow-client/internal/parser"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func Test_Parser_001(t *testing.T) {
	assert := assert.New(t)

	tests := []struct {
		path   string
		format parser.Format
	}{
		{"params.json", parser.FormatJSON},
		{"PARAMS.JSON", parser.FormatJSON},
		{"dir/metrics.yaml", parser.FormatYAML},
		{"metrics.yml", parser.FormatYAML},
	}
	for _, test := range tests {
		format, err := parser.FormatOf(test.path)
		if assert.NoError(err, test.path) {
			assert.Equal(test.format, format, test.path)
		}
	}

	for _, path := range []string{"metrics.csv", "params", "params.json.bak"} {
		_, err := parser.FormatOf(path)
		assert.Error(err, path)
	}
}

func Test_Parser_002(t *testing.T) {
	assert := assert.New(t)

	params, err := parser.ParseParams(parser.FormatJSON, strings.NewReader(`{
		"parameters": {"lr": 0.010, "model": "tree", "shuffle": true, "depth": 3}
	}`))
	require.NoError(t, err)
	assert.Equal(map[string]string{
		"lr":      "0.010",
		"model":   "tree",
		"shuffle": "true",
		"depth":   "3",
	}, params)

	params, err = parser.ParseParams(parser.FormatYAML, strings.NewReader(`
parameters:
  lr: 0.010
  model: tree
  shuffle: true
`))
	require.NoError(t, err)
	assert.Equal(map[string]string{
		"lr":      "0.010",
		"model":   "tree",
		"shuffle": "true",
	}, params)
}

func Test_Parser_003(t *testing.T) {
	assert := assert.New(t)

	tests := []struct {
		format parser.Format
		input  string
	}{
		{parser.FormatJSON, `{"parameters": {}}`},
		{parser.FormatJSON, `{"parameters": {"nested": {"a": 1}}}`},
		{parser.FormatJSON, `{"parameters": {"list": [1, 2]}}`},
		{parser.FormatJSON, `not json`},
		{parser.FormatYAML, "parameters:\n  nested:\n    a: 1\n"},
		{parser.FormatYAML, "params:\n  lr: 0.1\n"},
		{parser.FormatYAML, "parameters: {}\n"},
		{parser.Format("csv"), "lr,0.1"},
	}
	for _, test := range tests {
		_, err := parser.ParseParams(test.format, strings.NewReader(test.input))
		assert.Error(err, test.input)
	}
}

func Test_Parser_004(t *testing.T) {
	assert := assert.New(t)

	file, err := parser.ParseMetrics(parser.FormatJSON, strings.NewReader(`{"metrics": [
		{"timestamp": "2024-01-01T10:00:00Z", "execution_time": 1.5, "error_count": 0},
		{"step": 7, "execution_time": 2.5}
	]}`))
	require.NoError(t, err)
	require.Len(t, file.Metrics, 2)

	first := file.Metrics[0]
	if assert.NotNil(first.Timestamp) {
		assert.True(first.Timestamp.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))
	}
	assert.Nil(first.Step)
	assert.Equal(map[string]float64{"execution_time": 1.5, "error_count": 0}, first.Values)

	second := file.Metrics[1]
	assert.Nil(second.Timestamp)
	if assert.NotNil(second.Step) {
		assert.Equal(int64(7), *second.Step)
	}
	assert.Equal(map[string]float64{"execution_time": 2.5}, second.Values)
}

func Test_Parser_005(t *testing.T) {
	assert := assert.New(t)

	file, err := parser.ParseMetrics(parser.FormatYAML, strings.NewReader(`
metrics:
  - timestamp: 2024-01-01T10:00:00Z
    accuracy: 0.95
    loss: 0.05
  - step: 2
    accuracy: 0.97
`))
	require.NoError(t, err)
	require.Len(t, file.Metrics, 2)
	assert.NotNil(file.Metrics[0].Timestamp)
	assert.Equal(map[string]float64{"accuracy": 0.95, "loss": 0.05}, file.Metrics[0].Values)
	if assert.NotNil(file.Metrics[1].Step) {
		assert.Equal(int64(2), *file.Metrics[1].Step)
	}
}

func Test_Parser_006(t *testing.T) {
	assert := assert.New(t)

	tests := []struct {
		format parser.Format
		input  string
	}{
		{parser.FormatJSON, `{"metrics": []}`},
		{parser.FormatJSON, `{"metrics": [{"timestamp": "2024-01-01T10:00:00Z"}]}`},
		{parser.FormatJSON, `{"metrics": [{"loss": "high"}]}`},
		{parser.FormatJSON, `{"metrics": [{"timestamp": "yesterday", "loss": 1}]}`},
		{parser.FormatYAML, "metrics:\n  - loss: high\n"},
		{parser.FormatYAML, "metrics:\n  - step: one\n    loss: 1\n"},
		{parser.FormatYAML, "metrics:\n  - 1\n"},
	}
	for _, test := range tests {
		_, err := parser.ParseMetrics(test.format, strings.NewReader(test.input))
		assert.Error(err, test.input)
	}
}

func Test_Parser_007(t *testing.T) {
	assert := assert.New(t)

	values, err := parser.ParseKeyValues([]string{"a=1", "query=x=y", "empty="})
	require.NoError(t, err)
	assert.Equal(map[string]string{"a": "1", "query": "x=y", "empty": ""}, values)

	values, err = parser.ParseKeyValues(nil)
	require.NoError(t, err)
	assert.Empty(values)

	for _, pair := range []string{"novalue", "=1", " =1"} {
		_, err := parser.ParseKeyValues([]string{pair})
		assert.Error(err, pair)
	}
}
