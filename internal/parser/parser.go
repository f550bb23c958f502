package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/imishinist/mlflow-client/internal/models"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the file format from the file extension
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported file format: %s (supported: .json, .yaml, .yml)", ext)
	}
}

// ParseParams reads a parameters file:
//
//	parameters:
//	  learning_rate: 0.01
//	  model: tree
func ParseParams(format Format, reader io.Reader) (map[string]string, error) {
	switch format {
	case FormatJSON:
		return ParseJSONParams(reader)
	case FormatYAML:
		return ParseYAMLParams(reader)
	}
	return nil, fmt.Errorf("unsupported format: %q", format)
}

// ParseMetrics reads a metrics file with one row per point in time
func ParseMetrics(format Format, reader io.Reader) (*models.MetricsFile, error) {
	switch format {
	case FormatJSON:
		return ParseJSONMetrics(reader)
	case FormatYAML:
		return ParseYAMLMetrics(reader)
	}
	return nil, fmt.Errorf("unsupported format: %q", format)
}

// ParseKeyValues parses flags in key=value format. Values may contain '='.
func ParseKeyValues(pairs []string) (map[string]string, error) {
	result := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid format: %s (expected key=value)", pair)
		}
		result[key] = value
	}
	return result, nil
}

func validateParams(params map[string]string) (map[string]string, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("no parameters found")
	}
	for key := range params {
		if strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("parameter key is empty")
		}
	}
	return params, nil
}

func validateMetrics(file *models.MetricsFile) (*models.MetricsFile, error) {
	if len(file.Metrics) == 0 {
		return nil, fmt.Errorf("no metrics found")
	}
	for i, point := range file.Metrics {
		if len(point.Values) == 0 {
			return nil, fmt.Errorf("metric point %d has no values", i)
		}
	}
	return file, nil
}
