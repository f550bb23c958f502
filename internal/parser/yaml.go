package parser

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/imishinist/mlflow-client/internal/models"
)

// ParseYAMLParams keeps scalar values as written, so "lr: 0.010" is "0.010"
func ParseYAMLParams(reader io.Reader) (map[string]string, error) {
	var data models.ParametersFile
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML parameters: %w", err)
	}

	return validateParams(data.Parameters)
}

func ParseYAMLMetrics(reader io.Reader) (*models.MetricsFile, error) {
	var data models.MetricsFile
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML metrics: %w", err)
	}

	return validateMetrics(&data)
}
