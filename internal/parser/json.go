package parser

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/imishinist/mlflow-client/internal/models"
)

// ParseJSONParams accepts string, number and boolean values; numbers keep
// their literal form so "0.010" stays "0.010"
func ParseJSONParams(reader io.Reader) (map[string]string, error) {
	var data struct {
		Parameters map[string]interface{} `json:"parameters"`
	}
	decoder := json.NewDecoder(reader)
	decoder.UseNumber()

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON parameters: %w", err)
	}

	params := make(map[string]string, len(data.Parameters))
	for key, value := range data.Parameters {
		switch v := value.(type) {
		case string:
			params[key] = v
		case json.Number:
			params[key] = v.String()
		case bool:
			params[key] = fmt.Sprint(v)
		default:
			return nil, fmt.Errorf("parameter %q must be a string, number or boolean", key)
		}
	}

	return validateParams(params)
}

func ParseJSONMetrics(reader io.Reader) (*models.MetricsFile, error) {
	var data models.MetricsFile
	decoder := json.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON metrics: %w", err)
	}

	return validateMetrics(&data)
}
