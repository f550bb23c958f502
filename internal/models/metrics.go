package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// MetricPoint is one row of a metrics file. Besides the optional timestamp
// and step, every key is a metric name with a numeric value:
//
//	{"timestamp": "2024-01-01T00:00:00Z", "execution_time": 1.5, "error_count": 0}
type MetricPoint struct {
	Timestamp *time.Time         `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Step      *int64             `json:"step,omitempty" yaml:"step,omitempty"`
	Values    map[string]float64 `json:"values" yaml:"values"`
}

type MetricsFile struct {
	Metrics []MetricPoint `json:"metrics" yaml:"metrics"`
}

type TimeConfig struct {
	Resolution string // 1m, 5m, 1h
	Alignment  string // floor, ceil, round
	StepMode   string // auto, timestamp, sequence
}

func (p *MetricPoint) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*p = MetricPoint{Values: make(map[string]float64, len(fields))}
	for key, raw := range fields {
		if bytes.Equal(raw, []byte("null")) {
			continue
		}
		switch key {
		case "timestamp":
			var t time.Time
			if err := json.Unmarshal(raw, &t); err != nil {
				return fmt.Errorf("invalid timestamp %s: %w", raw, err)
			}
			p.Timestamp = &t
		case "step":
			var step int64
			if err := json.Unmarshal(raw, &step); err != nil {
				return fmt.Errorf("invalid step %s: %w", raw, err)
			}
			p.Step = &step
		default:
			var value float64
			if err := json.Unmarshal(raw, &value); err != nil {
				return fmt.Errorf("metric %q must be a number, got %s", key, raw)
			}
			p.Values[key] = value
		}
	}
	return nil
}

func (p *MetricPoint) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: metric point must be a mapping", node.Line)
	}

	*p = MetricPoint{Values: make(map[string]float64, len(node.Content)/2)}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		if value.ShortTag() == "!!null" {
			continue
		}
		switch key {
		case "timestamp":
			var t time.Time
			if err := value.Decode(&t); err != nil {
				return fmt.Errorf("line %d: invalid timestamp %q: %w", value.Line, value.Value, err)
			}
			p.Timestamp = &t
		case "step":
			var step int64
			if err := value.Decode(&step); err != nil {
				return fmt.Errorf("line %d: invalid step %q: %w", value.Line, value.Value, err)
			}
			p.Step = &step
		default:
			var v float64
			if err := value.Decode(&v); err != nil {
				return fmt.Errorf("line %d: metric %q must be a number, got %q", value.Line, key, value.Value)
			}
			p.Values[key] = v
		}
	}
	return nil
}
