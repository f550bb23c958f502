package timeutils

import (
	"fmt"
	"sort"
	"time"

	"github.com/imishinist/mlflow-client/internal/models"
	"github.com/imishinist/mlflow-client/pkg/mlflow"
)

// AlignTimestamp aligns timestamp to the specified resolution and alignment
func AlignTimestamp(t time.Time, resolution string, alignment string) (time.Time, error) {
	var duration time.Duration

	switch resolution {
	case "1m":
		duration = time.Minute
	case "5m":
		duration = 5 * time.Minute
	case "1h":
		duration = time.Hour
	default:
		return t, fmt.Errorf("unsupported resolution: %s", resolution)
	}

	// Truncate to the resolution
	aligned := t.Truncate(duration)

	switch alignment {
	case "floor":
		return aligned, nil
	case "ceil":
		if t.After(aligned) {
			return aligned.Add(duration), nil
		}
		return aligned, nil
	case "round":
		half := duration / 2
		if t.Sub(aligned) >= half {
			return aligned.Add(duration), nil
		}
		return aligned, nil
	default:
		return t, fmt.Errorf("unsupported alignment: %s", alignment)
	}
}

// ProcessMetrics turns metric file rows into samples. Each value in a row
// becomes one sample sharing the row's aligned timestamp and step; rows
// without a timestamp are stamped with now.
func ProcessMetrics(points []models.MetricPoint, config models.TimeConfig, baseTime *time.Time) ([]mlflow.Metric, error) {
	var result []mlflow.Metric
	var base time.Time

	if baseTime != nil {
		base = *baseTime
	} else if len(points) > 0 && points[0].Timestamp != nil {
		// Align the base like every row, so the first row is step 0
		aligned, err := AlignTimestamp(*points[0].Timestamp, config.Resolution, config.Alignment)
		if err != nil {
			return nil, err
		}
		base = aligned
	} else {
		base = time.Now()
	}
	for i, point := range points {
		var timestamp time.Time
		var step int64

		// Determine timestamp
		if point.Timestamp != nil {
			var err error
			timestamp, err = AlignTimestamp(*point.Timestamp, config.Resolution, config.Alignment)
			if err != nil {
				return nil, err
			}
		} else {
			timestamp = time.Now()
		}

		// Determine step
		if point.Step != nil {
			step = *point.Step
		} else {
			switch config.StepMode {
			case "timestamp":
				// Minutes since the base time
				step = int64(timestamp.Sub(base).Minutes())
			case "sequence":
				step = int64(i)
			case "auto":
				if point.Timestamp != nil {
					step = int64(timestamp.Sub(base).Minutes())
				} else {
					step = int64(i)
				}
			default:
				return nil, fmt.Errorf("unsupported step mode: %s", config.StepMode)
			}
		}

		// One sample per value, in key order
		keys := make([]string, 0, len(point.Values))
		for key := range point.Values {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			result = append(result, mlflow.Metric{
				Key:       key,
				Value:     point.Values[key],
				Timestamp: timestamp,
				Step:      step,
			})
		}
	}

	return result, nil
}
