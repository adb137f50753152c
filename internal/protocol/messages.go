package protocol

import (
	"fmt"
	"math"
	"time"
)

// Physical bounds for incoming readings. Temperature is in °C, smoke is a
// normalized obscuration level, wind is in m/s.
const (
	MinTemperature = -50.0
	MaxTemperature = 100.0
	MinSmoke       = 0.0
	MaxSmoke       = 1.0
	MinWind        = 0.0
)

// Reading is a single sensor sample as it appears on the wire.
type Reading struct {
	Timestamp   string  `json:"timestamp"`
	Temperature float64 `json:"temperature"`
	Smoke       float64 `json:"smoke"`
	Wind        float64 `json:"wind"`
}

// DataPoint is a reading with a parsed timestamp, ready for the pipeline.
type DataPoint struct {
	Timestamp   time.Time
	Temperature float64
	Smoke       float64
	Wind        float64
}

// Parse converts a Reading to a DataPoint
func (r *Reading) Parse() (DataPoint, error) {
	ts, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return DataPoint{}, fmt.Errorf("invalid timestamp %q: must be RFC3339 (e.g. 2025-08-01T10:00:00Z)", r.Timestamp)
	}

	return DataPoint{
		Timestamp:   ts,
		Temperature: r.Temperature,
		Smoke:       r.Smoke,
		Wind:        r.Wind,
	}, nil
}

// Event is one flagged point in a detection summary.
type Event struct {
	Timestamp string  `json:"timestamp"`
	Score     float64 `json:"score"`
}

// Summary is the result of running detection over one batch.
type Summary struct {
	Events     []Event `json:"events"`
	EventCount int     `json:"event_count"`
	MaxScore   float64 `json:"max_score"`
}

// ValidationError marks input the caller must fix. The HTTP layer maps it to
// 422; everything else is treated as an internal failure.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ValidateBatch checks a raw batch and converts it to data points. The whole
// batch is rejected on the first bad reading: a single NaN would poison the
// batch statistics, so nothing is ever partially processed.
func ValidateBatch(readings []Reading) ([]DataPoint, error) {
	if len(readings) == 0 {
		return nil, validationErrorf("input data cannot be empty: provide at least one reading")
	}

	points := make([]DataPoint, 0, len(readings))
	for i, r := range readings {
		point, err := r.Parse()
		if err != nil {
			return nil, validationErrorf("reading %d: %v", i, err)
		}

		if err := validateValues(&r); err != nil {
			return nil, validationErrorf("reading %d: %v", i, err)
		}

		points = append(points, point)
	}

	return points, nil
}

func validateValues(r *Reading) error {
	for _, field := range []struct {
		name  string
		value float64
	}{
		{"temperature", r.Temperature},
		{"smoke", r.Smoke},
		{"wind", r.Wind},
	} {
		if math.IsNaN(field.value) || math.IsInf(field.value, 0) {
			return fmt.Errorf("%s must be a finite number", field.name)
		}
	}

	if r.Temperature < MinTemperature || r.Temperature > MaxTemperature {
		return fmt.Errorf("temperature %.2f out of range [%.0f, %.0f]",
			r.Temperature, MinTemperature, MaxTemperature)
	}
	if r.Smoke < MinSmoke || r.Smoke > MaxSmoke {
		return fmt.Errorf("smoke %.4f out of range [%.0f, %.0f]", r.Smoke, MinSmoke, MaxSmoke)
	}
	if r.Wind < MinWind {
		return fmt.Errorf("wind %.2f must be non-negative", r.Wind)
	}

	return nil
}
