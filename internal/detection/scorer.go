package detection

import (
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/irad15/wildfire-detection/internal/protocol"
	"github.com/irad15/wildfire-detection/pkg/config"
)

// ScoredPoint is the per-point output of the scorer.
type ScoredPoint struct {
	Timestamp time.Time
	RiskScore float64
	IsEvent   bool
}

// ChannelStats holds the distribution of one smoothed channel over the
// whole batch.
type ChannelStats struct {
	Mean float64
	Std  float64
}

// Scorer converts a smoothed series into bounded risk scores. Statistics are
// computed once over the whole series; each point is then scored against
// them. The only order-dependent step is the optional hysteresis fold.
type Scorer struct {
	cfg config.DetectionConfig
}

// NewScorer creates a new scorer
func NewScorer(cfg config.DetectionConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes one risk score per point, each in [0, 100], and flags the
// points whose score exceeds the alert threshold.
func (s *Scorer) Score(points []protocol.DataPoint) ([]ScoredPoint, error) {
	if len(points) == 0 {
		return nil, nil
	}

	temps := make([]float64, len(points))
	smokes := make([]float64, len(points))
	for i, dp := range points {
		temps[i] = dp.Temperature
		smokes[i] = dp.Smoke
	}

	tempStats, err := channelStats(temps)
	if err != nil {
		return nil, fmt.Errorf("temperature statistics: %w", err)
	}
	smokeStats, err := channelStats(smokes)
	if err != nil {
		return nil, fmt.Errorf("smoke statistics: %w", err)
	}

	tempDamping := logistic(tempStats.Std, s.cfg.TempPivot, s.cfg.TempSteepness)
	smokeDamping := logistic(smokeStats.Std, s.cfg.SmokePivot, s.cfg.SmokeSteepness)

	scored := make([]ScoredPoint, len(points))
	armed := true

	for i, dp := range points {
		tempSeverity := severity(dp.Temperature, tempStats)
		smokeSeverity := severity(dp.Smoke, smokeStats)
		windScore := logistic(dp.Wind, s.cfg.WindPivot, s.cfg.WindSteepness)

		risk := s.cfg.TempWeight*tempSeverity*tempDamping +
			s.cfg.SmokeWeight*smokeSeverity*smokeDamping +
			s.cfg.WindWeight*windScore
		risk = clamp(risk, 0, 100)

		isEvent := risk > s.cfg.AlertThreshold
		if s.cfg.Hysteresis {
			// One continuous incident fires once: after a hit, stay
			// disarmed until the risk falls below the reset threshold.
			isEvent = isEvent && armed
			if isEvent {
				armed = false
			} else if !armed && risk < s.cfg.ResetThreshold {
				armed = true
			}
		}

		scored[i] = ScoredPoint{
			Timestamp: dp.Timestamp,
			RiskScore: risk,
			IsEvent:   isEvent,
		}
	}

	return scored, nil
}

// channelStats computes the mean and sample standard deviation (n−1 divisor)
// of one channel. A single-point batch has undefined variance; its std is
// defined as 0, which zeroes every z-score downstream.
func channelStats(values []float64) (ChannelStats, error) {
	mean, err := stats.Mean(values)
	if err != nil {
		return ChannelStats{}, err
	}

	std := 0.0
	if len(values) >= 2 {
		std, err = stats.StandardDeviationSample(values)
		if err != nil {
			return ChannelStats{}, err
		}
	}

	return ChannelStats{Mean: mean, Std: std}, nil
}

// severity maps a value to [0, 1) through a one-sided normal CDF: the
// probability mass strictly between the mean and the value, doubled. Values
// at or below the mean score 0; a zero-std channel scores 0 everywhere.
func severity(value float64, cs ChannelStats) float64 {
	if cs.Std <= 0 {
		return 0
	}

	z := (value - cs.Mean) / cs.Std
	if z <= 0 {
		return 0
	}

	return 2 * (distuv.UnitNormal.CDF(z) - 0.5)
}

// logistic is the shared sigmoid for variance damping and wind scoring:
// 0 well below the pivot, 1 well above it.
func logistic(value, pivot, steepness float64) float64 {
	return 1.0 / (1.0 + math.Exp(steepness*(pivot-value)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
