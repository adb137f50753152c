package processing

import (
	"fmt"
	"math"
	"sort"

	"github.com/irad15/wildfire-detection/internal/protocol"
	"github.com/irad15/wildfire-detection/pkg/config"
)

// Processor implements the ordering and smoothing stage: readings are
// stable-sorted by timestamp, temperature and smoke are smoothed with a
// Savitzky-Golay filter, and smoke is re-clamped to its physical bounds.
// Wind is never touched. Spike suppression before smoothing is optional and
// config-gated.
type Processor struct {
	cfg config.DetectionConfig
}

// NewProcessor creates a new processor
func NewProcessor(cfg config.DetectionConfig) *Processor {
	return &Processor{cfg: cfg}
}

// Process returns a smoothed copy of the batch in ascending time order. The
// input slice is not modified. Length and timestamps are preserved.
func (p *Processor) Process(points []protocol.DataPoint) ([]protocol.DataPoint, error) {
	if len(points) == 0 {
		return nil, nil
	}

	sorted := sortByTimestamp(points)

	temps := make([]float64, len(sorted))
	smokes := make([]float64, len(sorted))
	for i, dp := range sorted {
		temps[i] = dp.Temperature
		smokes[i] = dp.Smoke
	}

	if p.cfg.SuppressSpikes {
		temps = suppressSpikes(temps, p.cfg.TempSpikeThreshold)
		smokes = suppressSpikes(smokes, p.cfg.SmokeSpikeThreshold)
	}

	smoothedTemps, err := savgolFilter(temps, p.cfg.SmoothingWindow, p.cfg.PolyOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to smooth temperature: %w", err)
	}

	smoothedSmokes, err := savgolFilter(smokes, p.cfg.SmoothingWindow, p.cfg.PolyOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to smooth smoke: %w", err)
	}

	processed := make([]protocol.DataPoint, len(sorted))
	for i, dp := range sorted {
		processed[i] = protocol.DataPoint{
			Timestamp:   dp.Timestamp,
			Temperature: roundTo(smoothedTemps[i], 2),
			// Smoothing can overshoot the physical bounds near spikes
			Smoke: roundTo(clamp(smoothedSmokes[i], 0, 1), 4),
			Wind:  dp.Wind,
		}
	}

	return processed, nil
}

// sortByTimestamp returns a copy sorted by timestamp ascending. The sort is
// stable so equal timestamps keep their input order.
func sortByTimestamp(points []protocol.DataPoint) []protocol.DataPoint {
	sorted := make([]protocol.DataPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// suppressSpikes replaces isolated single-sample spikes (peaks and dips)
// with the midpoint of their neighbors. A sample is a spike when it deviates
// from both neighbors by more than the threshold. Edge samples are left
// alone: without context on both sides, noise and real signal changes are
// indistinguishable.
func suppressSpikes(signal []float64, threshold float64) []float64 {
	fixed := make([]float64, len(signal))
	copy(fixed, signal)

	if len(fixed) < 3 {
		return fixed
	}

	for i := 1; i < len(fixed)-1; i++ {
		prev := fixed[i-1]
		curr := fixed[i]
		next := fixed[i+1]

		isPeak := curr-prev > threshold && curr-next > threshold
		isDip := prev-curr > threshold && next-curr > threshold

		if isPeak || isDip {
			fixed[i] = (prev + next) / 2.0
		}
	}

	return fixed
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

func roundTo(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
