package detection

import (
	"math"
	"time"

	"github.com/irad15/wildfire-detection/internal/processing"
	"github.com/irad15/wildfire-detection/internal/protocol"
	"github.com/irad15/wildfire-detection/pkg/config"
)

// Service runs the full pipeline for one batch: validation, smoothing,
// scoring, and summary assembly. It holds no state between calls; concurrent
// batches share nothing but the immutable config.
type Service struct {
	processor *processing.Processor
	scorer    *Scorer
}

// NewService creates a new detection service
func NewService(cfg config.DetectionConfig) *Service {
	return &Service{
		processor: processing.NewProcessor(cfg),
		scorer:    NewScorer(cfg),
	}
}

// Detect scores a raw batch and returns its summary. The batch must be
// non-empty with finite, in-range values; anything else fails validation
// before any statistics run.
func (s *Service) Detect(readings []protocol.Reading) (*protocol.Summary, error) {
	points, err := protocol.ValidateBatch(readings)
	if err != nil {
		return nil, err
	}

	smoothed, err := s.processor.Process(points)
	if err != nil {
		return nil, err
	}

	scored, err := s.scorer.Score(smoothed)
	if err != nil {
		return nil, err
	}

	return buildSummary(scored), nil
}

// Health reports whether the pipeline can serve requests.
func (s *Service) Health() bool {
	return s.processor != nil && s.scorer != nil
}

// buildSummary aggregates scored points into the response summary. Scored
// points arrive in ascending time order, so events inherit that order.
func buildSummary(scored []ScoredPoint) *protocol.Summary {
	events := []protocol.Event{}
	maxScore := 0.0

	for _, p := range scored {
		if p.RiskScore > maxScore {
			maxScore = p.RiskScore
		}
		if p.IsEvent {
			events = append(events, protocol.Event{
				Timestamp: p.Timestamp.UTC().Format(time.RFC3339),
				Score:     roundScore(p.RiskScore),
			})
		}
	}

	return &protocol.Summary{
		Events:     events,
		EventCount: len(events),
		MaxScore:   roundScore(maxScore),
	}
}

// roundScore rounds to one decimal for the wire; internal computation stays
// full precision.
func roundScore(v float64) float64 {
	return math.Round(v*10) / 10
}
