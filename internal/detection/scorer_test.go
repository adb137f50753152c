package detection

import (
	"math"
	"testing"
	"time"

	"github.com/irad15/wildfire-detection/internal/protocol"
	"github.com/irad15/wildfire-detection/pkg/config"
)

func testConfig() config.DetectionConfig {
	return config.DetectionConfig{
		SmoothingWindow:     13,
		PolyOrder:           2,
		TempSpikeThreshold:  10.0,
		SmokeSpikeThreshold: 0.6,
		TempPivot:           4.0,
		TempSteepness:       3.0,
		SmokePivot:          0.02,
		SmokeSteepness:      20.0,
		WindPivot:           6.0,
		WindSteepness:       0.8,
		TempWeight:          60,
		SmokeWeight:         60,
		WindWeight:          15,
		AlertThreshold:      70,
		Hysteresis:          false,
		ResetThreshold:      65,
	}
}

func points(temps, smokes, winds []float64) []protocol.DataPoint {
	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	pts := make([]protocol.DataPoint, len(temps))
	for i := range temps {
		pts[i] = protocol.DataPoint{
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Temperature: temps[i],
			Smoke:       smokes[i],
			Wind:        winds[i],
		}
	}
	return pts
}

func repeat(n int, v float64) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = v
	}
	return vals
}

func TestScore_Empty(t *testing.T) {
	s := NewScorer(testConfig())

	scored, err := s.Score(nil)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if scored != nil {
		t.Errorf("Expected nil for empty input, got %d points", len(scored))
	}
}

func TestScore_ConstantBatchScoresNearZero(t *testing.T) {
	s := NewScorer(testConfig())

	scored, err := s.Score(points(repeat(10, 20.0), repeat(10, 0.01), repeat(10, 0.0)))
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	// Zero variance zeroes both severities; only the wind term remains
	for i, sp := range scored {
		if sp.RiskScore > 1.0 {
			t.Errorf("Point %d: expected near-zero risk, got %.2f", i, sp.RiskScore)
		}
		if sp.IsEvent {
			t.Errorf("Point %d flagged as event on a constant batch", i)
		}
	}
}

func TestScore_BoundedRisk(t *testing.T) {
	s := NewScorer(testConfig())

	temps := []float64{-50, 100, 20, 20, 100, -50, 60, 20, 100, 20, 20}
	smokes := []float64{0, 1, 0.01, 0.01, 1, 0, 0.5, 0.01, 1, 0.01, 0.01}
	winds := []float64{0, 50, 3, 3, 50, 0, 10, 3, 50, 3, 3}

	scored, err := s.Score(points(temps, smokes, winds))
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	for i, sp := range scored {
		if sp.RiskScore < 0.0 || sp.RiskScore > 100.0 {
			t.Errorf("Point %d risk out of bounds: %.2f", i, sp.RiskScore)
		}
	}
}

func TestScore_SpikeClampsToMax(t *testing.T) {
	s := NewScorer(testConfig())

	temps := repeat(11, 20.0)
	smokes := repeat(11, 0.01)
	winds := repeat(11, 0.0)
	temps[5] = 80.0
	smokes[5] = 0.5

	scored, err := s.Score(points(temps, smokes, winds))
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if scored[5].RiskScore != 100.0 {
		t.Errorf("Expected spike risk clamped to 100, got %.2f", scored[5].RiskScore)
	}
	if !scored[5].IsEvent {
		t.Error("Spike not flagged as event")
	}

	eventCount := 0
	for _, sp := range scored {
		if sp.IsEvent {
			eventCount++
		}
	}
	if eventCount != 1 {
		t.Errorf("Expected exactly 1 event, got %d", eventCount)
	}
}

func TestScore_BelowMeanScoresZeroSeverity(t *testing.T) {
	s := NewScorer(testConfig())

	// The cold outlier is below the mean; its risk is wind-only (zero here)
	temps := repeat(11, 20.0)
	temps[5] = -40.0

	scored, err := s.Score(points(temps, repeat(11, 0.01), repeat(11, 0.0)))
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if scored[5].RiskScore > 1.0 {
		t.Errorf("Below-mean outlier scored %.2f, expected near zero", scored[5].RiskScore)
	}
}

func TestScore_TemperatureAloneStaysBelowThreshold(t *testing.T) {
	s := NewScorer(testConfig())

	// Temperature spikes but smoke is flat: the temp term alone cannot
	// exceed the alert threshold
	temps := repeat(11, 20.0)
	temps[5] = 80.0

	scored, err := s.Score(points(temps, repeat(11, 0.01), repeat(11, 0.0)))
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	for i, sp := range scored {
		if sp.IsEvent {
			t.Errorf("Point %d flagged without smoke corroboration, risk %.2f", i, sp.RiskScore)
		}
	}
	if scored[5].RiskScore <= 20.0 || scored[5].RiskScore >= 70.0 {
		t.Errorf("Expected elevated but sub-threshold risk, got %.2f", scored[5].RiskScore)
	}
}

func TestScore_HysteresisCollapsesPlateau(t *testing.T) {
	temps := repeat(20, 20.0)
	smokes := repeat(20, 0.01)
	winds := repeat(20, 0.0)
	for i := 10; i < 13; i++ {
		temps[i] = 80.0
		smokes[i] = 0.5
	}

	countEvents := func(cfg config.DetectionConfig) int {
		s := NewScorer(cfg)
		scored, err := s.Score(points(temps, smokes, winds))
		if err != nil {
			t.Fatalf("Score failed: %v", err)
		}
		n := 0
		for _, sp := range scored {
			if sp.IsEvent {
				n++
			}
		}
		return n
	}

	if got := countEvents(testConfig()); got != 3 {
		t.Errorf("Without hysteresis: expected 3 events, got %d", got)
	}

	cfg := testConfig()
	cfg.Hysteresis = true
	if got := countEvents(cfg); got != 1 {
		t.Errorf("With hysteresis: expected 1 event, got %d", got)
	}
}

func TestChannelStats_SinglePoint(t *testing.T) {
	cs, err := channelStats([]float64{42.0})
	if err != nil {
		t.Fatalf("channelStats failed: %v", err)
	}

	if cs.Mean != 42.0 {
		t.Errorf("Expected mean 42.0, got %.2f", cs.Mean)
	}
	if cs.Std != 0.0 {
		t.Errorf("Expected std 0 for single point, got %.4f", cs.Std)
	}
}

func TestSeverity(t *testing.T) {
	cs := ChannelStats{Mean: 20.0, Std: 5.0}

	if got := severity(15.0, cs); got != 0.0 {
		t.Errorf("Below-mean severity: expected 0, got %.4f", got)
	}
	if got := severity(20.0, cs); got != 0.0 {
		t.Errorf("At-mean severity: expected 0, got %.4f", got)
	}

	// One standard deviation above the mean is the 68-95-99.7 rule
	got := severity(25.0, cs)
	if math.Abs(got-0.6827) > 0.001 {
		t.Errorf("z=1 severity: expected ~0.6827, got %.4f", got)
	}

	if got := severity(99.0, ChannelStats{Mean: 20.0, Std: 0.0}); got != 0.0 {
		t.Errorf("Zero-std severity: expected 0, got %.4f", got)
	}

	// Severity is strictly increasing above the mean
	prev := 0.0
	for _, v := range []float64{21.0, 25.0, 30.0, 40.0} {
		got := severity(v, cs)
		if got <= prev {
			t.Errorf("Severity not increasing: severity(%.0f)=%.4f <= %.4f", v, got, prev)
		}
		prev = got
	}
}

func TestScore_RiskMonotonicInTemperature(t *testing.T) {
	s := NewScorer(testConfig())

	// Same batch, hotter spike: the spike's risk never decreases
	riskAt := func(spikeTemp float64) float64 {
		temps := repeat(11, 20.0)
		temps[5] = spikeTemp
		scored, err := s.Score(points(temps, repeat(11, 0.01), repeat(11, 0.0)))
		if err != nil {
			t.Fatalf("Score failed: %v", err)
		}
		return scored[5].RiskScore
	}

	prev := 0.0
	for _, temp := range []float64{25.0, 40.0, 60.0, 80.0} {
		risk := riskAt(temp)
		if risk < prev {
			t.Errorf("Risk decreased with hotter spike: riskAt(%.0f)=%.2f < %.2f", temp, risk, prev)
		}
		prev = risk
	}
}

func TestLogistic(t *testing.T) {
	if got := logistic(6.0, 6.0, 0.8); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("At pivot: expected 0.5, got %.4f", got)
	}

	low := logistic(0.0, 6.0, 0.8)
	high := logistic(20.0, 6.0, 0.8)
	if low >= 0.1 {
		t.Errorf("Well below pivot: expected near 0, got %.4f", low)
	}
	if high <= 0.9 {
		t.Errorf("Well above pivot: expected near 1, got %.4f", high)
	}
	if low >= high {
		t.Error("Logistic not increasing")
	}
}
