package processing

import (
	"math"
	"testing"
)

func TestSavgolFilter_PreservesLinearSignal(t *testing.T) {
	signal := make([]float64, 20)
	for i := range signal {
		signal[i] = 3.0 + 0.5*float64(i)
	}

	smoothed, err := savgolFilter(signal, 7, 2)
	if err != nil {
		t.Fatalf("savgolFilter failed: %v", err)
	}

	// A quadratic fit reproduces a line exactly, edges included
	for i := range signal {
		if math.Abs(smoothed[i]-signal[i]) > 1e-8 {
			t.Errorf("Sample %d: expected %.6f, got %.6f", i, signal[i], smoothed[i])
		}
	}
}

func TestSavgolFilter_PreservesConstantSignal(t *testing.T) {
	signal := make([]float64, 30)
	for i := range signal {
		signal[i] = 25.0
	}

	smoothed, err := savgolFilter(signal, 13, 2)
	if err != nil {
		t.Fatalf("savgolFilter failed: %v", err)
	}

	for i := range signal {
		if math.Abs(smoothed[i]-25.0) > 1e-8 {
			t.Errorf("Sample %d: expected 25.0, got %.6f", i, smoothed[i])
		}
	}
}

func TestSavgolFilter_ReducesSpike(t *testing.T) {
	signal := make([]float64, 30)
	for i := range signal {
		signal[i] = 25.0
	}
	signal[15] = 99.9

	smoothed, err := savgolFilter(signal, 13, 2)
	if err != nil {
		t.Fatalf("savgolFilter failed: %v", err)
	}

	// The spike spreads over the window; its center drops well below 60
	if smoothed[15] >= 60.0 {
		t.Errorf("Expected spike to be reduced below 60, got %.2f", smoothed[15])
	}
	if smoothed[15] <= 25.0 {
		t.Errorf("Expected spike center to stay above baseline, got %.2f", smoothed[15])
	}

	// Samples far from the spike are unaffected
	if math.Abs(smoothed[0]-25.0) > 1e-6 {
		t.Errorf("Expected sample 0 unchanged, got %.6f", smoothed[0])
	}
}

func TestSavgolFilter_ShortSignalIdentity(t *testing.T) {
	signal := []float64{10.0, 99.0, 10.0, 50.0, 10.0}

	smoothed, err := savgolFilter(signal, 13, 2)
	if err != nil {
		t.Fatalf("savgolFilter failed: %v", err)
	}

	for i := range signal {
		if smoothed[i] != signal[i] {
			t.Errorf("Sample %d: expected %.1f unchanged, got %.1f", i, signal[i], smoothed[i])
		}
	}
}

func TestSavgolFilter_DoesNotModifyInput(t *testing.T) {
	signal := make([]float64, 20)
	for i := range signal {
		signal[i] = float64(i * i)
	}
	original := make([]float64, len(signal))
	copy(original, signal)

	if _, err := savgolFilter(signal, 7, 2); err != nil {
		t.Fatalf("savgolFilter failed: %v", err)
	}

	for i := range signal {
		if signal[i] != original[i] {
			t.Errorf("Input sample %d modified: %.1f -> %.1f", i, original[i], signal[i])
		}
	}
}
