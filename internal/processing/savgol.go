package processing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// savgolFilter applies Savitzky-Golay smoothing: each output sample is the
// value of a degree-polyorder polynomial least-squares fitted to the window
// centered on it. Edge positions follow scipy's "interp" convention: one
// polynomial is fitted to the first (last) full window and evaluated at the
// leading (trailing) half-window positions. Signals shorter than the window
// are returned unchanged.
func savgolFilter(signal []float64, window, polyorder int) ([]float64, error) {
	n := len(signal)
	out := make([]float64, n)
	copy(out, signal)

	if n < window {
		return out, nil
	}

	half := window / 2

	// Interior samples reduce to a fixed convolution: the fit is linear in
	// the samples, so the weights are the fitted center values of unit
	// impulses.
	weights, err := centralWeights(window, polyorder)
	if err != nil {
		return nil, err
	}
	for i := half; i < n-half; i++ {
		sum := 0.0
		for j, w := range weights {
			sum += w * signal[i-half+j]
		}
		out[i] = sum
	}

	head, err := fitPoly(signal[:window], polyorder)
	if err != nil {
		return nil, err
	}
	for i := 0; i < half; i++ {
		out[i] = evalPoly(head, float64(i))
	}

	tail, err := fitPoly(signal[n-window:], polyorder)
	if err != nil {
		return nil, err
	}
	for i := n - half; i < n; i++ {
		out[i] = evalPoly(tail, float64(i-(n-window)))
	}

	return out, nil
}

func centralWeights(window, polyorder int) ([]float64, error) {
	half := window / 2
	weights := make([]float64, window)
	impulse := make([]float64, window)

	for j := 0; j < window; j++ {
		impulse[j] = 1
		coeffs, err := fitPoly(impulse, polyorder)
		if err != nil {
			return nil, err
		}
		weights[j] = evalPoly(coeffs, float64(half))
		impulse[j] = 0
	}

	return weights, nil
}

// fitPoly fits a degree-polyorder polynomial to ys sampled at x = 0..len-1
// and returns its coefficients in ascending order.
func fitPoly(ys []float64, polyorder int) ([]float64, error) {
	rows := len(ys)
	cols := polyorder + 1

	a := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		x := 1.0
		for j := 0; j < cols; j++ {
			a.Set(i, j, x)
			x *= float64(i)
		}
	}

	var qr mat.QR
	qr.Factorize(a)

	coeffs := mat.NewVecDense(cols, nil)
	if err := qr.SolveVecTo(coeffs, false, mat.NewVecDense(rows, ys)); err != nil {
		return nil, fmt.Errorf("polynomial fit failed: %w", err)
	}

	return coeffs.RawVector().Data, nil
}

func evalPoly(coeffs []float64, x float64) float64 {
	result := 0.0
	for i := len(coeffs) - 1; i >= 0; i-- {
		result = result*x + coeffs[i]
	}
	return result
}
