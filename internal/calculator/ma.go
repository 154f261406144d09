package calculator

import "math"

// windowStats returns the mean and sample standard deviation of window.
// Values are shifted by the first element before summing, so a constant
// window yields exactly that value and exactly zero deviation.
func windowStats(window []float64) (ma, sd float64) {
	n := float64(len(window))
	k := window[0]
	sum := 0.0
	for _, p := range window {
		sum += p - k
	}
	shifted := sum / n

	if len(window) < 2 {
		return k + shifted, 0
	}
	ss := 0.0
	for _, p := range window {
		d := (p - k) - shifted
		ss += d * d
	}
	return k + shifted, math.Sqrt(ss / (n - 1))
}
