package calculator

import (
	"errors"
	"fmt"

	"SqueezeSentinel/internal/model"
)

// ErrInsufficientData is returned when the series is shorter than the lookback period.
var ErrInsufficientData = errors.New("insufficient data")

// ComputeBands returns one IndicatorPoint per bar from index period-1 onwards.
// The standard deviation is the sample (n-1) estimate. A zero moving average
// yields a NaN or infinite band width rather than a panic.
func ComputeBands(bars []model.Bar, period int, stdMultiplier float64) ([]model.IndicatorPoint, error) {
	if period < 2 {
		return nil, fmt.Errorf("period must be at least 2, got %d", period)
	}
	if len(bars) < period {
		return nil, fmt.Errorf("%w: %d bars, need %d", ErrInsufficientData, len(bars), period)
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	points := make([]model.IndicatorPoint, 0, len(bars)-period+1)
	for i := period - 1; i < len(bars); i++ {
		window := closes[i-period+1 : i+1]
		ma, sd := windowStats(window)
		upper := ma + stdMultiplier*sd
		lower := ma - stdMultiplier*sd
		points = append(points, model.IndicatorPoint{
			Time:              bars[i].Time,
			Close:             bars[i].Close,
			MovingAverage:     ma,
			StandardDeviation: sd,
			UpperBand:         upper,
			LowerBand:         lower,
			BandWidth:         (upper - lower) / ma,
		})
	}
	return points, nil
}

// Latest returns the most recent indicator point.
func Latest(points []model.IndicatorPoint) (model.IndicatorPoint, error) {
	if len(points) == 0 {
		return model.IndicatorPoint{}, ErrInsufficientData
	}
	return points[len(points)-1], nil
}
