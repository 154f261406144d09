package model

import "time"

// IndicatorPoint is the band state of one bar that has a full lookback window behind it.
type IndicatorPoint struct {
	Time              time.Time
	Close             float64
	MovingAverage     float64
	StandardDeviation float64
	UpperBand         float64
	LowerBand         float64
	BandWidth         float64 // (upper-lower)/ma, NaN or ±Inf when ma is zero
}
