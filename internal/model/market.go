package model

import "time"

// Bar represents a single OHLC observation. Time is always UTC.
type Bar struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// BarSeries holds bars sorted ascending by time with no duplicate timestamps.
type BarSeries struct {
	Symbol    string
	Interval  string
	Source    string // provider that served the bars
	Bars      []Bar
	FetchedAt time.Time
}

// Len returns the number of bars in the series.
func (s *BarSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Last returns the most recent bar.
func (s *BarSeries) Last() Bar {
	return s.Bars[len(s.Bars)-1]
}
