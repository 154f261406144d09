package calculator

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"SqueezeSentinel/internal/model"
)

func barsFromCloses(closes ...float64) []model.Bar {
	start := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{Time: start.Add(time.Duration(i) * time.Minute), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

func repeat(n int, pattern ...float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}
	return out
}

func TestComputeBands_InsufficientData(t *testing.T) {
	for _, n := range []int{0, 1, 19} {
		_, err := ComputeBands(barsFromCloses(repeat(n, 1.1)...), 20, 2.0)
		if !errors.Is(err, ErrInsufficientData) {
			t.Errorf("n=%d: expected ErrInsufficientData, got %v", n, err)
		}
	}
}

func TestComputeBands_RejectsTinyPeriod(t *testing.T) {
	if _, err := ComputeBands(barsFromCloses(1, 2, 3), 1, 2.0); err == nil {
		t.Fatal("expected error for period 1")
	}
}

func TestComputeBands_ConstantClosesZeroWidth(t *testing.T) {
	points, err := ComputeBands(barsFromCloses(repeat(25, 1.0842)...), 20, 2.0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(points) != 6 {
		t.Fatalf("expected 6 evaluable points, got %d", len(points))
	}
	for i, p := range points {
		if p.BandWidth != 0 {
			t.Errorf("point %d: expected zero width, got %v", i, p.BandWidth)
		}
		if p.UpperBand != p.LowerBand {
			t.Errorf("point %d: bands should coincide", i)
		}
	}
}

func TestComputeBands_SampleStdDev(t *testing.T) {
	// 1..20: mean 10.5, sample variance 35
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	points, err := ComputeBands(barsFromCloses(closes...), 20, 2.0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	p := points[0]
	if p.MovingAverage != 10.5 {
		t.Errorf("expected MA 10.5, got %v", p.MovingAverage)
	}
	wantSD := math.Sqrt(35)
	if math.Abs(p.StandardDeviation-wantSD) > 1e-12 {
		t.Errorf("expected SD %v, got %v", wantSD, p.StandardDeviation)
	}
	wantBW := 4 * wantSD / 10.5
	if math.Abs(p.BandWidth-wantBW) > 1e-12 {
		t.Errorf("expected BW %v, got %v", wantBW, p.BandWidth)
	}
	if math.Abs(p.UpperBand-(10.5+2*wantSD)) > 1e-12 || math.Abs(p.LowerBand-(10.5-2*wantSD)) > 1e-12 {
		t.Errorf("unexpected bands %v / %v", p.UpperBand, p.LowerBand)
	}
}

func TestComputeBands_AttachesToLaterBars(t *testing.T) {
	bars := barsFromCloses(repeat(22, 1.1, 1.2)...)
	points, err := ComputeBands(bars, 20, 2.0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if !points[0].Time.Equal(bars[19].Time) || !points[2].Time.Equal(bars[21].Time) {
		t.Errorf("points not aligned with bars 19..21")
	}
	last, err := Latest(points)
	if err != nil || last.Close != bars[21].Close {
		t.Errorf("Latest returned %+v, %v", last, err)
	}
}

func TestComputeBands_ZeroMovingAverage(t *testing.T) {
	points, err := ComputeBands(barsFromCloses(repeat(20, 0)...), 20, 2.0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !math.IsNaN(points[0].BandWidth) {
		t.Errorf("expected NaN width for zero MA, got %v", points[0].BandWidth)
	}

	points, err = ComputeBands(barsFromCloses(repeat(20, 1, -1)...), 20, 2.0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !math.IsInf(points[0].BandWidth, 0) {
		t.Errorf("expected infinite width for zero MA with spread, got %v", points[0].BandWidth)
	}
}

func TestComputeBands_Deterministic(t *testing.T) {
	bars := barsFromCloses(repeat(30, 1.10004, 1.09996, 1.10001)...)
	a, _ := ComputeBands(bars, 20, 2.0)
	b, _ := ComputeBands(bars, 20, 2.0)
	if !reflect.DeepEqual(a, b) {
		t.Error("expected identical output for identical input")
	}
}

func TestWindowStats_SampleDeviation(t *testing.T) {
	prices := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	ma, sd := windowStats(prices)
	if ma != 5 {
		t.Errorf("expected mean 5, got %v", ma)
	}
	if math.Abs(sd-math.Sqrt(32.0/7.0)) > 1e-12 {
		t.Errorf("expected sample SD sqrt(32/7), got %v", sd)
	}
	if _, err := ComputeBands(barsFromCloses(prices...), 9, 2.0); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}
