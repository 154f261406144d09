package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"SqueezeSentinel/internal/model"

	"github.com/rs/zerolog"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Label string
	Bars  []model.Bar
	Err   error
	Calls int
}

func (m *MockFetcher) Name() string {
	if m.Label != "" {
		return m.Label
	}
	return "mock"
}

func (m *MockFetcher) FetchBars(ctx context.Context, _ Request) ([]model.Bar, error) {
	m.Calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]model.Bar, len(m.Bars))
	copy(out, m.Bars)
	return out, nil
}

// GenerateBars builds count one-minute bars ending at end with the given closes
// pattern repeated.
func GenerateBars(end time.Time, count int, closes ...float64) []model.Bar {
	if len(closes) == 0 {
		closes = []float64{1.1}
	}
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		c := closes[i%len(closes)]
		bars[i] = model.Bar{
			Time:  end.Add(-time.Duration(count-1-i) * time.Minute).UTC(),
			Open:  c,
			High:  c * 1.0001,
			Low:   c * 0.9999,
			Close: c,
		}
	}
	return bars
}

// Collector fetches one instrument from a primary provider and falls back to a
// secondary provider exactly once. It never retries.
type Collector struct {
	Primary    Fetcher
	Fallback   Fetcher
	Symbol     string
	Interval   string
	OutputSize int
	Timeout    time.Duration

	// OnProviderError, when set, is called for every provider failure.
	OnProviderError func(provider string, err error)

	log zerolog.Logger
}

// NewCollector creates a new Collector. fallback may be nil.
func NewCollector(primary, fallback Fetcher, symbol, interval string, outputSize int, timeout time.Duration, log zerolog.Logger) *Collector {
	return &Collector{
		Primary:    primary,
		Fallback:   fallback,
		Symbol:     symbol,
		Interval:   interval,
		OutputSize: outputSize,
		Timeout:    timeout,
		log:        log.With().Str("component", "collector").Logger(),
	}
}

// Collect returns at most one provider's bars, cleaned, deduplicated and sorted.
// minBars raises the requested output size; it does not reject short series.
func (c *Collector) Collect(ctx context.Context, minBars int) (*model.BarSeries, error) {
	req := Request{Symbol: c.Symbol, Interval: c.Interval, OutputSize: c.OutputSize}
	if minBars > req.OutputSize {
		req.OutputSize = minBars
	}

	series, primaryErr := c.fetch(ctx, c.Primary, req)
	if primaryErr == nil {
		return series, nil
	}
	c.log.Warn().Err(primaryErr).Str("provider", c.Primary.Name()).Msg("primary provider failed, trying fallback")

	if c.Fallback == nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataUnavailable, c.Primary.Name(), primaryErr)
	}
	series, fallbackErr := c.fetch(ctx, c.Fallback, req)
	if fallbackErr == nil {
		return series, nil
	}
	return nil, fmt.Errorf("%w: %s: %v; %s: %v", ErrDataUnavailable,
		c.Primary.Name(), primaryErr, c.Fallback.Name(), fallbackErr)
}

func (c *Collector) fetch(ctx context.Context, f Fetcher, req Request) (*model.BarSeries, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	start := time.Now()
	raw, err := f.FetchBars(ctx, req)
	if err == nil {
		raw = Normalize(raw)
		if len(raw) == 0 {
			err = errors.New("no usable bars")
		}
	}
	if err != nil {
		if c.OnProviderError != nil {
			c.OnProviderError(f.Name(), err)
		}
		return nil, err
	}
	c.log.Debug().Str("provider", f.Name()).Int("bars", len(raw)).
		Dur("took", time.Since(start)).Msg("bars fetched")
	return &model.BarSeries{
		Symbol:    req.Symbol,
		Interval:  req.Interval,
		Source:    f.Name(),
		Bars:      raw,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Normalize drops bars with non-finite or non-positive prices, converts times to
// UTC, sorts ascending and keeps the last occurrence of any duplicate timestamp.
func Normalize(bars []model.Bar) []model.Bar {
	clean := make([]model.Bar, 0, len(bars))
	for _, b := range bars {
		if !validPrice(b.Open) || !validPrice(b.High) || !validPrice(b.Low) || !validPrice(b.Close) {
			continue
		}
		b.Time = b.Time.UTC()
		clean = append(clean, b)
	}
	sort.SliceStable(clean, func(i, j int) bool { return clean[i].Time.Before(clean[j].Time) })

	out := clean[:0]
	for _, b := range clean {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

func validPrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
