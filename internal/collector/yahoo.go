package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"SqueezeSentinel/internal/model"
)

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL   string
	Symbol    string // chart ticker; derived from the request symbol when empty
	Interval  string // chart interval; derived from the request interval when empty
	Range     string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(baseURL, symbol, interval, rng string, timeout time.Duration, proxyURL string) *YahooFetcher {
	return &YahooFetcher{
		BaseURL:  baseURL,
		Symbol:   symbol,
		Interval: interval,
		Range:    rng,
		Client:   newHTTPClient(timeout, proxyURL),
		SymbolMap: map[string]string{
			"EUR/USD": "EURUSD=X",
			"GBP/USD": "GBPUSD=X",
			"USD/JPY": "JPY=X",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if f.Symbol != "" {
		return f.Symbol
	}
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return strings.ReplaceAll(symbol, "/", "") + "=X"
}

var yahooIntervals = map[string]string{
	"1min":  "1m",
	"5min":  "5m",
	"15min": "15m",
	"30min": "30m",
	"1h":    "60m",
	"1day":  "1d",
}

func (f *YahooFetcher) yahooInterval(interval string) string {
	if f.Interval != "" {
		return f.Interval
	}
	if mapped, ok := yahooIntervals[interval]; ok {
		return mapped
	}
	return interval
}

// yahooChart is the response structure from Yahoo Finance chart API.
// Quote vectors contain nulls for missing bars, hence the pointers.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open  []*float64 `json:"open"`
					High  []*float64 `json:"high"`
					Low   []*float64 `json:"low"`
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (f *YahooFetcher) FetchBars(ctx context.Context, r Request) ([]model.Bar, error) {
	rng := f.Range
	if rng == "" {
		rng = "1d"
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.BaseURL, url.PathEscape(f.yahooSymbol(r.Symbol)), url.QueryEscape(f.yahooInterval(r.Interval)), url.QueryEscape(rng))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned")
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no quote vectors")
	}
	quote := result.Indicators.Quote[0]
	bars := make([]model.Bar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		o, ok1 := at(quote.Open, i)
		h, ok2 := at(quote.High, i)
		l, ok3 := at(quote.Low, i)
		c, ok4 := at(quote.Close, i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue // null bar
		}
		bars = append(bars, model.Bar{
			Time:  time.Unix(ts, 0).UTC(),
			Open:  o,
			High:  h,
			Low:   l,
			Close: c,
		})
	}
	return bars, nil
}

// at returns vec[i] when present and non-null.
func at(vec []*float64, i int) (float64, bool) {
	if i >= len(vec) || vec[i] == nil {
		return 0, false
	}
	return *vec[i], true
}
