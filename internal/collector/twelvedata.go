package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"SqueezeSentinel/internal/model"
)

// TwelveDataFetcher implements Fetcher using the Twelve Data time_series endpoint.
type TwelveDataFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewTwelveDataFetcher creates a new fetcher with optional proxy support.
func NewTwelveDataFetcher(baseURL, apiKey string, timeout time.Duration, proxyURL string) *TwelveDataFetcher {
	return &TwelveDataFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(timeout, proxyURL),
	}
}

func (f *TwelveDataFetcher) Name() string { return "twelvedata" }

// tdResponse is the time_series payload. Errors come back as status/code/message
// with no values array.
type tdResponse struct {
	Status  string           `json:"status"`
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Values  []map[string]any `json:"values"`
}

func (f *TwelveDataFetcher) FetchBars(ctx context.Context, r Request) ([]model.Bar, error) {
	q := url.Values{}
	q.Set("symbol", r.Symbol)
	q.Set("interval", r.Interval)
	q.Set("outputsize", strconv.Itoa(r.OutputSize))
	q.Set("timezone", "UTC")
	q.Set("apikey", f.APIKey)
	endpoint := f.BaseURL + "/time_series?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twelvedata fetch: %w", f.stripURL(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("twelvedata read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("twelvedata: status %d, body: %s", resp.StatusCode, f.redact(string(body)))
	}

	var payload tdResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("twelvedata decode: %w", err)
	}
	if payload.Values == nil {
		msg := payload.Message
		if msg == "" {
			msg = "response has no values"
		}
		return nil, fmt.Errorf("twelvedata api error: %s", f.redact(msg))
	}

	bars := make([]model.Bar, 0, len(payload.Values))
	for _, row := range payload.Values {
		bar, ok := parseTDRow(row)
		if !ok {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// stripURL drops the request URL from transport errors since its query
// carries the API key. Whatever remains is redacted as well.
func (f *TwelveDataFetcher) stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = fmt.Errorf("%s %s: %w", uerr.Op, f.BaseURL+"/time_series", uerr.Err)
	}
	if f.APIKey != "" && strings.Contains(err.Error(), f.APIKey) {
		return errors.New(f.redact(err.Error()))
	}
	return err
}

func (f *TwelveDataFetcher) redact(s string) string {
	if f.APIKey == "" {
		return s
	}
	return strings.ReplaceAll(s, f.APIKey, "<redacted>")
}

// parseTDRow converts one values entry. Prices arrive as strings.
func parseTDRow(row map[string]any) (model.Bar, bool) {
	ts, ok := row["datetime"]
	if !ok {
		return model.Bar{}, false
	}
	t, err := parseTimestamp(ts)
	if err != nil {
		return model.Bar{}, false
	}
	var vals [4]float64
	for i, key := range [4]string{"open", "high", "low", "close"} {
		v, ok := toFloat(row[key])
		if !ok {
			return model.Bar{}, false
		}
		vals[i] = v
	}
	return model.Bar{Time: t, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]}, true
}
