package collector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"SqueezeSentinel/internal/model"
)

// ErrDataUnavailable is returned when neither provider produced a usable series.
var ErrDataUnavailable = errors.New("data unavailable")

// Request describes the window of bars to fetch.
type Request struct {
	Symbol     string
	Interval   string
	OutputSize int
}

// Fetcher defines the interface for one market data provider.
type Fetcher interface {
	FetchBars(ctx context.Context, req Request) ([]model.Bar, error)
	Name() string
}

// newHTTPClient builds a client with the given timeout and optional proxy.
func newHTTPClient(timeout time.Duration, proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
