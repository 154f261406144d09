package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"SqueezeSentinel/internal/model"
)

type stubRunner struct {
	report *model.RunReport
	calls  int
}

func (s *stubRunner) Run(context.Context) *model.RunReport {
	s.calls++
	return s.report
}

func successReport() *model.RunReport {
	return &model.RunReport{
		RunID:  "r1",
		Status: model.StatusSuccess,
		Evaluation: &model.EvaluationResult{
			Price:     1.085,
			BandWidth: math.NaN(),
			Threshold: 0.0002,
		},
		Reasons: []string{model.ReasonNoSqueeze},
	}
}

func serve(s *Server, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestTrigger_Success(t *testing.T) {
	runner := &stubRunner{report: successReport()}
	s := NewServer(runner, zerolog.Nop(), WithGatherer(prometheus.NewRegistry()))

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := serve(s, method, "/api/cron", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", method, rec.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		data := body["data"].(map[string]any)
		if data["band_width"] != nil || data["band_width_raw"] != "NaN" {
			t.Errorf("expected null band width with raw NaN, got %v / %v", data["band_width"], data["band_width_raw"])
		}
	}
	if runner.calls != 2 {
		t.Errorf("expected 2 runs, got %d", runner.calls)
	}
}

func TestTrigger_ErrorIs500(t *testing.T) {
	runner := &stubRunner{report: &model.RunReport{Status: model.StatusError, Message: "Data fetch failed: boom"}}
	s := NewServer(runner, zerolog.Nop(), WithGatherer(prometheus.NewRegistry()))

	rec := serve(s, http.MethodGet, "/api/cron", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Data fetch failed") {
		t.Errorf("expected report body, got %s", rec.Body.String())
	}
}

func TestTrigger_Secret(t *testing.T) {
	runner := &stubRunner{report: successReport()}
	s := NewServer(runner, zerolog.Nop(), WithCronSecret("s3cret"), WithGatherer(prometheus.NewRegistry()))

	for _, auth := range []string{"", "Bearer wrong", "s3cret"} {
		if rec := serve(s, http.MethodGet, "/api/cron", auth); rec.Code != http.StatusUnauthorized {
			t.Errorf("auth %q: expected 401, got %d", auth, rec.Code)
		}
	}
	if runner.calls != 0 {
		t.Fatalf("unauthorised requests must not run the pipeline")
	}
	if rec := serve(s, http.MethodPost, "/api/cron", "Bearer s3cret"); rec.Code != http.StatusOK {
		t.Errorf("expected 200 with correct secret, got %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "squeeze_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	s := NewServer(&stubRunner{report: successReport()}, zerolog.Nop(), WithCronSecret("x"), WithGatherer(reg))

	if rec := serve(s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz: expected 200, got %d", rec.Code)
	}
	rec := serve(s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "squeeze_test_total 1") {
		t.Errorf("metrics: unexpected response %d\n%s", rec.Code, rec.Body.String())
	}
}

func TestRecoverMiddleware(t *testing.T) {
	s := NewServer(&stubRunner{}, zerolog.Nop(), WithGatherer(prometheus.NewRegistry()))
	// A nil report panics in the handler.
	if rec := serve(s, http.MethodGet, "/api/cron", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", rec.Code)
	}
}
