package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"SqueezeSentinel/internal/config"
	"SqueezeSentinel/internal/model"
)

func defaultTrade() config.TradeConfig {
	return config.TradeConfig{
		Label:        "EURUSD",
		Direction:    "SELL",
		LotSize:      "0.01",
		StopOffset:   0.0004,
		TargetOffset: 0.0020,
		PipSize:      0.0001,
		Broker:       "Exness",
		Strategy:     "Bollinger Squeeze",
	}
}

func sampleEval() *model.EvaluationResult {
	return &model.EvaluationResult{
		Price:       1.085,
		BandWidth:   0.000149,
		Threshold:   0.0002,
		IsSqueeze:   true,
		CurrentHour: 3,
		IsValidHour: true,
		Signal:      true,
	}
}

var fixedNow = time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)

func TestFormatAlert(t *testing.T) {
	msg := FormatAlert(sampleEval(), defaultTrade(), fixedNow)
	for _, want := range []string{
		"EURUSD TRADE SIGNAL!",
		"<b>Time:</b> 03:00 GMT",
		"<b>Price:</b> 1.08500",
		"<b>Band Width:</b> 0.000149",
		"Direction: SELL",
		"Size: 0.01 lots",
		"Stop Loss: 1.08540 (+4 pips)",
		"Take Profit: 1.08300 (-20 pips)",
		"Open Exness NOW",
		"Strategy: Bollinger Squeeze",
		"Risk/Reward: 1:5",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("alert missing %q\n%s", want, msg)
		}
	}
}

func TestComputeLevels_Buy(t *testing.T) {
	trade := defaultTrade()
	trade.Direction = "BUY"
	lv := ComputeLevels(1.085, trade)
	if lv.Stop.StringFixed(5) != "1.08460" || lv.Target.StringFixed(5) != "1.08700" {
		t.Errorf("unexpected buy levels %s / %s", lv.Stop, lv.Target)
	}
}

func TestFormatStatus(t *testing.T) {
	e := sampleEval()
	e.IsSqueeze = false
	e.IsValidHour = false
	e.CurrentHour = 8
	msg := FormatStatus(e, fixedNow)
	for _, want := range []string{"Market Check", "Price: 1.08500", "Squeeze: ❌ NO", "Hour: 8:00 GMT ❌ EXCLUDED", "No signal - conditions not met"} {
		if !strings.Contains(msg, want) {
			t.Errorf("status missing %q\n%s", want, msg)
		}
	}
}

func TestFormatStatus_NonFiniteWidth(t *testing.T) {
	e := sampleEval()
	e.BandWidth = math.NaN()
	if !strings.Contains(FormatStatus(e, fixedNow), "Band Width: NaN") {
		t.Error("expected NaN band width to render")
	}
}

func TestFormatReportSummary(t *testing.T) {
	report := &model.RunReport{
		Timestamp:  fixedNow,
		Status:     model.StatusSuccess,
		Source:     "twelvedata",
		Evaluation: sampleEval(),
		Dispatch:   &model.DispatchReport{Attempted: false, CooldownActive: true, Detail: "50 minutes"},
	}
	msg := FormatReportSummary(report)
	if !strings.Contains(msg, "cooldown active (50 minutes)") || !strings.Contains(msg, "Source: twelvedata") {
		t.Errorf("unexpected summary:\n%s", msg)
	}

	failed := &model.RunReport{Timestamp: fixedNow, Status: model.StatusError, Message: "data unavailable: <html>"}
	if msg := FormatReportSummary(failed); !strings.Contains(msg, "data unavailable: &lt;html&gt;") {
		t.Errorf("expected escaped error summary:\n%s", msg)
	}
}

func TestFormatMinutes(t *testing.T) {
	if got := FormatMinutes(50*time.Minute + 59*time.Second); got != "50 minutes" {
		t.Errorf("got %q", got)
	}
}

func newTestNotifier(url, token, chat string) *TelegramNotifier {
	return NewTelegramNotifier(config.TelegramConfig{
		BaseURL:   url,
		BotToken:  token,
		ChatID:    chat,
		ParseMode: "HTML",
		Timeout:   2 * time.Second,
	}, "", zerolog.Nop())
}

func TestTelegramSend(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := newTestNotifier(srv.URL, "123:abc", "42")
	if err := n.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/bot123:abc/sendMessage" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotBody["chat_id"] != "42" || gotBody["text"] != "hello" || gotBody["parse_mode"] != "HTML" {
		t.Errorf("unexpected payload %v", gotBody)
	}
}

func TestTelegramSend_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	err := newTestNotifier(srv.URL, "t", "42").Send(context.Background(), "x")
	if !errors.Is(err, ErrDeliveryFailed) || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected delivery failure with body, got %v", err)
	}
}

func TestTelegramSend_NotConfigured(t *testing.T) {
	n := newTestNotifier("http://127.0.0.1:1", "", "")
	if err := n.Send(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	sent, detail := NewAlerts(n, defaultTrade()).SendAlert(context.Background(), sampleEval(), fixedNow)
	if sent || detail != DetailNotConfigured {
		t.Errorf("expected not configured, got %v %q", sent, detail)
	}
}

func TestAlerts_DeliveryOutcome(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls > 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	a := NewAlerts(newTestNotifier(srv.URL, "t", "42"), defaultTrade())
	if sent, detail := a.SendStatus(context.Background(), sampleEval(), fixedNow); !sent || detail != DetailSent {
		t.Errorf("expected sent, got %v %q", sent, detail)
	}
	sent, detail := a.SendAlert(context.Background(), sampleEval(), fixedNow)
	if sent || !strings.Contains(detail, "boom") {
		t.Errorf("expected failure detail with body, got %v %q", sent, detail)
	}
	if calls != 2 {
		t.Errorf("expected exactly one POST per message, got %d", calls)
	}
}

func TestStartPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var replies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			w.Write([]byte(`{"ok":true,"result":[
				{"update_id":7,"message":{"text":"/check","chat":{"id":99}}},
				{"update_id":8,"message":{"text":" /cooldown ","chat":{"id":42}}}
			]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, &body)
			mu.Lock()
			replies = append(replies, body["text"])
			mu.Unlock()
			w.Write([]byte(`{"ok":true}`))
			cancel()
		}
	}))
	defer srv.Close()

	var commands []string
	handler := func(_ context.Context, cmd string) string {
		commands = append(commands, cmd)
		return "reply to " + cmd
	}

	done := make(chan struct{})
	go func() {
		newTestNotifier(srv.URL, "t", "42").StartPolling(ctx, handler)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}

	if len(commands) != 1 || commands[0] != "/cooldown" {
		t.Errorf("expected only the own-chat command, got %v", commands)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(replies) != 1 || replies[0] != "reply to /cooldown" {
		t.Errorf("unexpected replies %v", replies)
	}
}
