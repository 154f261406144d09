package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"SqueezeSentinel/internal/config"
)

var (
	// ErrNotConfigured is returned when the bot token or chat id is missing.
	ErrNotConfigured = errors.New("telegram not configured")
	// ErrDeliveryFailed wraps transport errors and non-2xx responses.
	ErrDeliveryFailed = errors.New("telegram delivery failed")
)

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BaseURL   string
	BotToken  string
	ChatID    string
	ParseMode string
	Client    *http.Client
	log       zerolog.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(cfg config.TelegramConfig, proxyURL string, log zerolog.Logger) *TelegramNotifier {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BaseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		BotToken:  cfg.BotToken,
		ChatID:    cfg.ChatID,
		ParseMode: cfg.ParseMode,
		Client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		log: log.With().Str("component", "telegram").Logger(),
	}
}

// Configured reports whether delivery is possible.
func (t *TelegramNotifier) Configured() bool {
	return t.BotToken != "" && t.ChatID != ""
}

func (t *TelegramNotifier) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.BaseURL, t.BotToken, method)
}

// Send posts text to the configured chat once. There is no retry.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	if !t.Configured() {
		return ErrNotConfigured
	}
	payload := map[string]string{
		"chat_id": t.ChatID,
		"text":    text,
	}
	if t.ParseMode != "" {
		payload["parse_mode"] = t.ParseMode
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, redact(err.Error(), t.BotToken))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d, body: %s", ErrDeliveryFailed, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	t.log.Debug().Dur("elapsed", time.Since(start)).Msg("message delivered")
	return nil
}

// redact keeps the bot token out of error strings that end up in reports and logs.
func redact(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "<token>")
}
