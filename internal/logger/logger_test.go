package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	zl, err := New(Config{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	zl.Info().Msg("hello")
	zl.Debug().Msg("hidden")
}

func TestCronLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	cl := NewCronLogger(zerolog.New(&buf))
	cl.Error(errors.New("boom"), "job failed", "entry", 3)
	out := buf.String()
	if !strings.Contains(out, `"entry":3`) || !strings.Contains(out, `"error":"boom"`) {
		t.Errorf("unexpected output: %s", out)
	}
	if !strings.Contains(out, `"component":"cron"`) {
		t.Errorf("missing component field: %s", out)
	}
}
