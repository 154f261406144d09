package model

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// RunStatus is the terminal state of one invocation.
type RunStatus string

const (
	StatusSuccess RunStatus = "success"
	StatusError   RunStatus = "error"
)

// No-signal reasons reported when the gate conditions fail.
const (
	ReasonNoSqueeze   = "No squeeze"
	ReasonInvalidHour = "Invalid hour"
)

// EvaluationResult is the snapshot of one invocation's decision inputs.
type EvaluationResult struct {
	Price        float64   `json:"price"`
	BandWidth    float64   `json:"band_width"`
	Threshold    float64   `json:"threshold"`
	IsSqueeze    bool      `json:"is_squeeze"`
	CurrentHour  int       `json:"current_hour"`
	IsValidHour  bool      `json:"is_valid_hour"`
	Signal       bool      `json:"signal"`
	BarsAnalyzed int       `json:"bars_analyzed"`
	BarTime      time.Time `json:"bar_time"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
}

// Reasons lists why no signal fired. Empty when Signal is true.
func (e *EvaluationResult) Reasons() []string {
	var reasons []string
	if !e.IsSqueeze {
		reasons = append(reasons, ReasonNoSqueeze)
	}
	if !e.IsValidHour {
		reasons = append(reasons, ReasonInvalidHour)
	}
	return reasons
}

// MarshalJSON encodes a non-finite band width as null plus a textual band_width_raw,
// since encoding/json rejects NaN and Inf.
func (e EvaluationResult) MarshalJSON() ([]byte, error) {
	type plain EvaluationResult
	out := struct {
		plain
		BandWidth    *float64 `json:"band_width"`
		BandWidthRaw string   `json:"band_width_raw,omitempty"`
	}{plain: plain(e)}
	if math.IsNaN(e.BandWidth) || math.IsInf(e.BandWidth, 0) {
		out.BandWidthRaw = strconv.FormatFloat(e.BandWidth, 'g', -1, 64)
	} else {
		bw := e.BandWidth
		out.BandWidth = &bw
	}
	return json.Marshal(out)
}

// DispatchReport describes what happened to the alert for a signalled run.
type DispatchReport struct {
	Attempted         bool   `json:"attempted"`
	Sent              bool   `json:"sent"`
	CooldownActive    bool   `json:"cooldown_active"`
	CooldownRemaining int    `json:"cooldown_remaining_seconds"`
	CooldownDegraded  bool   `json:"cooldown_degraded,omitempty"`
	Detail            string `json:"detail,omitempty"`
	Error             string `json:"error,omitempty"`
}

// RunReport is the structured outcome of one invocation. It is returned and logged, never stored.
type RunReport struct {
	RunID      string            `json:"run_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Status     RunStatus         `json:"status"`
	Message    string            `json:"message"`
	Source     string            `json:"source,omitempty"`
	Evaluation *EvaluationResult `json:"data,omitempty"`
	Dispatch   *DispatchReport   `json:"dispatch,omitempty"`
	Reasons    []string          `json:"reasons,omitempty"`
	StatusSent bool              `json:"status_sent,omitempty"`
}

// Failed reports whether the run ended before an evaluation was produced.
func (r *RunReport) Failed() bool {
	return r.Status == StatusError
}
