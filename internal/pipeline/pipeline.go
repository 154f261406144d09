// Package pipeline runs one squeeze check end to end and always produces a report.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"SqueezeSentinel/internal/calculator"
	"SqueezeSentinel/internal/cooldown"
	"SqueezeSentinel/internal/model"
	"SqueezeSentinel/internal/notifier"
	"SqueezeSentinel/internal/strategy"
)

// BarSource supplies the recent bar series.
type BarSource interface {
	Collect(ctx context.Context, minBars int) (*model.BarSeries, error)
}

// Notifier delivers formatted messages. Each call reports whether the message was
// sent and a human-readable detail.
type Notifier interface {
	SendAlert(ctx context.Context, eval *model.EvaluationResult, now time.Time) (bool, string)
	SendStatus(ctx context.Context, eval *model.EvaluationResult, now time.Time) (bool, string)
	SendError(ctx context.Context, report *model.RunReport) (bool, string)
}

// Metrics receives run outcomes.
type Metrics interface {
	RecordRun(status string, elapsed time.Duration)
	RecordEvaluation(price, bandWidth float64, signal bool)
	RecordDispatch(outcome string)
}

type nopMetrics struct{}

func (nopMetrics) RecordRun(string, time.Duration)         {}
func (nopMetrics) RecordEvaluation(float64, float64, bool) {}
func (nopMetrics) RecordDispatch(string)                   {}

// Dispatch outcomes passed to Metrics.RecordDispatch.
const (
	OutcomeSent          = "sent"
	OutcomeFailed        = "failed"
	OutcomeNotConfigured = "not_configured"
	OutcomeCooldown      = "cooldown"
)

// Options are the indicator and notification settings for a run.
type Options struct {
	Period        int
	StdMultiplier float64
	Rules         strategy.Rules
	StatusUpdates bool
	ErrorAlerts   bool
}

// Orchestrator wires fetch, indicators, evaluation and the cooldown-gated dispatch.
type Orchestrator struct {
	source   BarSource
	gate     *cooldown.Gate
	notifier Notifier
	metrics  Metrics
	opts     Options
	now      func() time.Time
	log      zerolog.Logger
}

func New(source BarSource, gate *cooldown.Gate, n Notifier, opts Options, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		source:   source,
		gate:     gate,
		notifier: n,
		metrics:  nopMetrics{},
		opts:     opts,
		now:      time.Now,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// WithMetrics sets the metrics sink.
func (o *Orchestrator) WithMetrics(m Metrics) *Orchestrator {
	if m != nil {
		o.metrics = m
	}
	return o
}

// WithClock overrides the wall clock.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Gate exposes the cooldown gate for read-only inspection.
func (o *Orchestrator) Gate() *cooldown.Gate { return o.gate }

// Now returns the orchestrator's current time.
func (o *Orchestrator) Now() time.Time { return o.now() }

// Run performs one invocation. It never returns nil and never panics.
func (o *Orchestrator) Run(ctx context.Context) (report *model.RunReport) {
	start := time.Now()
	report = &model.RunReport{
		RunID:     uuid.NewString(),
		Timestamp: o.now().UTC(),
		Status:    model.StatusError,
	}
	log := o.log.With().Str("run_id", report.RunID).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("run panicked")
			report.Status = model.StatusError
			report.Message = fmt.Sprintf("internal error: %v", r)
		}
		o.finish(ctx, log, report, time.Since(start))
	}()

	series, err := o.source.Collect(ctx, o.opts.Period)
	if err != nil {
		report.Message = fmt.Sprintf("Data fetch failed: %v", err)
		return report
	}
	report.Source = series.Source

	points, err := calculator.ComputeBands(series.Bars, o.opts.Period, o.opts.StdMultiplier)
	if err != nil {
		report.Message = fmt.Sprintf("Insufficient data: %d bars", series.Len())
		log.Warn().Err(err).Int("bars", series.Len()).Msg("cannot compute bands")
		return report
	}
	latest, err := calculator.Latest(points)
	if err != nil {
		report.Message = fmt.Sprintf("Insufficient data: %d bars", series.Len())
		return report
	}

	now := o.now()
	eval := strategy.Evaluate(latest, series.Len(), now, o.opts.Rules)
	report.Status = model.StatusSuccess
	report.Evaluation = eval
	o.metrics.RecordEvaluation(eval.Price, eval.BandWidth, eval.Signal)

	if !eval.Signal {
		report.Reasons = eval.Reasons()
		report.Message = "No signal: " + strings.Join(report.Reasons, ", ")
		if o.opts.StatusUpdates {
			sent, detail := o.notifier.SendStatus(ctx, eval, now)
			report.StatusSent = sent
			if !sent {
				log.Warn().Str("detail", detail).Msg("status update not sent")
			}
		}
		return report
	}

	report.Message = "Signal detected"
	report.Dispatch = o.dispatch(ctx, log, eval, now)
	return report
}

func (o *Orchestrator) dispatch(ctx context.Context, log zerolog.Logger, eval *model.EvaluationResult, now time.Time) *model.DispatchReport {
	d := o.gate.Check(ctx, now)
	rep := &model.DispatchReport{CooldownDegraded: d.Degraded}
	if !d.Armed() {
		suppressed(rep, d)
		o.metrics.RecordDispatch(OutcomeCooldown)
		return rep
	}

	won, err := o.gate.Reserve(ctx, now, d)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("cooldown reservation failed, dispatching without it")
		rep.CooldownDegraded = true
		d.Degraded = true
	case !won:
		log.Info().Msg("cooldown window claimed by a concurrent run")
		suppressed(rep, o.gate.Check(ctx, now))
		o.metrics.RecordDispatch(OutcomeCooldown)
		return rep
	}

	rep.Attempted = true
	sent, detail := o.notifier.SendAlert(ctx, eval, now)
	rep.Sent = sent
	rep.Detail = detail
	if !sent {
		if err := o.gate.Release(ctx, now, d); err != nil {
			log.Error().Err(err).Msg("release cooldown reservation")
		}
		if detail == notifier.DetailNotConfigured {
			o.metrics.RecordDispatch(OutcomeNotConfigured)
		} else {
			rep.Error = detail
			o.metrics.RecordDispatch(OutcomeFailed)
		}
		return rep
	}

	if err := o.gate.RecordDispatch(ctx, now); err != nil {
		log.Error().Err(err).Msg("alert sent but cooldown not recorded")
		rep.Error = err.Error()
	}
	o.metrics.RecordDispatch(OutcomeSent)
	return rep
}

func suppressed(rep *model.DispatchReport, d cooldown.Decision) {
	rep.CooldownActive = true
	rep.CooldownRemaining = int(d.Remaining / time.Second)
	rep.Detail = notifier.FormatMinutes(d.Remaining)
}

func (o *Orchestrator) finish(ctx context.Context, log zerolog.Logger, report *model.RunReport, elapsed time.Duration) {
	o.metrics.RecordRun(string(report.Status), elapsed)

	if report.Failed() {
		log.Error().Str("message", report.Message).Dur("elapsed", elapsed).Msg("run failed")
		if o.opts.ErrorAlerts {
			if sent, detail := o.notifier.SendError(ctx, report); !sent {
				log.Warn().Str("detail", detail).Msg("error notification not sent")
			}
		}
		return
	}

	ev := log.Info().
		Str("source", report.Source).
		Float64("price", report.Evaluation.Price).
		Bool("squeeze", report.Evaluation.IsSqueeze).
		Int("hour", report.Evaluation.CurrentHour).
		Bool("signal", report.Evaluation.Signal).
		Dur("elapsed", elapsed)
	if d := report.Dispatch; d != nil {
		ev = ev.Bool("sent", d.Sent).Bool("cooldown_active", d.CooldownActive).Str("detail", d.Detail)
	}
	ev.Msg(report.Message)
}
