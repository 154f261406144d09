package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"SqueezeSentinel/internal/config"
	"SqueezeSentinel/internal/model"
)

// TradeLevels are the protective and target prices derived from an entry price.
type TradeLevels struct {
	Entry      decimal.Decimal
	Stop       decimal.Decimal
	Target     decimal.Decimal
	StopPips   decimal.Decimal
	TargetPips decimal.Decimal
	// RewardRatio is target distance over stop distance.
	RewardRatio decimal.Decimal
}

// ComputeLevels places the stop against the trade direction and the target with it.
// A SELL stops above the entry and targets below.
func ComputeLevels(price float64, trade config.TradeConfig) TradeLevels {
	entry := decimal.NewFromFloat(price)
	stopOff := decimal.NewFromFloat(trade.StopOffset)
	targetOff := decimal.NewFromFloat(trade.TargetOffset)
	pip := decimal.NewFromFloat(trade.PipSize)

	lv := TradeLevels{Entry: entry}
	if strings.EqualFold(trade.Direction, "BUY") {
		lv.Stop = entry.Sub(stopOff)
		lv.Target = entry.Add(targetOff)
	} else {
		lv.Stop = entry.Add(stopOff)
		lv.Target = entry.Sub(targetOff)
	}
	if !pip.IsZero() {
		lv.StopPips = stopOff.Div(pip).Round(1)
		lv.TargetPips = targetOff.Div(pip).Round(1)
	}
	if !stopOff.IsZero() {
		lv.RewardRatio = targetOff.Div(stopOff).Round(2)
	}
	return lv
}

// FormatAlert renders the trade signal message.
func FormatAlert(eval *model.EvaluationResult, trade config.TradeConfig, now time.Time) string {
	lv := ComputeLevels(eval.Price, trade)
	stopSign, targetSign := "+", "-"
	if strings.EqualFold(trade.Direction, "BUY") {
		stopSign, targetSign = "-", "+"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎯 <b>%s TRADE SIGNAL!</b>\n\n", trade.Label))
	b.WriteString(fmt.Sprintf("⏰ <b>Time:</b> %s\n", now.UTC().Format("15:04 GMT")))
	b.WriteString(fmt.Sprintf("💰 <b>Price:</b> %.5f\n", eval.Price))
	b.WriteString(fmt.Sprintf("📊 <b>Band Width:</b> %.6f\n\n", eval.BandWidth))

	b.WriteString("📉 <b>TRADE SETUP:</b>\n")
	b.WriteString(fmt.Sprintf("▫️ Direction: %s\n", strings.ToUpper(trade.Direction)))
	b.WriteString(fmt.Sprintf("▫️ Size: %s lots\n", trade.LotSize))
	b.WriteString(fmt.Sprintf("▫️ Stop Loss: %s (%s%s pips)\n", lv.Stop.StringFixed(5), stopSign, lv.StopPips.String()))
	b.WriteString(fmt.Sprintf("▫️ Take Profit: %s (%s%s pips)\n\n", lv.Target.StringFixed(5), targetSign, lv.TargetPips.String()))

	b.WriteString(fmt.Sprintf("🚀 <b>Open %s NOW and execute!</b>\n\n", trade.Broker))
	b.WriteString(fmt.Sprintf("Strategy: %s\n", trade.Strategy))
	b.WriteString(fmt.Sprintf("Risk/Reward: 1:%s\n", lv.RewardRatio.String()))
	return b.String()
}

// FormatStatus renders the no-signal market check.
func FormatStatus(eval *model.EvaluationResult, now time.Time) string {
	squeeze := "❌ NO"
	if eval.IsSqueeze {
		squeeze = "✅ YES"
	}
	hour := "❌ EXCLUDED"
	if eval.IsValidHour {
		hour = "✅ VALID"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("ℹ️ <b>Market Check</b> (%s)\n\n", now.UTC().Format("15:04 GMT")))
	b.WriteString(fmt.Sprintf("💹 Price: %.5f\n", eval.Price))
	b.WriteString(fmt.Sprintf("📊 Band Width: %.6f\n", eval.BandWidth))
	b.WriteString(fmt.Sprintf("🔍 Squeeze: %s\n", squeeze))
	b.WriteString(fmt.Sprintf("⏰ Hour: %d:00 GMT %s\n\n", eval.CurrentHour, hour))
	b.WriteString("<i>No signal - conditions not met</i>\n")
	return b.String()
}

// FormatError renders a failed run.
func FormatError(report *model.RunReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚠️ <b>Squeeze check failed</b> (%s)\n\n", report.Timestamp.UTC().Format("15:04 GMT")))
	b.WriteString(escapeHTML(report.Message))
	b.WriteString("\n")
	return b.String()
}

// FormatReportSummary renders a run report as a bot command reply.
func FormatReportSummary(report *model.RunReport) string {
	if report.Failed() || report.Evaluation == nil {
		return FormatError(report)
	}
	e := report.Evaluation

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔎 <b>Squeeze check</b> | %s\n\n", report.Timestamp.UTC().Format("2006-01-02 15:04 GMT")))
	b.WriteString(fmt.Sprintf("Price: %.5f\n", e.Price))
	b.WriteString(fmt.Sprintf("Band Width: %.6f (threshold %.6f)\n", e.BandWidth, e.Threshold))
	b.WriteString(fmt.Sprintf("Hour: %d:00 GMT\n", e.CurrentHour))
	if report.Source != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", report.Source))
	}

	switch {
	case !e.Signal:
		b.WriteString(fmt.Sprintf("\nNo signal: %s\n", strings.Join(report.Reasons, ", ")))
	case report.Dispatch == nil:
		b.WriteString("\nSignal\n")
	case report.Dispatch.CooldownActive:
		b.WriteString(fmt.Sprintf("\nSignal, cooldown active (%s)\n", report.Dispatch.Detail))
	case report.Dispatch.Sent:
		b.WriteString("\nSignal, alert sent ✅\n")
	default:
		b.WriteString(fmt.Sprintf("\nSignal, alert not sent: %s\n", escapeHTML(report.Dispatch.Detail)))
	}
	return b.String()
}

// FormatCooldown renders the gate state for the /cooldown command.
func FormatCooldown(armed bool, remaining time.Duration, lastAlert time.Time, degraded bool) string {
	var b strings.Builder
	b.WriteString("⏳ <b>Alert cooldown</b>\n\n")
	if lastAlert.IsZero() {
		b.WriteString("Last alert: never\n")
	} else {
		b.WriteString(fmt.Sprintf("Last alert: %s\n", lastAlert.UTC().Format("2006-01-02 15:04 GMT")))
	}
	switch {
	case degraded:
		b.WriteString("State: unknown (store unavailable)\n")
	case armed:
		b.WriteString("State: armed ✅\n")
	default:
		b.WriteString(fmt.Sprintf("State: suppressed, %s remaining\n", FormatMinutes(remaining)))
	}
	return b.String()
}

// FormatMinutes renders a duration as whole minutes, truncated.
func FormatMinutes(d time.Duration) string {
	return fmt.Sprintf("%d minutes", int(d/time.Minute))
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
