package notifier

import (
	"context"
	"errors"
	"time"

	"SqueezeSentinel/internal/config"
	"SqueezeSentinel/internal/model"
)

// Sender delivers a pre-formatted message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// DetailSent and DetailNotConfigured are the dispatch details for the two
// non-error outcomes.
const (
	DetailSent          = "Sent"
	DetailNotConfigured = "not configured"
)

// Alerts formats evaluation results and hands them to a Sender.
type Alerts struct {
	sender Sender
	trade  config.TradeConfig
}

func NewAlerts(sender Sender, trade config.TradeConfig) *Alerts {
	return &Alerts{sender: sender, trade: trade}
}

// SendAlert delivers the trade signal message.
func (a *Alerts) SendAlert(ctx context.Context, eval *model.EvaluationResult, now time.Time) (bool, string) {
	return a.deliver(ctx, FormatAlert(eval, a.trade, now))
}

// SendStatus delivers the no-signal market check.
func (a *Alerts) SendStatus(ctx context.Context, eval *model.EvaluationResult, now time.Time) (bool, string) {
	return a.deliver(ctx, FormatStatus(eval, now))
}

// SendError delivers a failed-run notice.
func (a *Alerts) SendError(ctx context.Context, report *model.RunReport) (bool, string) {
	return a.deliver(ctx, FormatError(report))
}

func (a *Alerts) deliver(ctx context.Context, text string) (bool, string) {
	if err := a.sender.Send(ctx, text); err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return false, DetailNotConfigured
		}
		return false, err.Error()
	}
	return true, DetailSent
}
