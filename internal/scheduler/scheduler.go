package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"SqueezeSentinel/internal/logger"
	"SqueezeSentinel/internal/model"
	"SqueezeSentinel/internal/notifier"
	"SqueezeSentinel/internal/pipeline"
)

// Scheduler drives the pipeline on a cron cadence and answers bot commands.
type Scheduler struct {
	Cron     *cron.Cron
	Pipeline *pipeline.Orchestrator
	Ctx      context.Context
	log      zerolog.Logger
}

// NewScheduler creates a Scheduler. Runs never overlap: a tick that arrives while
// the previous run is still going is skipped.
func NewScheduler(ctx context.Context, p *pipeline.Orchestrator, log zerolog.Logger) *Scheduler {
	cl := logger.NewCronLogger(log)
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Pipeline: p,
		Ctx:      ctx,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Register schedules the squeeze check on spec (six fields, with seconds).
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.checkTask); err != nil {
		return fmt.Errorf("register squeeze check %q: %w", spec, err)
	}
	s.log.Info().Str("cron", spec).Msg("squeeze check registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the scheduler and waits for a running check to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes one check immediately.
func (s *Scheduler) RunNow() *model.RunReport {
	return s.Pipeline.Run(s.Ctx)
}

func (s *Scheduler) checkTask() {
	report := s.RunNow()
	s.log.Debug().Str("run_id", report.RunID).Str("status", string(report.Status)).Msg("scheduled check done")
}

const helpText = "Available commands:\n• /check - run a squeeze check now\n• /cooldown - show the alert cooldown"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	cmd := strings.ToLower(strings.TrimSpace(command))
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/check":
		return notifier.FormatReportSummary(s.Pipeline.Run(ctx))
	case "/cooldown":
		d := s.Pipeline.Gate().Check(ctx, s.Pipeline.Now())
		var last time.Time
		if d.LastAlert > 0 {
			last = time.Unix(0, int64(d.LastAlert*1e9))
		}
		return notifier.FormatCooldown(d.Armed(), d.Remaining, last, d.Degraded)
	default:
		return helpText
	}
}
