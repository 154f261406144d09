package logger

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CronLogger adapts zerolog to the cron.Logger interface.
type CronLogger struct {
	zl zerolog.Logger
}

var _ cron.Logger = CronLogger{}

// NewCronLogger wraps zl for use with cron.WithLogger and job wrappers.
func NewCronLogger(zl zerolog.Logger) CronLogger {
	return CronLogger{zl: zl.With().Str("component", "cron").Logger()}
}

// Info logs routine scheduler activity at debug level; cron is chatty.
func (l CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.zl.Debug().Fields(keysAndValues).Msg(msg)
}

func (l CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.zl.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
