package logger

import (
	"fmt"

	"github.com/rs/zerolog"
)

// CronLogger adapts a zerolog.Logger to cron.Logger.
type CronLogger struct {
	log zerolog.Logger
}

// NewCronLogger wraps log for use with cron.WithLogger.
func NewCronLogger(log zerolog.Logger) CronLogger {
	return CronLogger{log: log.With().Str("component", "cron").Logger()}
}

// Info logs routine scheduler messages at debug level.
func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(pairs(keysAndValues)).Msg(msg)
}

// Error logs scheduler failures.
func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(pairs(keysAndValues)).Msg(msg)
}

func pairs(kv []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}
