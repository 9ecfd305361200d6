// Package logx configures the process-wide zerolog logger.
package logx

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Yotam17/nl2sql/internal/core"
)

type LoggerOpts struct {
	Environment core.Environment
	// Level applies in production only; other environments log at debug.
	Level string
}

var DefaultLoggerOpts = LoggerOpts{
	Environment: core.Development,
}

// Init replaces log.Logger. Production writes JSON to stdout at the
// configured level; every other environment gets a console writer.
func Init(opts ...LoggerOpts) {
	o := DefaultLoggerOpts
	if len(opts) > 0 {
		o = opts[0]
	}

	if o.Environment.IsProduction() {
		level, err := zerolog.ParseLevel(o.Level)
		if err != nil || o.Level == "" {
			level = zerolog.InfoLevel
		}
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
		return
	}

	log.Logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Caller().Logger()
	log.Logger = log.Logger.Level(zerolog.DebugLevel)
}
