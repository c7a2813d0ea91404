package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskshare/taskshare/internal/config"
)

var globalLogger zerolog.Logger

// InitDefaultLogger sets up a plain JSON logger so that startup steps
// running before configuration is loaded can still log.
func InitDefaultLogger() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	zerolog.TimestampFieldName = "timestamp"

	globalLogger = zerolog.New(os.Stdout).
		With().
		Timestamp().
		Caller().
		Int("pid", os.Getpid()).
		Logger()

	globalLogger.Info().Msg("bootstrap logger ready")
}

// MustInitApplicationLogger reconfigures the global logger for the
// environment the process runs in: human-readable console output with
// trace level locally, JSON elsewhere.
func MustInitApplicationLogger() {
	cfg := config.Global()

	var w io.Writer = os.Stdout
	switch cfg.Env {
	case config.EnvLocal:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)

		console := zerolog.NewConsoleWriter()
		console.Out = os.Stdout
		console.TimeFormat = time.DateTime
		w = console
	case config.EnvDev:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case config.EnvProd:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		globalLogger.Error().
			Str("env", cfg.Env).
			Msg("unsupported environment")
		panic(fmt.Errorf("unsupported environment %q", cfg.Env))
	}

	globalLogger = globalLogger.Output(w)
	globalLogger.Info().
		Str("env", cfg.Env).
		Msg("application logger configured")
}
