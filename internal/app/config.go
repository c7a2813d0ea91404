package app

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/taskshare/taskshare/internal/config"
)

// MustReadEnv loads configuration from the environment and installs it
// globally. A .env file beside the binary is picked up automatically
// when present.
func MustReadEnv() {
	cfg, err := config.NewEnvReader().Read()
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to load configuration")
		panic(err)
	}
	config.SetGlobal(cfg)

	globalLogger.Info().
		Str("env", cfg.Env).
		Str("storage", cfg.Storage).
		Msg("loaded configuration")
}
