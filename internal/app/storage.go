package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskshare/taskshare/internal/config"
	"github.com/taskshare/taskshare/internal/storage"
)

var (
	globalPostgresPool *pgxpool.Pool
	globalStore        storage.Store
)

// MustOpenStore wires the configured storage backend: postgres for real
// deployments, the in-memory store for local single-process runs.
func MustOpenStore() {
	cfg := config.Global()
	switch cfg.Storage {
	case config.StorageMemory:
		globalStore = storage.NewMemory()
		globalLogger.Info().Msg("using in-memory store")
	case config.StoragePostgres:
		mustConnectPostgres()
		globalStore = storage.NewPostgres(globalLogger, globalPostgresPool)
	default:
		globalLogger.Error().
			Str("storage", cfg.Storage).
			Msg("unknown storage backend")
		panic(fmt.Errorf("unknown storage backend: %s", cfg.Storage))
	}
}

func CloseStore() {
	if globalPostgresPool != nil {
		globalPostgresPool.Close()
		globalLogger.Info().Msg("disconnected from postgres")
	}
}

func mustConnectPostgres() {
	cfg := config.Global().Postgres
	connURL := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Username, cfg.Password, cfg.Host,
		cfg.Port, cfg.Database, cfg.SSLMode)

	poolCfg, err := pgxpool.ParseConfig(connURL)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to parse postgres config")
		panic(err)
	}
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	globalPostgresPool, err = pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to connect to postgres")
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
	defer cancel()

	err = globalPostgresPool.Ping(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to ping postgres")
		panic(err)
	}
	globalLogger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Msg("connected to postgres")
}
