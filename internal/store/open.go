// Package store selects and opens the document store backend.
package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/IgoorDrt/ErroOps-v1/internal/config"
	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
	"github.com/IgoorDrt/ErroOps-v1/internal/snowflake"
	"github.com/IgoorDrt/ErroOps-v1/internal/store/memory"
	"github.com/IgoorDrt/ErroOps-v1/internal/store/postgres"
	"github.com/IgoorDrt/ErroOps-v1/internal/store/redisstore"
	"github.com/IgoorDrt/ErroOps-v1/internal/store/scylla"
	"github.com/IgoorDrt/ErroOps-v1/internal/store/sqlite"
)

// Open connects the backend named by cfg.StoreDriver and runs its migrations.
// The returned close function releases the connection.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (domain.Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StoreDriver {
	case "memory":
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		return memory.New(), noop, nil

	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlite.Migrate(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite store")
		return sqlite.NewStore(db), db.Close, nil

	case "postgres":
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info().Msg("using PostgreSQL store")
		return postgres.NewStore(db), db.Close, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("using Redis store")
		return redisstore.New(rdb), rdb.Close, nil

	case "scylla":
		ids, err := snowflake.NewNode(cfg.ScyllaNodeID)
		if err != nil {
			return nil, nil, err
		}
		session, err := scylla.Connect(cfg.ScyllaHosts, cfg.ScyllaKeyspace, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := scylla.Migrate(session); err != nil {
			session.Close()
			return nil, nil, err
		}
		return scylla.New(session, ids), func() error { session.Close(); return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
