package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/logging"
	"github.com/dmitrijs2005/filedrop/internal/server/config"
	"github.com/dmitrijs2005/filedrop/internal/server/repositories/files"
	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the metadata store selected by cfg.Store together with the
// handle that releases its connections. PostgreSQL is migrated before use.
func Open(ctx context.Context, cfg *config.Config, logger logging.Logger) (files.Repository, io.Closer, error) {
	logger = logger.With("module", "repomanager")

	switch cfg.Store {
	case config.StoreMemory:
		logger.Info(ctx, "Using in-memory metadata store")
		return files.NewMemoryRepository(), nopCloser{}, nil

	case config.StorePostgres:
		return openPostgres(ctx, cfg.DatabaseDSN, logger)

	case config.StoreRedis:
		return openRedis(ctx, cfg, logger)

	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func openPostgres(ctx context.Context, dsn string, logger logging.Logger) (files.Repository, io.Closer, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db ping error: %w", err)
	}

	m := NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations error: %w", err)
	}

	logger.Info(ctx, "Using PostgreSQL metadata store")
	return m.Files(db), db, nil
}

func openRedis(ctx context.Context, cfg *config.Config, logger logging.Logger) (files.Repository, io.Closer, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info(ctx, "Using Redis metadata store", "addr", cfg.RedisAddr)
	return files.NewRedisRepository(rdb, files.DefaultRedisPrefix), rdb, nil
}
