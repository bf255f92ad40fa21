package postgres

import (
	"context"
	"errors"
	"fmt"
	"taskboard/internal/logger"
	"taskboard/internal/store"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const slowQuery = 100 * time.Millisecond

type Storage struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Storage)(nil)

func New(ctx context.Context, connString string) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Store: failed to parse postgres config", err)
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnIdleTime = time.Minute * 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Store: failed to create pool", err)
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("Store: ping failed", err)
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &Storage{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("Store: connected to PostgreSQL")
	return s, nil
}

func (s *Storage) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	return err
}

func (s *Storage) Close() error {
	s.pool.Close()
	logger.Info("Store: closed PostgreSQL pool")
	return nil
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Store: ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()

	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAbsent
		}
		logger.Error("Store: get failed", err, zap.String("key", key), zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("get %q: %w", key, err)
	}

	warnIfSlow("get", start)
	return value, nil
}

func (s *Storage) Set(ctx context.Context, key string, blob []byte) error {
	start := time.Now()
	if blob == nil {
		blob = []byte{}
	}

	query := `INSERT INTO kv (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE
				SET value = EXCLUDED.value,
					updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, key, blob); err != nil {
		logger.Error("Store: set failed", err, zap.String("key", key), zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("set %q: %w", key, err)
	}

	warnIfSlow("set", start)
	return nil
}

func warnIfSlow(op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > slowQuery {
		logger.Warn("Store: slow operation", zap.String("op", op), zap.Duration("ms", elapsed))
	}
}
