// Package postgres persists film records into Postgres through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JakeFAU/film-scraper/internal/film"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for film rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// Pool is the subset of *pgxpool.Pool the store relies on.
type Pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// Connector opens a pool for a run.
type Connector func(ctx context.Context, cfg Config) (Pool, error)

// FilmStore appends film rows to a Postgres table. A pool is opened per
// SaveFilms call and closed before it returns.
type FilmStore struct {
	cfg     Config
	connect Connector
	logger  *zap.Logger
}

// New returns a store that connects with pgxpool.
func New(cfg Config, logger *zap.Logger) (*FilmStore, error) {
	return NewWithConnector(cfg, connectPool, logger)
}

// NewWithConnector returns a store that obtains pools from connect.
func NewWithConnector(cfg Config, connect Connector, logger *zap.Logger) (*FilmStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.postgres_dsn is required")
	}
	if cfg.Table == "" {
		cfg.Table = "films"
	}
	if !validTableName.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}
	if connect == nil {
		return nil, fmt.Errorf("connector is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilmStore{cfg: cfg, connect: connect, logger: logger}, nil
}

func connectPool(ctx context.Context, cfg Config) (Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// SaveFilms creates the table when missing and inserts every record in one
// transaction.
func (s *FilmStore) SaveFilms(ctx context.Context, records []film.Record) (int64, error) {
	pool, err := s.connect(ctx, s.cfg)
	if err != nil {
		return 0, err
	}
	defer pool.Close()

	createQuery := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	release_year TEXT,
	director TEXT,
	box_office TEXT,
	country TEXT
)`, s.cfg.Table)
	if _, err := pool.Exec(ctx, createQuery); err != nil {
		return 0, fmt.Errorf("create %s table: %w", s.cfg.Table, err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	insertQuery := fmt.Sprintf(`
INSERT INTO %s (title, release_year, director, box_office, country)
VALUES ($1, $2, $3, $4, $5)`, s.cfg.Table)

	var inserted int64
	for _, rec := range records {
		tag, err := tx.Exec(ctx, insertQuery, rec.Title, rec.ReleaseYear, rec.Director, rec.BoxOffice, rec.Country)
		if err != nil {
			insertErr := fmt.Errorf("insert %q: %w", rec.Title, err)
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				return 0, errors.Join(insertErr, fmt.Errorf("rollback: %w", rbErr))
			}
			return 0, insertErr
		}
		inserted += tag.RowsAffected()
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("films saved", zap.String("table", s.cfg.Table), zap.Int64("rows", inserted))
	return inserted, nil
}
