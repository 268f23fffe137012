// Package sqlite persists film records into a local SQLite database using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/JakeFAU/film-scraper/internal/film"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

const createTable = `
CREATE TABLE IF NOT EXISTS films (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	release_year TEXT,
	director TEXT,
	box_office TEXT,
	country TEXT
)`

const insertFilm = `
INSERT INTO films (title, release_year, director, box_office, country)
VALUES (?, ?, ?, ?, ?)`

// Opener opens a database handle. sql.Open satisfies it.
type Opener func(driverName, dataSourceName string) (*sql.DB, error)

// Config selects the database file.
type Config struct {
	Path string
}

// FilmStore appends film rows to the films table. The database is opened on
// every SaveFilms call and closed before it returns.
type FilmStore struct {
	path   string
	open   Opener
	logger *zap.Logger
}

// New returns a store writing to cfg.Path.
func New(cfg Config, logger *zap.Logger) (*FilmStore, error) {
	return NewWithOpener(cfg, sql.Open, logger)
}

// NewWithOpener returns a store that obtains its handle from open.
func NewWithOpener(cfg Config, open Opener, logger *zap.Logger) (*FilmStore, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if open == nil {
		return nil, fmt.Errorf("opener is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilmStore{path: cfg.Path, open: open, logger: logger}, nil
}

// SaveFilms creates the table when missing and inserts every record in a
// single transaction. Existing rows are never touched.
func (s *FilmStore) SaveFilms(ctx context.Context, records []film.Record) (inserted int64, err error) {
	db, err := s.open(DriverName, s.path)
	if err != nil {
		return 0, fmt.Errorf("open sqlite %s: %w", s.path, err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close sqlite: %w", closeErr))
		}
	}()

	if _, err := db.ExecContext(ctx, createTable); err != nil {
		return 0, fmt.Errorf("create films table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertFilm)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.Title, rec.ReleaseYear, rec.Director, rec.BoxOffice, rec.Country); err != nil {
			return 0, fmt.Errorf("insert %q: %w", rec.Title, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("films saved", zap.String("path", s.path), zap.Int64("rows", inserted))
	return inserted, nil
}
