// Package pipeline runs one scrape: it reads the listing, visits every film
// page in order with a fixed pause, and persists the collected records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/film-scraper/internal/clock/system"
	"github.com/JakeFAU/film-scraper/internal/film"
	"github.com/JakeFAU/film-scraper/internal/logging"
	"github.com/JakeFAU/film-scraper/internal/metrics"
)

// Config controls a Driver.
type Config struct {
	ListingURL string
	// Base resolves relative film links. Nil means the listing URL.
	Base *url.URL
	// Delay is the pause after every detail page, successful or not.
	Delay time.Duration
	// Topic receives the run summary when a Publisher is set.
	Topic string
	// StoreName labels relational row metrics.
	StoreName string
}

// Deps are the collaborators of a Driver. Fetcher, Listing, Detail, Store
// and Snapshot are required.
type Deps struct {
	Fetcher   film.Fetcher
	Listing   film.ListingParser
	Detail    film.DetailParser
	Store     film.RecordStore
	Snapshot  film.SnapshotWriter
	Sleeper   film.Sleeper
	Clock     film.Clock
	IDs       film.IDGenerator
	Hasher    film.Hasher
	Publisher film.Publisher
	Metrics   *metrics.Metrics
}

// Driver owns the records of a single run.
type Driver struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// New validates deps and cfg and returns a Driver.
func New(deps Deps, cfg Config, logger *zap.Logger) (*Driver, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("fetcher is required")
	case deps.Listing == nil:
		return nil, fmt.Errorf("listing parser is required")
	case deps.Detail == nil:
		return nil, fmt.Errorf("detail parser is required")
	case deps.Store == nil:
		return nil, fmt.Errorf("record store is required")
	case deps.Snapshot == nil:
		return nil, fmt.Errorf("snapshot writer is required")
	}
	if cfg.ListingURL == "" {
		return nil, fmt.Errorf("listing url is required")
	}
	if cfg.Delay < 0 {
		return nil, fmt.Errorf("delay must not be negative")
	}
	if cfg.Base == nil {
		base, err := url.Parse(cfg.ListingURL)
		if err != nil {
			return nil, fmt.Errorf("parse listing url: %w", err)
		}
		cfg.Base = base
	}
	if cfg.StoreName == "" {
		cfg.StoreName = "relational"
	}
	if deps.Sleeper == nil || deps.Clock == nil {
		sys := system.New()
		if deps.Sleeper == nil {
			deps.Sleeper = sys
		}
		if deps.Clock == nil {
			deps.Clock = sys
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{deps: deps, cfg: cfg, logger: logger}, nil
}

// Run performs the scrape. A returned error means no record was persisted,
// except when the error joins sink failures: each sink is attempted once.
func (d *Driver) Run(ctx context.Context) (film.RunSummary, error) {
	summary := film.RunSummary{ListingURL: d.cfg.ListingURL}
	runID, err := d.newRunID()
	if err != nil {
		return summary, err
	}
	summary.RunID = runID
	logger := logging.ForRun(d.logger, runID)

	entries, err := d.loadListing(ctx)
	if err != nil {
		return summary, err
	}
	summary.Entries = len(entries)
	logger.Info("listing parsed", zap.String("url", d.cfg.ListingURL), zap.Int("entries", len(entries)))

	records := make([]film.Record, 0, len(entries))
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("run interrupted: %w", err)
		}
		logger.Info("processing film",
			zap.Int("index", i+1),
			zap.Int("total", len(entries)),
			zap.String("title", entry.Title),
		)

		out := d.processEntry(ctx, entry)
		if out.OK() {
			records = append(records, out.Record)
			d.deps.Metrics.ObserveFilm(metrics.FilmAdded)
			logger.Info("film added",
				zap.String("title", out.Record.Title),
				zap.String("release_year", out.Record.ReleaseYear),
				zap.String("director", out.Record.Director),
				zap.String("box_office", out.Record.BoxOffice),
				zap.String("country", out.Record.Country),
			)
		} else {
			summary.Skipped++
			d.deps.Metrics.ObserveFilm(metrics.FilmSkipped)
			logger.Error("film skipped",
				zap.String("title", entry.Title),
				zap.String("url", entry.DetailURL),
				zap.Error(out.Err.Err),
			)
		}

		if err := d.deps.Sleeper.Sleep(ctx, d.cfg.Delay); err != nil {
			return summary, fmt.Errorf("run interrupted: %w", err)
		}
	}

	summary.Films = len(records)
	if len(records) == 0 {
		return summary, film.ErrNoRecords
	}

	rows, digest, err := d.persist(ctx, logger, records)
	summary.RowsInserted = rows
	summary.SnapshotSHA256 = digest
	if err != nil {
		return summary, err
	}
	summary.FinishedAt = d.deps.Clock.Now()
	d.deps.Metrics.MarkSuccess(summary.FinishedAt)
	logger.Info("run complete",
		zap.Int("films", summary.Films),
		zap.Int("skipped", summary.Skipped),
		zap.Int64("rows_inserted", rows),
	)

	d.publish(ctx, logger, summary)
	return summary, nil
}

func (d *Driver) newRunID() (string, error) {
	if d.deps.IDs == nil {
		return "", nil
	}
	id, err := d.deps.IDs.NewID()
	if err != nil {
		return "", fmt.Errorf("new run id: %w", err)
	}
	return id, nil
}

func (d *Driver) loadListing(ctx context.Context) ([]film.ListingEntry, error) {
	page, err := d.fetch(ctx, d.cfg.ListingURL, metrics.KindListing)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	entries, err := d.deps.Listing.ParseListing(page.Body, d.cfg.Base)
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	return entries, nil
}

func (d *Driver) fetch(ctx context.Context, rawURL, kind string) (film.Page, error) {
	start := d.deps.Clock.Now()
	page, err := d.deps.Fetcher.Fetch(ctx, rawURL)
	elapsed := d.deps.Clock.Now().Sub(start)
	if err != nil {
		d.deps.Metrics.ObservePage(rawURL, kind, metrics.OutcomeError, 0, elapsed)
		return film.Page{}, err
	}
	d.deps.Metrics.ObservePage(rawURL, kind, metrics.OutcomeOK, len(page.Body), elapsed)
	return page, nil
}

// processEntry fetches and parses one film page. Any failure, including a
// panic in a collaborator, is reported on the Outcome.
func (d *Driver) processEntry(ctx context.Context, entry film.ListingEntry) (out film.Outcome) {
	out.Entry = entry
	defer func() {
		if r := recover(); r != nil {
			out.Record = film.Record{}
			out.Err = &film.ItemError{Title: entry.Title, URL: entry.DetailURL, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	page, err := d.fetch(ctx, entry.DetailURL, metrics.KindDetail)
	if err != nil {
		out.Err = &film.ItemError{Title: entry.Title, URL: entry.DetailURL, Err: err}
		return out
	}
	details, err := d.deps.Detail.ParseDetail(page.Body)
	if err != nil {
		out.Err = &film.ItemError{Title: entry.Title, URL: entry.DetailURL, Err: err}
		return out
	}
	out.Record = film.NewRecord(entry, details)
	return out
}

// persist writes the relational store first, then the document. A failure in
// one does not skip the other.
func (d *Driver) persist(ctx context.Context, logger *zap.Logger, records []film.Record) (int64, string, error) {
	var errs []error

	rows, err := d.deps.Store.SaveFilms(ctx, records)
	if err != nil {
		logger.Error("relational store write failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("save films: %w", err))
	} else {
		d.deps.Metrics.ObserveRows(d.cfg.StoreName, int(rows))
	}

	var digest string
	data, err := d.deps.Snapshot.WriteSnapshot(ctx, records)
	if err != nil {
		logger.Error("snapshot write failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("write snapshot: %w", err))
	} else {
		d.deps.Metrics.ObserveRows("json", len(records))
	}
	if len(data) > 0 && d.deps.Hasher != nil {
		if digest, err = d.deps.Hasher.Hash(data); err != nil {
			logger.Warn("snapshot digest failed", zap.Error(err))
			digest = ""
		}
	}
	return rows, digest, errors.Join(errs...)
}

func (d *Driver) publish(ctx context.Context, logger *zap.Logger, summary film.RunSummary) {
	if d.deps.Publisher == nil || d.cfg.Topic == "" {
		return
	}
	id, err := d.deps.Publisher.Publish(ctx, d.cfg.Topic, summary)
	if err != nil {
		logger.Warn("run notification failed", zap.String("topic", d.cfg.Topic), zap.Error(err))
		return
	}
	logger.Info("run notification published", zap.String("topic", d.cfg.Topic), zap.String("message_id", id))
}
