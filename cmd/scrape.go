package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	gcsstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/film-scraper/internal/clock/system"
	"github.com/JakeFAU/film-scraper/internal/config"
	"github.com/JakeFAU/film-scraper/internal/extract"
	collyfetcher "github.com/JakeFAU/film-scraper/internal/fetcher/colly"
	"github.com/JakeFAU/film-scraper/internal/film"
	"github.com/JakeFAU/film-scraper/internal/hash/sha256"
	"github.com/JakeFAU/film-scraper/internal/id/uuid"
	"github.com/JakeFAU/film-scraper/internal/metrics"
	"github.com/JakeFAU/film-scraper/internal/pipeline"
	pubsubpublisher "github.com/JakeFAU/film-scraper/internal/publisher/pubsub"
	"github.com/JakeFAU/film-scraper/internal/storage/gcs"
	"github.com/JakeFAU/film-scraper/internal/storage/jsonfile"
	"github.com/JakeFAU/film-scraper/internal/storage/postgres"
	"github.com/JakeFAU/film-scraper/internal/storage/sqlite"
)

const pushTimeout = 10 * time.Second

// newScrapeCmd creates the 'scrape' subcommand.
func newScrapeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Runs one scrape and persists the results",
		Long: `Fetches the listing page, visits each film page in table order with a
fixed pause, then appends the records to the relational store and replaces the
JSON document. A failed listing fetch, a missing table or an empty result
stops the run before anything is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runScrape(cmd.Context())
		},
	}
}

func (c *cli) runScrape(ctx context.Context) error {
	cfg, logger := c.cfg, c.logger

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn("close failed", zap.Error(err))
			}
		}
	}()

	base, err := cfg.ResolveBase()
	if err != nil {
		return err
	}
	parser := extract.New(logger.Named("extract"))

	store, storeName, err := buildRecordStore(cfg, logger)
	if err != nil {
		return err
	}

	var mirror film.BlobStore
	if cfg.Output.GCSBucket != "" {
		client, err := gcsstorage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("create gcs client: %w", err)
		}
		closers = append(closers, client)
		if mirror, err = gcs.New(client, gcs.Config{Bucket: cfg.Output.GCSBucket}); err != nil {
			return fmt.Errorf("init gcs mirror: %w", err)
		}
	}
	snapshot, err := jsonfile.New(jsonfile.Config{
		Path:         cfg.Output.JSONPath,
		MirrorObject: cfg.Output.GCSObject,
	}, mirror, logger.Named("jsonfile"))
	if err != nil {
		return fmt.Errorf("init snapshot writer: %w", err)
	}

	var publisher film.Publisher
	if cfg.PubSub.Topic != "" {
		client, err := gpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return fmt.Errorf("create pubsub client: %w", err)
		}
		pub, err := pubsubpublisher.New(client)
		if err != nil {
			_ = client.Close()
			return fmt.Errorf("init publisher: %w", err)
		}
		closers = append(closers, pub)
		publisher = pub
	}

	clock := system.New()
	runMetrics := metrics.New(false)
	driver, err := pipeline.New(pipeline.Deps{
		Fetcher: collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.HTTP.UserAgent,
			Timeout:   cfg.HTTP.Timeout,
		}),
		Listing:   parser,
		Detail:    parser,
		Store:     store,
		Snapshot:  snapshot,
		Sleeper:   clock,
		Clock:     clock,
		IDs:       uuid.New(),
		Hasher:    sha256.New(),
		Publisher: publisher,
		Metrics:   runMetrics,
	}, pipeline.Config{
		ListingURL: cfg.Scraper.ListingURL,
		Base:       base,
		Delay:      cfg.Scraper.Delay,
		Topic:      cfg.PubSub.Topic,
		StoreName:  storeName,
	}, logger.Named("pipeline"))
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}

	summary, runErr := driver.Run(ctx)
	c.pushMetrics(ctx, runMetrics, summary.RunID)
	if runErr != nil {
		return fmt.Errorf("scrape: %w", runErr)
	}
	logger.Info("scrape finished",
		zap.String("run_id", summary.RunID),
		zap.Int("films", summary.Films),
		zap.Int("skipped", summary.Skipped),
		zap.String("store", storeName),
		zap.String("json_path", cfg.Output.JSONPath),
		zap.String("snapshot_sha256", summary.SnapshotSHA256),
	)
	return nil
}

func buildRecordStore(cfg config.Config, logger *zap.Logger) (film.RecordStore, string, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		store, err := postgres.New(postgres.Config{DSN: cfg.Store.PostgresDSN}, logger.Named("postgres"))
		if err != nil {
			return nil, "", fmt.Errorf("init postgres store: %w", err)
		}
		return store, config.DriverPostgres, nil
	case config.DriverSQLite:
		store, err := sqlite.New(sqlite.Config{Path: cfg.Store.SQLitePath}, logger.Named("sqlite"))
		if err != nil {
			return nil, "", fmt.Errorf("init sqlite store: %w", err)
		}
		return store, config.DriverSQLite, nil
	default:
		return nil, "", errors.New("unknown store driver " + cfg.Store.Driver)
	}
}

// pushMetrics sends run metrics to the Pushgateway, even when the run failed.
func (c *cli) pushMetrics(ctx context.Context, m *metrics.Metrics, runID string) {
	if c.cfg.Metrics.PushgatewayURL == "" {
		return
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()
	err := m.Push(pushCtx, metrics.PushConfig{URL: c.cfg.Metrics.PushgatewayURL, Job: c.cfg.Metrics.Job}, runID)
	if err != nil {
		c.logger.Warn("metrics push failed", zap.Error(err))
	}
}
