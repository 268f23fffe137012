// Package cmd defines the film-scraper CLI: a one-shot scrape command and a
// server for the resulting snapshot.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/film-scraper/internal/config"
	"github.com/JakeFAU/film-scraper/internal/logging"
)

// cli carries what every subcommand needs once the root has initialized it.
type cli struct {
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
	// newLogger is swapped in tests to capture output.
	newLogger func(logging.Config) (*zap.Logger, error)
}

// newRootCmd creates the root command and its subcommands.
func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "film-scraper",
		Short: "Scrapes the highest-grossing films list into SQLite and JSON.",
		Long: `film-scraper reads the Wikipedia list of highest-grossing films, visits
every film page once with a fixed pause between requests, and stores the
title, release date, director, box office and country of each film in a
relational table and a JSON document.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Loads configuration and the logger before any subcommand runs.
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return c.init()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (YAML, JSON or TOML); env vars use the SCRAPER_ prefix")
	root.AddCommand(newScrapeCmd(c), newServeCmd(c))
	return root
}

func (c *cli) init() error {
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	newLogger := c.newLogger
	if newLogger == nil {
		newLogger = logging.New
	}
	logger, err := newLogger(logging.Config{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	c.cfg = cfg
	c.logger = logger
	return nil
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	os.Exit(run(context.Background(), &cli{}, os.Args[1:], os.Stderr))
}

// run executes the command tree under a signal-aware context and returns the
// process exit code. Errors raised before the logger exists go to stderr.
func run(parent context.Context, c *cli, args []string, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		if c.logger != nil {
			c.logger.Error("command failed", zap.Error(err))
			_ = c.logger.Sync()
		} else {
			fmt.Fprintf(stderr, "film-scraper: %v\n", err)
		}
		return 1
	}
	return 0
}
