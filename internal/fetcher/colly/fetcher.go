// Package collyfetcher implements film.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/film-scraper/internal/film"
)

const defaultTimeout = 15 * time.Second

var errUnexpectedStatus = errors.New("unexpected status")

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher implements film.Fetcher using the Colly collector. Every call is a
// single GET with no retries.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// fetchState is filled in by the collector callbacks.
type fetchState struct {
	page   film.Page
	status int
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	opts := []colly.CollectorOption{colly.Async(false)}
	if cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(cfg.UserAgent))
	}
	c := colly.NewCollector(opts...)
	// Every run re-fetches the full data set.
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET. Anything other than a 200 response is
// returned as a *film.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (film.Page, error) {
	state := &fetchState{}
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, time.Now(), state)

	if err := f.runCollector(ctx, collector, rawURL); err != nil {
		fetchErr := &film.FetchError{URL: rawURL, Err: err}
		if ctx.Err() == nil {
			fetchErr.StatusCode = state.status
		}
		return film.Page{}, fetchErr
	}
	if state.page.StatusCode != http.StatusOK {
		return film.Page{}, &film.FetchError{URL: rawURL, StatusCode: state.page.StatusCode, Err: errUnexpectedStatus}
	}
	return state.page, nil
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, start time.Time, state *fetchState) {
	hooks.OnResponse(func(r *colly.Response) {
		headers := http.Header{}
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		state.page = film.Page{
			URL:        r.Request.URL.String(),
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
		state.status = r.StatusCode
	})

	// Visit returns the error itself; the hook only keeps the status.
	hooks.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			state.status = r.StatusCode
		}
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("colly fetch canceled: %w", err)
	}
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}
