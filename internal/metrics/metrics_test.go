package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://En.Wikipedia.org/wiki/Avatar", "en.wikipedia.org"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestRunCounters(t *testing.T) {
	t.Parallel()

	m := New(false)
	m.ObservePage("https://en.wikipedia.org/wiki/List", KindListing, OutcomeOK, 2048, 300*time.Millisecond)
	m.ObservePage("https://en.wikipedia.org/wiki/Avatar", KindDetail, OutcomeOK, 1024, 100*time.Millisecond)
	m.ObservePage("https://en.wikipedia.org/wiki/Gone", KindDetail, OutcomeError, 0, 50*time.Millisecond)
	m.ObserveFilm(FilmAdded)
	m.ObserveFilm(FilmSkipped)
	m.ObserveFilm(FilmAdded)
	m.ObserveRows("sqlite", 2)
	m.ObserveRows("json", 0)

	assert.InDelta(t, 1, testutil.ToFloat64(m.pagesTotal.WithLabelValues("en.wikipedia.org", KindDetail, OutcomeError)), 0)
	assert.InDelta(t, 3072, testutil.ToFloat64(m.pageBytesTotal.WithLabelValues("en.wikipedia.org")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.filmsTotal.WithLabelValues(FilmAdded)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.filmsTotal.WithLabelValues(FilmSkipped)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.rowsWrittenTotal.WithLabelValues("sqlite")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.fetchDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.rowsWrittenTotal))

	m.MarkSuccess(time.Unix(1700000000, 0))
	assert.InDelta(t, 1700000000, testutil.ToFloat64(m.lastRunTimestamp), 0)
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObservePage("https://example.com", KindDetail, OutcomeOK, 10, time.Second)
	m.ObserveFilm(FilmAdded)
	m.ObserveRows("sqlite", 1)
	m.MarkSuccess(time.Now())
	m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.Push(context.Background(), PushConfig{}, "run"))
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	m := New(false)
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/test", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/notfound", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/test", "/notfound"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "404")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.httpRequestDuration))
}

func TestHandlerExposesRegistry(t *testing.T) {
	t.Parallel()

	m := New(false)
	m.ObserveFilm(FilmAdded)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `film_scraper_films_total{result="added"} 1`)
}

func TestPushGroupsByRunID(t *testing.T) {
	t.Parallel()

	type request struct {
		method, path, body string
	}
	requests := make(chan request, 1)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests <- request{method: r.Method, path: r.URL.Path, body: string(body)}
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	m := New(false)
	m.ObserveFilm(FilmAdded)
	require.NoError(t, m.Push(context.Background(), PushConfig{URL: gateway.URL}, "0190-run"))

	got := <-requests
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/metrics/job/film_scraper/run_id/0190-run", got.path)
	assert.True(t, strings.Contains(got.body, "film_scraper_films_total"))
}

func TestPushErrors(t *testing.T) {
	t.Parallel()

	m := New(false)
	require.Error(t, m.Push(context.Background(), PushConfig{}, "run"))

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer gateway.Close()
	err := m.Push(context.Background(), PushConfig{URL: gateway.URL, Job: "films"}, "run")
	require.ErrorContains(t, err, "push metrics")
}

func FuzzSanitizeSite(f *testing.F) {
	for _, tc := range []string{"http://example.com", "https://en.wikipedia.org/wiki/Avatar", "ftp://example.com"} {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
