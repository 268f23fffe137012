// Package api serves the latest film snapshot over HTTP. Notable routes:
//   - GET /healthz and /readyz for probes; readyz fails until a snapshot exists.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/films for the snapshot as a JSON array.
//   - GET /films.json for the raw document, and GET / for an HTML table.
package api
