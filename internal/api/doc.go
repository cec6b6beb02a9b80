// Package api hosts the watcher's optional operator HTTP listener.
// Routes:
//   - GET /healthz for liveness.
//   - GET /readyz, which turns ready once the first cycle has finished.
//   - GET /metrics for Prometheus scraping.
package api
