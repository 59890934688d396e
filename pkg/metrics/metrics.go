// Package metrics exposes the Prometheus registry and scrape handler for the
// YouTube channel scraper. Metrics are defined in their respective packages
// (client, quota) and registered via promauto on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the scraper.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving the default registry in the
// Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - youtube_requests_total{endpoint, status} (Counter): Total requests by API method and HTTP status
//   - youtube_request_duration_seconds{endpoint} (Histogram): Request duration by API method
//   - youtube_errors_total{class} (Counter): Errors by class (client, server, quota, network)
//
// Quota Metrics (pkg/quota):
//   - youtube_quota_units_used (Gauge): Quota units consumed in the current Pacific day
//   - youtube_quota_units_total{method} (Counter): Quota units recorded by API method
//
// Example Prometheus Queries:
//
//   # Share of the daily budget spent (default 10000 units)
//   youtube_quota_units_used / 10000
//
//   # Search units per hour
//   increase(youtube_quota_units_total{method="search.list"}[1h])
//
//   # Quota errors
//   rate(youtube_errors_total{class="quota"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(youtube_request_duration_seconds_bucket[5m]))
