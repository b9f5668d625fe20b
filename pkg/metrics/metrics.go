// Package metrics exposes the Prometheus registry used by the WorkOS client.
// All metrics are defined in their respective packages (client, ratelimit,
// sessionstore, authkit) to maintain modularity and avoid circular
// dependencies.
//
// This package provides the scrape handler and documentation for all
// available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the WorkOS client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - workos_requests_total{endpoint, method, status} (Counter): Requests by endpoint, method and HTTP status
//   - workos_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - workos_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - workos_rate_limited_responses_total (Counter): 429 responses observed
//   - workos_rate_limit_blocks_total (Counter): Requests held back by a Retry-After window
//   - workos_rate_limit_wait_seconds (Histogram): Time spent waiting before a request was sent
//
// Session Store Metrics (pkg/sessionstore):
//   - workos_session_store_hits_total (Counter): Session lookups served from Redis
//   - workos_session_store_misses_total (Counter): Session lookups that found nothing
//   - workos_session_store_errors_total{operation} (Counter): Redis failures by operation
//
// AuthKit Metrics (pkg/authkit):
//   - workos_authkit_sign_ins_total{result} (Counter): Authorization code exchanges (ok, denied, error)
//   - workos_authkit_session_refreshes_total{result} (Counter): Access token refreshes (ok, error)
//
// Endpoint labels collapse resource IDs, e.g. /organizations/:id.
//
// Example Prometheus Queries:
//
//	# API error rate
//	sum(rate(workos_errors_total[5m])) by (class)
//
//	# P95 request latency
//	histogram_quantile(0.95, rate(workos_request_duration_seconds_bucket[5m]))
//
//	# Rate limited share of requests
//	rate(workos_rate_limited_responses_total[5m]) / sum(rate(workos_requests_total[5m]))
//
//	# Failed session refreshes
//	rate(workos_authkit_session_refreshes_total{result="error"}[5m])
