// Package metrics documents the Prometheus metrics exported by the tastypie
// client. Metrics are defined next to the code that records them (adapter,
// transport, pagination, metastore) and registered through promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the registry every tastypie metric is registered with.
	Registry = prometheus.DefaultRegisterer

	// Gatherer is what Handler exposes. It gathers from Registry.
	Gatherer = prometheus.DefaultGatherer
)

// Handler serves the metrics collected by Gatherer and counts its own
// scrapes in Registry.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry, promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
}

// Metrics Documentation
//
// Adapter Metrics (pkg/adapter):
//   - tastypie_findmany_groups_total (Counter): find-many groups planned
//   - tastypie_findmany_group_size (Histogram): records per find-many group
//   - tastypie_rejections_total{operation} (Counter): rejected adapter requests
//
// Transport Metrics (pkg/transport):
//   - tastypie_requests_total{method, status} (Counter): HTTP requests by method and status
//   - tastypie_request_duration_seconds{method} (Histogram): request duration
//   - tastypie_errors_total{class} (Counter): failures by class (client, server, network)
//
// Pagination Metrics (pkg/pagination):
//   - tastypie_pages_fetched_total (Counter): list pages fetched by the batch fetcher
//
// Metadata Store Metrics (pkg/metastore):
//   - tastypie_metastore_errors_total{operation} (Counter): store failures
//
// Example Prometheus Queries:
//
//   # Records per request
//   rate(tastypie_findmany_group_size_sum[5m]) / rate(tastypie_findmany_group_size_count[5m])
//
//   # Server error rate
//   rate(tastypie_errors_total{class="server"}[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(tastypie_request_duration_seconds_bucket[5m]))
