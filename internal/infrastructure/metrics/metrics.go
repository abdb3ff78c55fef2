package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRuns counts sync operations by terminal result.
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etsywp_sync_runs_total",
			Help: "Total number of sync operations by result",
		},
		[]string{"operation", "result"},
	)

	// ListingsSynced counts listings persisted by sync operations.
	ListingsSynced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etsywp_listings_synced_total",
			Help: "Total number of listings upserted into the content store",
		},
	)

	// APIRequests counts outbound Etsy API calls by gateway operation.
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etsywp_api_requests_total",
			Help: "Total number of Etsy API gateway calls",
		},
		[]string{"operation", "outcome"},
	)

	// ImageCacheLookups counts image cache lookups by outcome.
	ImageCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etsywp_image_cache_lookups_total",
			Help: "Total number of image cache lookups",
		},
		[]string{"outcome"},
	)

	// FragmentCacheLookups counts rendered-fragment cache lookups.
	FragmentCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etsywp_fragment_cache_lookups_total",
			Help: "Total number of fragment cache lookups",
		},
		[]string{"outcome"},
	)
)

// RecordAPICall increments the gateway call counter.
func RecordAPICall(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	APIRequests.WithLabelValues(operation, outcome).Inc()
}
