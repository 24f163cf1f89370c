package metrics

import "github.com/prometheus/client_golang/prometheus"

// Label values for ListingsSynced.
const (
	OpAdded   = "added"
	OpUpdated = "updated"
	OpRemoved = "removed"
)

// Collectors for the storefront and the inventory sync.
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "freakinbeats_http_requests_total",
		Help: "Cumulative number of HTTP requests served.",
	}, []string{"method", "status"})
	HTTPRequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "freakinbeats_http_request_duration_seconds",
		Help:    "Time spent serving HTTP requests.",
		Buckets: prometheus.DefBuckets,
	})
	SyncRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "freakinbeats_sync_runs_total",
		Help: "Cumulative number of inventory sync runs.",
	})
	SyncFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "freakinbeats_sync_failures_total",
		Help: "Cumulative number of inventory sync runs that failed.",
	})
	SyncLastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "freakinbeats_sync_last_run_timestamp_seconds",
		Help: "Unix time of the last completed inventory sync.",
	})
	ListingsSynced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "freakinbeats_listings_synced_total",
		Help: "Cumulative number of listings added, updated, and removed by sync.",
	}, []string{"op"})
	LabelOverviewsGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "freakinbeats_label_overviews_generated_total",
		Help: "Cumulative number of AI label overviews generated.",
	})
)

// Collectors returns every collector for registration at startup.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestsTotal,
		HTTPRequestDuration,
		SyncRunsTotal,
		SyncFailuresTotal,
		SyncLastRunTimestamp,
		ListingsSynced,
		LabelOverviewsGenerated,
	}
}
