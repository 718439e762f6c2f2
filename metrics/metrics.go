package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScrapesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "covid_scrapes_total",
		Help: "Total number of risk area page scrapes",
	})
	ScrapeFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "covid_scrape_failures_total",
		Help: "Total number of failed scrapes",
	})
	ScrapeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "covid_scrape_duration_ms",
		Help:    "Scrape duration in milliseconds",
		Buckets: []float64{500, 1000, 2000, 5000, 10000, 20000, 60000},
	})
	Areas = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "covid_areas",
		Help: "Number of risk areas in the latest snapshot",
	}, []string{"level"})
	SnapshotsSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "covid_snapshots_saved_total",
		Help: "Total number of snapshots persisted",
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "covid_cache_hits_total",
		Help: "Total snapshot cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "covid_cache_misses_total",
		Help: "Total snapshot cache misses",
	})
	ExportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "covid_exports_total",
		Help: "Total report exports by format",
	}, []string{"format"})
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "covid_http_requests_total",
		Help: "Total HTTP requests by route and status",
	}, []string{"path", "status"})
)

func init() {
	prometheus.MustRegister(ScrapesTotal)
	prometheus.MustRegister(ScrapeFailuresTotal)
	prometheus.MustRegister(ScrapeDurationMs)
	prometheus.MustRegister(Areas)
	prometheus.MustRegister(SnapshotsSavedTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(ExportsTotal)
	prometheus.MustRegister(RequestsTotal)
}

// Handler exposes the registered metrics for scraping at /metrics.
func Handler() http.Handler { return promhttp.Handler() }
