package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pinpoint_http_requests_total",
		Help: "Total HTTP requests by route and status class",
	}, []string{"route", "status"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pinpoint_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000},
	}, []string{"route"})
	GeocodeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pinpoint_geocode_requests_total",
		Help: "Total reverse geocoding requests sent upstream",
	})
	GeocodeFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pinpoint_geocode_fail_total",
		Help: "Reverse geocoding lookups that fell back to the unknown name",
	})
	GeocodeCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pinpoint_geocode_cache_hits_total",
		Help: "Reverse geocoding names served from cache",
	})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pinpoint_geocode_duration_ms",
		Help:    "Reverse geocoding call duration in milliseconds",
		Buckets: []float64{10, 20, 50, 100, 200, 500, 1000, 2000, 5000},
	})
	MarkersCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pinpoint_markers_created_total",
		Help: "Markers created by storage mode",
	}, []string{"mode"})
	MarkersDeletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pinpoint_markers_deleted_total",
		Help: "Markers removed from marker lists by storage mode",
	}, []string{"mode"})
	StoreFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pinpoint_store_fail_total",
		Help: "Remote marker store failures by operation",
	}, []string{"op"})
	SignInsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pinpoint_sign_ins_total",
		Help: "Sign-in attempts by provider and result",
	}, []string{"provider", "result"})
	Workspaces = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pinpoint_workspaces",
		Help: "Open workspaces",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeFailTotal)
	prometheus.MustRegister(GeocodeCacheHitsTotal)
	prometheus.MustRegister(GeocodeDurationMs)
	prometheus.MustRegister(MarkersCreatedTotal)
	prometheus.MustRegister(MarkersDeletedTotal)
	prometheus.MustRegister(StoreFailTotal)
	prometheus.MustRegister(SignInsTotal)
	prometheus.MustRegister(Workspaces)
}

// Handler exposes the registered metrics for scraping at /metrics.
func Handler() http.Handler { return promhttp.Handler() }
