package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AcquireTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoloc_acquire_total",
		Help: "Position acquisitions by outcome code (ok or failure code)",
	}, []string{"outcome"})
	AcquireDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geoloc_acquire_duration_ms",
		Help:    "Position acquisition duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000, 10000},
	})
	RefetchTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoloc_refetch_total",
		Help: "Total tracker refetch triggers",
	})
	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoloc_provider_requests_total",
		Help: "Total provider Locate requests",
	}, []string{"provider"})
	ProviderSuccessTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoloc_provider_success_total",
		Help: "Total provider Locate successes",
	}, []string{"provider"})
	ProviderFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoloc_provider_fail_total",
		Help: "Total provider Locate failures",
	}, []string{"provider"})
	ProviderDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoloc_provider_duration_ms",
		Help:    "Provider Locate duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"provider"})
	ProviderHeartbeatTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoloc_provider_heartbeat_total",
		Help: "Provider heartbeat count by status",
	}, []string{"provider", "status"})
	NearbyCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoloc_nearby_cache_hits_total",
		Help: "Total nearby-stores cache hits",
	})
	NearbyCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoloc_nearby_cache_misses_total",
		Help: "Total nearby-stores cache misses",
	})
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoloc_http_requests_total",
		Help: "Total API requests by route",
	}, []string{"route"})
)

func init() {
	prometheus.MustRegister(AcquireTotal)
	prometheus.MustRegister(AcquireDurationMs)
	prometheus.MustRegister(RefetchTotal)
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderSuccessTotal)
	prometheus.MustRegister(ProviderFailTotal)
	prometheus.MustRegister(ProviderDurationMs)
	prometheus.MustRegister(ProviderHeartbeatTotal)
	prometheus.MustRegister(NearbyCacheHitsTotal)
	prometheus.MustRegister(NearbyCacheMissesTotal)
	prometheus.MustRegister(RequestsTotal)
}

// 文档注释：返回 Prometheus 指标监听器，在主入口挂载到 /metrics
func Handler() http.Handler { return promhttp.Handler() }
