package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RTMSPages         *prometheus.CounterVec
	RTMSRetries       *prometheus.CounterVec
	RecordsNormalized *prometheus.CounterVec
	GeocodeRequests   *prometheus.CounterVec
	CacheHits         prometheus.Counter
	CacheFlushes      prometheus.Counter
	RequestSeconds    *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RTMSPages: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "rtms_pages_fetched_total",
			Help: "Total number of transaction API pages fetched successfully.",
		}, []string{"endpoint"}),
		RTMSRetries: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "rtms_retries_total",
			Help: "Total number of retried transaction API page requests.",
		}, []string{"endpoint"}),
		RecordsNormalized: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "rtms_records_normalized_total",
			Help: "Total number of transaction records converted to the canonical schema.",
		}, []string{"variant"}),
		GeocodeRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geocoding_requests_total",
			Help: "Total number of geocoding provider calls by outcome.",
		}, []string{"status"}),
		CacheHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "geocoding_cache_hits_total",
			Help: "Total number of address lookups answered by the address cache.",
		}),
		CacheFlushes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "geocoding_cache_flushes_total",
			Help: "Total number of address cache writes to the persistent store.",
		}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geocoding_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
	}
}
