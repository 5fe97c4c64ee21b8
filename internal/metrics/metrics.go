package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rbacview_list_cache_hits_total",
		Help: "List requests served from the resource cache.",
	}, []string{"kind"})

	CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rbacview_list_cache_misses_total",
		Help: "List requests that required a backend fetch.",
	}, []string{"kind"})

	CacheInvalidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rbacview_list_cache_invalidations_total",
		Help: "Cache invalidations triggered by mutations.",
	}, []string{"kind"})

	RESTRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rbacview_rest_requests_total",
		Help: "Requests issued by the REST client, by method and status code.",
	}, []string{"method", "code"})

	BackendRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rbacview_backend_requests_total",
		Help: "Requests served by the reference backend, by route and status code.",
	}, []string{"route", "code"})
)

func init() {
	prometheus.MustRegister(CacheHits, CacheMisses, CacheInvalidations, RESTRequests, BackendRequests)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
