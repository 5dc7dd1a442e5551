package metrics

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scholar_console"

var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Backend API requests by method and status class.",
	}, []string{"method", "status_class"})

	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Response cache lookups by result.",
	}, []string{"result"}) // hit, miss

	pollTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "poll",
		Name:      "ticks_total",
		Help:      "Polling controller ticks by poller and outcome.",
	}, []string{"poller", "outcome"}) // pending, terminal, error

	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "actions_total",
		Help:      "Actions committed to the state container by slice.",
	}, []string{"slice"})
)

// ObserveAPIRequest counts a completed backend request. Status 0 means the
// request never produced a response.
func ObserveAPIRequest(method string, status int) {
	apiRequestsTotal.WithLabelValues(method, statusClass(status)).Inc()
}

// CacheHit counts a response cache hit.
func CacheHit() {
	cacheLookupsTotal.WithLabelValues("hit").Inc()
}

// CacheMiss counts a response cache miss.
func CacheMiss() {
	cacheLookupsTotal.WithLabelValues("miss").Inc()
}

// PollTick counts one polling controller tick.
func PollTick(poller, outcome string) {
	pollTicksTotal.WithLabelValues(poller, outcome).Inc()
}

// ActionCommitted counts one reducer application.
func ActionCommitted(slice string) {
	actionsTotal.WithLabelValues(slice).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func statusClass(status int) string {
	if status <= 0 {
		return "transport_error"
	}
	return strconv.Itoa(status/100) + "xx"
}
