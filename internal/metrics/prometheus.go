package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DispatchEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "message_dispatch_events_total",
			Help: "Message created events by outcome (dispatched, duplicate, skipped, failed)",
		},
		[]string{"outcome"},
	)

	PushSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_sends_total",
			Help: "Push sends by delivery kind and result",
		},
		[]string{"kind", "result"},
	)

	MessagesDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cleanup_messages_deleted_total",
			Help: "Messages removed by the retention cleanup",
		},
	)

	CallableRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callable_requests_total",
			Help: "Callable endpoint invocations by function and status code",
		},
		[]string{"function", "code"},
	)
)

// Init registers metrics with Prometheus
func Init() {
	prometheus.MustRegister(DispatchEvents)
	prometheus.MustRegister(PushSends)
	prometheus.MustRegister(MessagesDeleted)
	prometheus.MustRegister(CallableRequests)
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
