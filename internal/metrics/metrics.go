package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messaging_messages_created_total",
		Help: "Messages persisted to the conversation store.",
	})
	WSEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messaging_ws_events_total",
		Help: "Realtime events received from clients, by event name.",
	}, []string{"event"})
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "messaging_ws_connections",
		Help: "Websocket connections currently attached to this instance.",
	})
)

// Handler returns the scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
