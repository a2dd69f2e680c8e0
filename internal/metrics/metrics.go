package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveRooms tracks rooms currently held by the registry.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicerelay_active_rooms",
		Help: "Number of rooms with at least one member.",
	})

	// ActiveClients tracks clients currently joined to any room.
	ActiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicerelay_active_clients",
		Help: "Number of clients joined to a room.",
	})

	// FramesRouted counts inbound frames dispatched by the session handler.
	FramesRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicerelay_frames_routed_total",
		Help: "Inbound signaling frames dispatched, by frame type.",
	}, []string{"type"})

	// JoinsDenied counts join attempts rejected by the authorization gate.
	JoinsDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicerelay_joins_denied_total",
		Help: "Join attempts rejected by the authorization check.",
	})

	// DeliveryFailures counts sends that marked a peer dead during fan-out.
	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicerelay_delivery_failures_total",
		Help: "Outbound sends that failed and evicted the recipient.",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
