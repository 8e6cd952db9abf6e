// Package metrics exposes the application's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kerhoff/WishSync/internal/errs"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wishsync",
			Subsystem: "wishes",
			Name:      "mutations_total",
			Help:      "Total number of wish mutations, by action and outcome.",
		},
		[]string{"action", "status"},
	)

	broadcasts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wishsync",
			Subsystem: "realtime",
			Name:      "broadcasts_total",
			Help:      "Total number of room broadcasts fanned out.",
		},
	)

	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wishsync",
			Subsystem: "realtime",
			Name:      "connections",
			Help:      "Current number of open websocket connections.",
		},
	)
)

func init() {
	Registry.MustRegister(mutations, broadcasts, wsConnections)
}

// MutationObserved records the outcome of one wish mutation.
func MutationObserved(action, status string) {
	mutations.WithLabelValues(action, status).Inc()
}

// StatusLabel maps a mutation error onto the status label vocabulary of the
// mutation counter. Both transports use it so the labels cannot drift.
func StatusLabel(err error) string {
	switch {
	case errs.IsValidation(err), errs.IsForbidden(err):
		return "validation"
	case errs.IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}

// BroadcastSent records one room-wide fan-out.
func BroadcastSent() {
	broadcasts.Inc()
}

// ConnectionOpened and ConnectionClosed track the websocket gauge.
func ConnectionOpened() { wsConnections.Inc() }

// ConnectionClosed decrements the websocket connection gauge.
func ConnectionClosed() { wsConnections.Dec() }

// Handler serves the collectors for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
