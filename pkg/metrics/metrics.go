// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "holiapp"

var (
	// RegisterOutcomes counts finished registration handshakes by response code
	// ("OK" on success).
	RegisterOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "register_total",
		Help:      "Registration handshakes by outcome code.",
	}, []string{"code"})

	// Verifications counts protected and webhook request verifications.
	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "request_verifications_total",
		Help:      "Inbound request verifications by pipeline and outcome.",
	}, []string{"pipeline", "outcome"})

	// RemoteAPLRequests counts calls issued by the remote APL client.
	RemoteAPLRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remote_apl_requests_total",
		Help:      "Remote APL operations by operation and result.",
	}, []string{"op", "result"})

	// RemoteAPLCache counts cache lookups of the remote APL client.
	RemoteAPLCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remote_apl_cache_total",
		Help:      "Remote APL cache lookups by result (hit|miss).",
	}, []string{"result"})
)
