package proxy

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gemini-proxy/types"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gemini_proxy_requests_total",
		Help: "Chat completion requests by outcome.",
	}, []string{"outcome"})

	translationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gemini_proxy_translation_errors_total",
		Help: "Translation failures by error kind.",
	}, []string{"kind"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gemini_proxy_request_duration_seconds",
		Help:    "End-to-end request duration including the upstream call.",
		Buckets: prometheus.DefBuckets,
	})
)

// errorKind classifies an error against the translation taxonomy for metrics
func errorKind(err error) string {
	var unsupported *types.UnsupportedInputError
	var violation *types.ProtocolViolationError
	var usage *types.UsageUnavailableError
	var transport *types.TransportError

	switch {
	case errors.As(err, &unsupported):
		return "unsupported_input"
	case errors.As(err, &violation):
		return "protocol_violation"
	case errors.As(err, &usage):
		return "usage_unavailable"
	case errors.As(err, &transport):
		return "transport"
	default:
		return "other"
	}
}
