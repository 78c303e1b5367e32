package subflow

import (
	"log/slog"

	"github.com/arloliu/subflow/internal/logging"
	"github.com/arloliu/subflow/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// NewPrometheusMetrics returns a MetricsCollector that records into reg under
// namespace. A nil reg uses prometheus.DefaultRegisterer and an empty
// namespace defaults to "subflow". Collectors are registered on first use.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) MetricsCollector {
	return metrics.NewPrometheus(reg, namespace)
}

// NewNopMetrics returns a MetricsCollector that discards everything.
func NewNopMetrics() MetricsCollector {
	return metrics.NewNop()
}

// NewSlogLogger adapts a *slog.Logger to Logger. A nil logger uses slog.Default().
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		return logging.NewSlogDefault()
	}

	return logging.NewSlog(logger)
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger {
	return logging.NewNop()
}
