package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/kvfuse-project/kvfuse/internal/logger"
)

// ShutdownFn stops whatever Setup started.
type ShutdownFn func(ctx context.Context) error

// Setup installs a Prometheus exporter as the global otel MeterProvider and
// serves it on addr (e.g. ":9477") at /metrics. Callers get back a Handle
// built against that provider and a ShutdownFn to call on unmount.
func Setup(addr string) (Handle, ShutdownFn, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	handle, err := New()
	if err != nil {
		return nil, nil, fmt.Errorf("building metrics handle: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server on %s stopped: %v", addr, err)
		}
	}()

	shutdown := func(ctx context.Context) error {
		return errors.Join(server.Shutdown(ctx), provider.Shutdown(ctx))
	}
	return handle, shutdown, nil
}
