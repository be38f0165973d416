package prometheus

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultShutdownTimeout   = 5 * time.Second
)

// Exporter serves PromptFlow metrics over HTTP at /metrics.
type Exporter struct {
	addr     string
	server   *http.Server
	registry *prometheus.Registry
	mu       sync.Mutex
}

// NewExporter creates an exporter with the PromptFlow collectors plus the Go
// runtime and process collectors registered.
func NewExporter(addr string) *Exporter {
	reg := prometheus.NewRegistry()
	reg.MustRegister(allMetrics...)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewExporterWithRegistry(addr, reg)
}

// NewExporterWithRegistry creates an exporter over a caller-owned registry.
func NewExporterWithRegistry(addr string, registry *prometheus.Registry) *Exporter {
	return &Exporter{addr: addr, registry: registry}
}

// Registry returns the underlying Prometheus registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler returns the traced /metrics handler.
func (e *Exporter) Handler() http.Handler {
	return otelhttp.NewHandler(
		promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}),
		"promptflow-metrics",
	)
}

// Run serves metrics until ctx is cancelled, then shuts the server down.
// A second concurrent Run returns immediately.
func (e *Exporter) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.server != nil {
		e.mu.Unlock()
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{
		Addr:              e.addr,
		Handler:           mux,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
	e.server = srv
	e.mu.Unlock()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		e.reset()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		e.reset()
		return err
	}
}

func (e *Exporter) reset() {
	e.mu.Lock()
	e.server = nil
	e.mu.Unlock()
}
