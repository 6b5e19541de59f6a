package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// MetricsServer exposes a Prometheus registry over HTTP.
type MetricsServer struct {
	server   *http.Server
	registry *prometheus.Registry
	port     int
	endpoint string
}

// NewMetricsServer serves registry on :port at endpoint. Application
// collectors must be registered on the same registry.
func NewMetricsServer(registry *prometheus.Registry, port int, endpoint string) *MetricsServer {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if endpoint == "" {
		endpoint = "/metrics"
	}
	return &MetricsServer{
		registry: registry,
		port:     port,
		endpoint: endpoint,
	}
}

// Setup registers the runtime collectors and builds the HTTP server.
func (m *MetricsServer) Setup() error {
	err := m.registry.Register(collectors.NewGoCollector())
	if err == nil {
		err = m.registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if err != nil {
		return fmt.Errorf("register runtime collectors: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(m.endpoint, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	m.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", m.port),
		Handler: mux,
	}
	return nil
}

func (m *MetricsServer) Handler() http.Handler {
	return m.server.Handler
}

func (m *MetricsServer) Start() {
	go func() {
		logrus.Infof("metrics server listening on port %d%s", m.port, m.endpoint)
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("metrics server failed")
		}
	}()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down metrics server...")
	if err := m.server.Shutdown(ctx); err != nil {
		return err
	}
	logrus.Info("metrics server stopped")
	return nil
}
