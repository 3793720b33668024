// Package metrics exposes consumer counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ibs-source/sonar-consumer/internal/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sonar_consumer"

// Result label values
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds every collector of the consumer
type Metrics struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Events          *prometheus.CounterVec
	Batches         *prometheus.CounterVec
	Records         *prometheus.CounterVec
	Deliveries      *prometheus.CounterVec
	ConsumerErrors  *prometheus.CounterVec
	Cursor          *prometheus.GaugeVec
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests made to the sonar server.",
		}, []string{"collection", "op", "result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of requests made to the sonar server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collection", "op"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Push notifications received.",
		}, []string{"collection"}),
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Non-empty batches handed to sinks.",
		}, []string{"collection", "subscription"}),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records handed to sinks.",
		}, []string{"collection", "subscription"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_deliveries_total",
			Help:      "Record deliveries per sink and outcome.",
		}, []string{"sink", "result"}),
		ConsumerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Failed subscription steps.",
		}, []string{"collection", "subscription"}),
		Cursor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cursor",
			Help:      "Cursor of the last pulled batch.",
		}, []string{"collection", "subscription"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests,
		m.RequestDuration,
		m.Events,
		m.Batches,
		m.Records,
		m.Deliveries,
		m.ConsumerErrors,
		m.Cursor,
	)
	return m
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one server request
func (m *Metrics) ObserveRequest(collection, op string, started time.Time, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.Requests.WithLabelValues(collection, op, result).Inc()
	m.RequestDuration.WithLabelValues(collection, op).Observe(time.Since(started).Seconds())
}

// ObserveDelivery records one sink delivery
func (m *Metrics) ObserveDelivery(sink string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.Deliveries.WithLabelValues(sink, result).Inc()
}

// Serve exposes the handler on addr under path until ctx is done
func (m *Metrics) Serve(ctx context.Context, addr, path string, logger *log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Metrics listening on %s%s", addr, path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
