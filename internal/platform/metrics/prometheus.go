package metrics

import (
	"net/http"
	"time"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	ListingsCreatedTotal prometheus.Counter
	ListingsUpdatedTotal prometheus.Counter
	ListingsDeletedTotal prometheus.Counter
	AccountsCreatedTotal prometheus.Counter

	// ArtifactsStagedTotal counts blobs written ahead of a transaction.
	ArtifactsStagedTotal prometheus.Counter
	// ArtifactsDeletedTotal counts successful deletions by phase
	// ("orphan" after commit, "rollback" after abort).
	ArtifactsDeletedTotal *prometheus.CounterVec
	// ArtifactCleanupFailuresTotal counts deletions that failed and leaked a blob.
	ArtifactCleanupFailuresTotal *prometheus.CounterVec

	TransactionConflictsTotal prometheus.Counter
	HTTPRequestLatency        *prometheus.HistogramVec
}

func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		ListingsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "listings_created_total",
			Help:      "Total number of listings created.",
		}),
		ListingsUpdatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "listings_updated_total",
			Help:      "Total number of listings updated.",
		}),
		ListingsDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "listings_deleted_total",
			Help:      "Total number of listings deleted.",
		}),
		AccountsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "accounts_created_total",
			Help:      "Total number of accounts created.",
		}),
		ArtifactsStagedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "artifacts_staged_total",
			Help:      "Total number of artifacts written before a transaction.",
		}),
		ArtifactsDeletedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "artifacts_deleted_total",
			Help:      "Total number of artifacts deleted, by phase.",
		}, []string{"phase"}),
		ArtifactCleanupFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "artifact_cleanup_failures_total",
			Help:      "Total number of artifact deletions that failed, by phase.",
		}, []string{"phase"}),
		TransactionConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "transaction_conflicts_total",
			Help:      "Total number of operations aborted by a transaction conflict.",
		}),
		HTTPRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Name:      "http_request_latency_seconds",
			Help:      "Latency of HTTP requests by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		m.ListingsCreatedTotal,
		m.ListingsUpdatedTotal,
		m.ListingsDeletedTotal,
		m.AccountsCreatedTotal,
		m.ArtifactsStagedTotal,
		m.ArtifactsDeletedTotal,
		m.ArtifactCleanupFailuresTotal,
		m.TransactionConflictsTotal,
		m.HTTPRequestLatency,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// NewServer returns the /metrics HTTP server, or nil when port is empty.
func NewServer(port string, appLogger *logger.Logger, m *Metrics) *http.Server {
	if port == "" {
		appLogger.Info("Prometheus metrics server port not configured, server will not start")
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	appLogger.Info("Prometheus metrics server configured", "port", port, "path", "/metrics")
	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
