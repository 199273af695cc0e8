package observability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics definitions
var (
	ResolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qxsense_resolve_seconds",
		Help:    "Time spent resolving the type of one expression.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	ResolveRuleHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qxsense_resolve_rule_hits_total",
		Help: "Number of expressions resolved by each resolver rule.",
	}, []string{"rule"})

	ScanTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qxsense_scan_total",
		Help: "Backward expression scans by outcome.",
	}, []string{"outcome"})

	FeatureDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qxsense_feature_seconds",
		Help:    "Time spent serving completion, definition and signature requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"feature"})

	RegisteredClasses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qxsense_namespace_classes",
		Help: "Number of classes registered in the namespace database.",
	})

	RegisteredPackages = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qxsense_namespace_packages",
		Help: "Number of package nodes in the namespace database.",
	})

	IngestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qxsense_ingest_total",
		Help: "Metadata records processed, by result.",
	}, []string{"result"})

	ViewCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qxsense_view_cache_hits_total",
		Help: "Full class view lookups served from cache.",
	})

	ViewCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qxsense_view_cache_misses_total",
		Help: "Full class view lookups that had to be merged.",
	})

	HierarchyCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qxsense_hierarchy_cycles_total",
		Help: "Full class view merges aborted because of a cyclic superclass chain.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qxsense_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	InitializeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "qxsense_initialize_seconds",
		Help:    "Time spent building the namespace database for a project root.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)

// ServeMetrics exposes the default registry on addr until ctx is done.
func ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("serving metrics", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
