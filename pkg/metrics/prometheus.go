package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	SyncOperations     *prometheus.CounterVec
	SyncDuration       *prometheus.HistogramVec
	DocumentMutations  *prometheus.CounterVec
	NormalizationDrops *prometheus.CounterVec
	RemoteChanged      prometheus.Gauge
}

// NewMetrics creates new prometheus metrics registered on reg. A nil reg
// registers on the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SyncOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_operations_total",
			Help:      "The total number of sync operations by outcome",
		}, []string{"operation", "status"}),
		SyncDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Time taken by remote sync operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		DocumentMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_mutations_total",
			Help:      "The total number of planner document mutations",
		}, []string{"operation"}),
		NormalizationDrops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalization_drops_total",
			Help:      "The total number of records dropped while normalizing input",
		}, []string{"source"}),
		RemoteChanged: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remote_changed",
			Help:      "1 when the remote trip document is newer than the last known version",
		}),
	}
}

// NewNopMetrics returns metrics registered on a throwaway registry
func NewNopMetrics() *Metrics {
	return NewMetrics("test", prometheus.NewRegistry())
}
