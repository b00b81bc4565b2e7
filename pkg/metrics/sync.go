package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records sync-pass and offline-queue health.
type SyncMetrics struct {
	pending  prometheus.Gauge
	synced   prometheus.Counter
	failed   prometheus.Counter
	duration prometheus.Histogram
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pos_pending_transactions",
		Help: "Transactions in the pending partition awaiting remote sync.",
	})
	synced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_transactions_synced_total",
		Help: "Transactions acknowledged by the remote store.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_transactions_sync_failures_total",
		Help: "Per-transaction failures during sync passes.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_sync_pass_duration_seconds",
		Help:    "Duration of full sync passes in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(pending, synced, failed, duration)
	return &SyncMetrics{
		pending:  pending,
		synced:   synced,
		failed:   failed,
		duration: duration,
	}
}

// SetPending records the current pending-partition depth.
func (s *SyncMetrics) SetPending(count int) {
	if s == nil || s.pending == nil {
		return
	}
	s.pending.Set(float64(count))
}

// IncSynced increments the synced-transaction counter.
func (s *SyncMetrics) IncSynced() {
	if s == nil || s.synced == nil {
		return
	}
	s.synced.Inc()
}

// IncFailed increments the sync-failure counter.
func (s *SyncMetrics) IncFailed() {
	if s == nil || s.failed == nil {
		return
	}
	s.failed.Inc()
}

// ObservePass records the duration of a completed sync pass.
func (s *SyncMetrics) ObservePass(duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.Observe(duration.Seconds())
}
