// Package metrics exposes Prometheus collectors for a store.
//
// Collectors are created per store and registered only with the Registerer
// the caller passes in; nothing is registered globally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Session outcomes.
const (
	OutcomeConverged = "converged"
	OutcomeFailed    = "failed"
	OutcomeCanceled  = "canceled"
)

// Metrics implements the storage MetricsHook and records store and
// replication activity.
type Metrics struct {
	storageWrite prometheus.Histogram
	storageRead  prometheus.Histogram
	batchCommit  prometheus.Histogram
	batchOps     prometheus.Histogram
	writes       *prometheus.CounterVec
	recordsSent  prometheus.Counter
	recordsRecv  prometheus.Counter
	sessions     *prometheus.CounterVec
	feedsKnown   prometheus.Gauge
}

// New creates the collectors and registers them with reg, if non-nil.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		storageWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hyperkv_storage_write_seconds",
			Help:    "Latency of single-key storage writes",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		storageRead: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hyperkv_storage_read_seconds",
			Help:    "Latency of storage point reads",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14),
		}),
		batchCommit: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hyperkv_storage_batch_commit_seconds",
			Help:    "Latency of storage batch commits",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		batchOps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hyperkv_storage_batch_ops",
			Help:    "Operations per committed batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hyperkv_store_writes_total",
			Help: "Entries appended to the local feed, by kind",
		}, []string{"kind"}),
		recordsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hyperkv_replication_records_sent_total",
			Help: "Feed records sent to peers",
		}),
		recordsRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hyperkv_replication_records_received_total",
			Help: "Feed records received from peers and appended",
		}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hyperkv_replication_sessions_total",
			Help: "Finished replication sessions, by outcome",
		}, []string{"outcome"}),
		feedsKnown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hyperkv_feeds_known",
			Help: "Feeds in the store registry",
		}),
	}
	if reg != nil {
		for _, c := range m.collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.storageWrite, m.storageRead, m.batchCommit, m.batchOps,
		m.writes, m.recordsSent, m.recordsRecv, m.sessions, m.feedsKnown,
	}
}

func (m *Metrics) ObserveWrite(elapsed time.Duration, _ int) {
	m.storageWrite.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRead(elapsed time.Duration, _ int) {
	m.storageRead.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveBatchCommit(elapsed time.Duration, numOps int, _ int) {
	m.batchCommit.Observe(elapsed.Seconds())
	m.batchOps.Observe(float64(numOps))
}

// Wrote counts one local append of the given kind (put, delete, authorize).
func (m *Metrics) Wrote(kind string) { m.writes.WithLabelValues(kind).Inc() }

// Sent counts records sent to a peer.
func (m *Metrics) Sent(n int) { m.recordsSent.Add(float64(n)) }

// Received counts records ingested from a peer.
func (m *Metrics) Received(n int) { m.recordsRecv.Add(float64(n)) }

// SessionDone counts a finished replication session.
func (m *Metrics) SessionDone(outcome string) { m.sessions.WithLabelValues(outcome).Inc() }

// SetFeeds records the registry size.
func (m *Metrics) SetFeeds(n int) { m.feedsKnown.Set(float64(n)) }
