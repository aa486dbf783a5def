package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aurelia-chain/aurelia-go/module"
)

// AggregatorCollector implements module.AggregatorMetrics backed by
// prometheus collectors.
type AggregatorCollector struct {
	votesCollected        prometheus.Counter
	effectsCollected      prometheus.Counter
	quorumLatency         *prometheus.HistogramVec
	transactionsCertified prometheus.Counter
	transactionsExecuted  prometheus.Counter
	retriesExhausted      prometheus.Counter
	conflictsDetected     *prometheus.CounterVec
	currentEpoch          prometheus.Gauge
	reconfigFailures      prometheus.Counter
}

var _ module.AggregatorMetrics = (*AggregatorCollector)(nil)

func NewAggregatorCollector() *AggregatorCollector {
	ac := &AggregatorCollector{
		votesCollected: promauto.NewCounter(prometheus.CounterOpts{
			Name:      "votes_collected_total",
			Namespace: namespaceAggregator,
			Subsystem: subsystemQuorum,
			Help:      "number of valid validator votes folded into quorum accumulators",
		}),
		effectsCollected: promauto.NewCounter(prometheus.CounterOpts{
			Name:      "effects_collected_total",
			Namespace: namespaceAggregator,
			Subsystem: subsystemQuorum,
			Help:      "number of valid execution effects attestations folded into quorum accumulators",
		}),
		quorumLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "quorum_latency_seconds",
			Namespace: namespaceAggregator,
			Subsystem: subsystemQuorum,
			Help:      "duration between issuing a committee-wide request and reaching quorum",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{LabelPhase}),
		transactionsCertified: promauto.NewCounter(prometheus.CounterOpts{
			Name:      "transactions_certified_total",
			Namespace: namespaceAggregator,
			Subsystem: subsystemQuorum,
			Help:      "number of transactions for which a certificate was formed",
		}),
		transactionsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name:      "transactions_executed_total",
			Namespace: namespaceAggregator,
			Subsystem: subsystemQuorum,
			Help:      "number of transactions with quorum-matching execution effects",
		}),
		retriesExhausted: promauto.NewCounter(prometheus.CounterOpts{
			Name:      "retries_exhausted_total",
			Namespace: namespaceAggregator,
			Subsystem: subsystemQuorum,
			Help:      "number of authorities whose per-request retries were exhausted",
		}),
		conflictsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:      "conflicts_detected_total",
			Namespace: namespaceAggregator,
			Subsystem: subsystemConflict,
			Help:      "number of detected conflicts by kind",
		}, []string{LabelKind}),
		currentEpoch: promauto.NewGauge(prometheus.GaugeOpts{
			Name:      "current_epoch",
			Namespace: namespaceAggregator,
			Subsystem: subsystemEpoch,
			Help:      "the aggregator's active epoch",
		}),
		reconfigFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name:      "reconfiguration_failures_total",
			Namespace: namespaceAggregator,
			Subsystem: subsystemEpoch,
			Help:      "number of fatal epoch catch-up failures",
		}),
	}
	return ac
}

func (ac *AggregatorCollector) VoteCollected() {
	ac.votesCollected.Inc()
}

func (ac *AggregatorCollector) EffectsCollected() {
	ac.effectsCollected.Inc()
}

func (ac *AggregatorCollector) QuorumReached(phase string, duration time.Duration) {
	ac.quorumLatency.WithLabelValues(phase).Observe(duration.Seconds())
}

func (ac *AggregatorCollector) TransactionCertified() {
	ac.transactionsCertified.Inc()
}

func (ac *AggregatorCollector) TransactionExecuted() {
	ac.transactionsExecuted.Inc()
}

func (ac *AggregatorCollector) RetriesExhausted() {
	ac.retriesExhausted.Inc()
}

func (ac *AggregatorCollector) ConflictDetected(kind string) {
	ac.conflictsDetected.WithLabelValues(kind).Inc()
}

func (ac *AggregatorCollector) EpochAdvanced(epoch uint64) {
	ac.currentEpoch.Set(float64(epoch))
}

func (ac *AggregatorCollector) ReconfigurationFailed() {
	ac.reconfigFailures.Inc()
}
