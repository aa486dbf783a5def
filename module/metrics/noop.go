package metrics

import (
	"time"

	"github.com/aurelia-chain/aurelia-go/module"
)

// NoopCollector is a metrics collector that discards all metrics.
type NoopCollector struct{}

var _ module.AggregatorMetrics = (*NoopCollector)(nil)

func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (nc *NoopCollector) VoteCollected()                                  {}
func (nc *NoopCollector) EffectsCollected()                               {}
func (nc *NoopCollector) QuorumReached(phase string, d time.Duration)     {}
func (nc *NoopCollector) TransactionCertified()                           {}
func (nc *NoopCollector) TransactionExecuted()                            {}
func (nc *NoopCollector) RetriesExhausted()                               {}
func (nc *NoopCollector) ConflictDetected(kind string)                    {}
func (nc *NoopCollector) EpochAdvanced(epoch uint64)                      {}
func (nc *NoopCollector) ReconfigurationFailed()                          {}
