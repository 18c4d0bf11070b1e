// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics wraps github.com/prometheus/client_golang behind a
// small Recorder seam, grounded on the teacher's metrics/ package
// (a collaborator-style wrapper tests can swap for a no-op), so the
// core never imports the Prometheus registry directly.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the metrics surface the pipeline, intake, and executor
// call into. A nil Recorder is never passed; use NoOp() in tests that
// don't care about metrics.
type Recorder interface {
	IncTransfersSubmitted()
	IncEnqueueFailure()
	IncTxExecuted()
	IncTxFailed()
	IncDeadLetter()
	IncBlockSealed()
	ObserveBatchSize(n int)
	ObserveCycleDuration(d time.Duration)
	IncCacheHit()
	IncCacheMiss()
}

// Prom is the production Recorder, registered against a caller-supplied
// prometheus.Registerer so multiple engine instances in one process
// don't collide on metric names.
type Prom struct {
	transfersSubmitted prometheus.Counter
	enqueueFailures    prometheus.Counter
	txExecuted         prometheus.Counter
	txFailed           prometheus.Counter
	deadLetter         prometheus.Counter
	blocksSealed       prometheus.Counter
	batchSize          prometheus.Histogram
	cycleDuration      prometheus.Histogram
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
}

// NewProm constructs and registers a Prom recorder against reg.
func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		transfersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "walletchain", Subsystem: "intake", Name: "transfers_submitted_total",
			Help: "Transfers accepted by TransferIntake.",
		}),
		enqueueFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "walletchain", Subsystem: "intake", Name: "enqueue_failures_total",
			Help: "Post-commit queue pushes that failed, leaving the row orphaned until janitor sweep.",
		}),
		txExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "walletchain", Subsystem: "executor", Name: "transactions_executed_total",
			Help: "Transactions flipped PENDING -> PROCESSING.",
		}),
		txFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "walletchain", Subsystem: "executor", Name: "transactions_failed_total",
			Help: "Transactions marked FAILED by the executor.",
		}),
		deadLetter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "walletchain", Subsystem: "pipeline", Name: "dead_letter_total",
			Help: "Transaction ids pushed to the dead-letter list.",
		}),
		blocksSealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "walletchain", Subsystem: "pipeline", Name: "blocks_sealed_total",
			Help: "Blocks successfully committed.",
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "walletchain", Subsystem: "pipeline", Name: "batch_size",
			Help: "Number of ids popped per cycle.", Buckets: prometheus.LinearBuckets(0, 2, 10),
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "walletchain", Subsystem: "pipeline", Name: "cycle_duration_seconds",
			Help: "Wall-clock duration of one PipelineLoop cycle.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "walletchain", Subsystem: "balance", Name: "cache_hits_total",
			Help: "BalanceView reads served from the process-local cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "walletchain", Subsystem: "balance", Name: "cache_misses_total",
			Help: "BalanceView reads that fell through to the AccountStore.",
		}),
	}
	reg.MustRegister(
		p.transfersSubmitted, p.enqueueFailures, p.txExecuted, p.txFailed,
		p.deadLetter, p.blocksSealed, p.batchSize, p.cycleDuration,
		p.cacheHits, p.cacheMisses,
	)
	return p
}

func (p *Prom) IncTransfersSubmitted()              { p.transfersSubmitted.Inc() }
func (p *Prom) IncEnqueueFailure()                  { p.enqueueFailures.Inc() }
func (p *Prom) IncTxExecuted()                      { p.txExecuted.Inc() }
func (p *Prom) IncTxFailed()                        { p.txFailed.Inc() }
func (p *Prom) IncDeadLetter()                      { p.deadLetter.Inc() }
func (p *Prom) IncBlockSealed()                     { p.blocksSealed.Inc() }
func (p *Prom) ObserveBatchSize(n int)               { p.batchSize.Observe(float64(n)) }
func (p *Prom) ObserveCycleDuration(d time.Duration) { p.cycleDuration.Observe(d.Seconds()) }
func (p *Prom) IncCacheHit()                        { p.cacheHits.Inc() }
func (p *Prom) IncCacheMiss()                       { p.cacheMisses.Inc() }

// noop implements Recorder with no-ops, for tests that don't assert on
// metrics.
type noop struct{}

// NoOp returns a Recorder that discards everything.
func NoOp() Recorder { return noop{} }

func (noop) IncTransfersSubmitted()          {}
func (noop) IncEnqueueFailure()              {}
func (noop) IncTxExecuted()                  {}
func (noop) IncTxFailed()                    {}
func (noop) IncDeadLetter()                  {}
func (noop) IncBlockSealed()                 {}
func (noop) ObserveBatchSize(int)            {}
func (noop) ObserveCycleDuration(time.Duration) {}
func (noop) IncCacheHit()                    {}
func (noop) IncCacheMiss()                   {}

var (
	_ Recorder = (*Prom)(nil)
	_ Recorder = noop{}
)
