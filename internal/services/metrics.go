package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Plays           *prometheus.CounterVec
	PlayRejections  *prometheus.CounterVec
	Deposits        *prometheus.CounterVec
	LedgerConflicts prometheus.Counter
	LedgerExhausted prometheus.Counter
	LedgerDuration  *prometheus.HistogramVec
}

// NewMetrics registers the ledger collectors on reg. A nil reg gets a private
// registry, which keeps tests from colliding on the default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		Plays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewards_plays_total",
				Help: "Completed plays by stake level and outcome kind",
			},
			[]string{"stake_level", "outcome_kind"},
		),
		PlayRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewards_play_rejections_total",
				Help: "Plays rejected before or during the ledger step",
			},
			[]string{"reason"},
		),
		Deposits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewards_deposits_total",
				Help: "Deposit submissions by whether they credited the account",
			},
			[]string{"applied"},
		),
		LedgerConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rewards_ledger_conflicts_total",
				Help: "Optimistic concurrency collisions retried by the ledger",
			},
		),
		LedgerExhausted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rewards_ledger_retries_exhausted_total",
				Help: "Ledger operations that ran out of retries",
			},
		),
		LedgerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rewards_ledger_duration_seconds",
				Help:    "Ledger operation latency including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}

	reg.MustRegister(m.Plays, m.PlayRejections, m.Deposits, m.LedgerConflicts, m.LedgerExhausted, m.LedgerDuration)
	return m
}
