package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// GovernanceMetrics records multisig action throughput segmented by role and
// action kind.
type GovernanceMetrics struct {
	Submitted *prometheus.CounterVec
	Executed  *prometheus.CounterVec
	Failed    *prometheus.CounterVec
}

// LedgerMetrics records asset lifecycle and token restriction activity.
type LedgerMetrics struct {
	AssetTransitions *prometheus.CounterVec
	Transfers        *prometheus.CounterVec
	DelayedTransfers *prometheus.CounterVec
	Restrictions     *prometheus.CounterVec
}

var (
	governanceOnce sync.Once
	governanceReg  *GovernanceMetrics

	ledgerOnce sync.Once
	ledgerReg  *LedgerMetrics
)

// Governance returns the lazily-initialised governance metrics registry.
func Governance() *GovernanceMetrics {
	governanceOnce.Do(func() {
		governanceReg = &GovernanceMetrics{
			Submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mpv",
				Subsystem: "governance",
				Name:      "actions_submitted_total",
				Help:      "Administrative actions submitted for approval, segmented by role and kind.",
			}, []string{"role", "kind"}),
			Executed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mpv",
				Subsystem: "governance",
				Name:      "actions_executed_total",
				Help:      "Administrative actions that reached quorum and executed.",
			}, []string{"role", "kind"}),
			Failed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mpv",
				Subsystem: "governance",
				Name:      "actions_failed_total",
				Help:      "Administrative submissions rejected before or during execution.",
			}, []string{"role", "kind"}),
		}
		prometheus.MustRegister(
			governanceReg.Submitted,
			governanceReg.Executed,
			governanceReg.Failed,
		)
	})
	return governanceReg
}

// Ledger returns the lazily-initialised ledger metrics registry.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerReg = &LedgerMetrics{
			AssetTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mpv",
				Subsystem: "assets",
				Name:      "transitions_total",
				Help:      "Asset lifecycle transitions segmented by resulting status.",
			}, []string{"status"}),
			Transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mpv",
				Subsystem: "token",
				Name:      "transfers_total",
				Help:      "Token transfers segmented by outcome (moved, delayed, rejected).",
			}, []string{"outcome"}),
			DelayedTransfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mpv",
				Subsystem: "token",
				Name:      "delayed_transfers_total",
				Help:      "Delayed transfer lifecycle events (initiated, executed, cancelled).",
			}, []string{"event"}),
			Restrictions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mpv",
				Subsystem: "token",
				Name:      "restrictions_total",
				Help:      "Transfer restriction verdicts segmented by code.",
			}, []string{"code"}),
		}
		prometheus.MustRegister(
			ledgerReg.AssetTransitions,
			ledgerReg.Transfers,
			ledgerReg.DelayedTransfers,
			ledgerReg.Restrictions,
		)
	})
	return ledgerReg
}
