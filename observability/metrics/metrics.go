// Package metrics exposes the processor's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsApplied counts dispatched transactions by outcome:
	// "ok", "invalid" or "internal".
	TransactionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loanledger_transactions_applied_total",
		Help: "Count of dispatched transactions by outcome.",
	}, []string{"outcome"})

	// CommandsExecuted counts executed commands by verb.
	CommandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loanledger_commands_executed_total",
		Help: "Count of successfully executed commands by verb.",
	}, []string{"verb"})

	// GatewayFallbacks counts verifications that fell through to the
	// external gateway.
	GatewayFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loanledger_gateway_fallbacks_total",
		Help: "Count of settlement verifications retried against the external gateway.",
	})

	// HousekeepingSweeps counts completed housekeeping passes.
	HousekeepingSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loanledger_housekeeping_sweeps_total",
		Help: "Count of completed housekeeping passes.",
	})
)
