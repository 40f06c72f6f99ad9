// Package metrics provides Prometheus metrics for behandling commands.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Labels carry no behandling or case ids.
var (
	// CommandTotal counts handled commands by command and outcome.
	CommandTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tilbakekreving_command_total",
		Help: "Total number of handled behandling commands, by command and outcome.",
	}, []string{"command", "outcome"})

	// CommandDuration observes command latency by command.
	CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tilbakekreving_command_duration_seconds",
		Help:    "Latency of behandling commands, by command.",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})

	// VersionConflictTotal counts optimistic lock failures by command.
	VersionConflictTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tilbakekreving_version_conflict_total",
		Help: "Total number of version conflicts on append, by command.",
	}, []string{"command"})

	// StaleClientVersionTotal counts commands carrying an outdated client version, by policy applied.
	StaleClientVersionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tilbakekreving_stale_client_version_total",
		Help: "Total number of commands with an outdated client version, by command and policy (warn/reject).",
	}, []string{"command", "policy"})

	// SettlementTotal counts settlement calls by result.
	SettlementTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tilbakekreving_settlement_total",
		Help: "Total number of settlement calls, by result.",
	}, []string{"result"})

	// CorruptedHistoryTotal counts event histories that could not be folded.
	CorruptedHistoryTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tilbakekreving_corrupted_history_total",
		Help: "Total number of event histories that could not be folded.",
	})

	// KravgrunnlagReceivedTotal counts claim snapshots appended to a case stream.
	KravgrunnlagReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tilbakekreving_kravgrunnlag_received_total",
		Help: "Total number of received claim snapshots, by status.",
	}, []string{"status"})
)

// RecordCommand records the outcome and latency of one command.
func RecordCommand(command, outcome string, elapsed time.Duration) {
	CommandTotal.WithLabelValues(command, outcome).Inc()
	CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

func RecordVersionConflict(command string) {
	VersionConflictTotal.WithLabelValues(command).Inc()
}

func RecordStaleClientVersion(command, policy string) {
	StaleClientVersionTotal.WithLabelValues(command, policy).Inc()
}

func RecordSettlement(result string) {
	SettlementTotal.WithLabelValues(result).Inc()
}

func RecordCorruptedHistory() {
	CorruptedHistoryTotal.Inc()
}

func RecordKravgrunnlagReceived(status string) {
	KravgrunnlagReceivedTotal.WithLabelValues(status).Inc()
}
