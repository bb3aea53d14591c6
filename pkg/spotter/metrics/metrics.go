// Package metrics exposes Prometheus counters for access decisions and domain outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	accessDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spotter",
		Name:      "access_decisions_total",
		Help:      "Access decisions grouped by operation and outcome.",
	}, []string{"operation", "outcome"})

	requestFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spotter",
		Name:      "request_failures_total",
		Help:      "Requests refused or failed, grouped by error kind.",
	}, []string{"kind"})

	participationChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spotter",
		Name:      "participation_changes_total",
		Help:      "Event join and leave attempts grouped by action and outcome.",
	}, []string{"action", "outcome"})

	workoutToggles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spotter",
		Name:      "workout_toggles_total",
		Help:      "Workout completion toggles grouped by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(accessDecisions, requestFailures, participationChanges, workoutToggles)
}

// OutcomeOK labels a successful attempt.
const OutcomeOK = "ok"

// RecordDecision counts an access decision. outcome is "allow" or the deny reason.
func RecordDecision(operation, outcome string) {
	accessDecisions.WithLabelValues(operation, outcome).Inc()
}

// RecordFailure counts a failed request by error kind.
func RecordFailure(kind string) {
	requestFailures.WithLabelValues(kind).Inc()
}

// RecordParticipation counts a join or leave attempt.
func RecordParticipation(action, outcome string) {
	participationChanges.WithLabelValues(action, outcome).Inc()
}

// RecordToggle counts a completion toggle attempt.
func RecordToggle(outcome string) {
	workoutToggles.WithLabelValues(outcome).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
