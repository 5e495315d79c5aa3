package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics records invoice workflow activity. A zero value (or a
// value built with a nil registerer) is a no-op, so callers never need to
// nil-check before instrumenting.
type WorkflowMetrics struct {
	transitions  *prometheus.CounterVec
	ruleTriggers *prometheus.CounterVec
	conflicts    prometheus.Counter
}

// NewWorkflowMetrics registers the workflow metrics on the provided
// registerer.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invoice_transitions_total",
		Help: "Successful invoice status transitions by event.",
	}, []string{"event"})
	ruleTriggers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rule_triggers_total",
		Help: "Rule actions applied by action kind.",
	}, []string{"action"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invoice_transition_conflicts_total",
		Help: "Transitions lost to a concurrent writer.",
	})
	reg.MustRegister(transitions, ruleTriggers, conflicts)
	return &WorkflowMetrics{
		transitions:  transitions,
		ruleTriggers: ruleTriggers,
		conflicts:    conflicts,
	}
}

// IncTransition increments the transition counter for the named event.
func (m *WorkflowMetrics) IncTransition(event string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncRuleTrigger increments the applied-action counter.
func (m *WorkflowMetrics) IncRuleTrigger(action string) {
	if m == nil || m.ruleTriggers == nil {
		return
	}
	m.ruleTriggers.WithLabelValues(normalizeLabel(action)).Inc()
}

// IncConflict counts a transition lost to optimistic concurrency.
func (m *WorkflowMetrics) IncConflict() {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
