package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// contactsCreated counts contacts committed by ContactService.Create.
	contactsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crm_contacts_created_total",
		Help: "Total number of contacts created.",
	})

	// stageTransitions counts committed stage changes. Both labels are
	// bounded by the seven pipeline stages.
	stageTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_stage_transitions_total",
			Help: "Total number of pipeline stage transitions.",
		},
		[]string{"from", "to"},
	)

	// auditFailures counts audit events lost after a committed mutation.
	auditFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_audit_failures_total",
			Help: "Total number of audit events that could not be written.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(contactsCreated, stageTransitions, auditFailures)
}
