package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the counters the tracking services update.
type Metrics struct {
	RecordsAssigned     prometheus.Counter
	PeriodsCreated      prometheus.Counter
	PeriodsClosed       *prometheus.CounterVec // by terminal status
	AssignmentConflicts prometheus.Counter
	GlobalLitres        prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RecordsAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trashinator",
			Name:      "records_assigned_total",
			Help:      "Waste records attached to a tracking period.",
		}),
		PeriodsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trashinator",
			Name:      "tracking_periods_created_total",
			Help:      "Tracking periods opened by assignment.",
		}),
		PeriodsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trashinator",
			Name:      "tracking_periods_closed_total",
			Help:      "Tracking periods closed by the sweep, by resulting status.",
		}, []string{"status"}),
		AssignmentConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trashinator",
			Name:      "assignment_conflicts_total",
			Help:      "Record assignments that hit a concurrency conflict.",
		}),
		GlobalLitres: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trashinator",
			Name:      "global_litres_per_person_per_week",
			Help:      "Latest global litres per person per week.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.RecordsAssigned, m.PeriodsCreated, m.PeriodsClosed, m.AssignmentConflicts, m.GlobalLitres)
	}
	return m
}

// orNoop substitutes unregistered collectors for a nil *Metrics.
func orNoop(m *Metrics) *Metrics {
	if m == nil {
		return NewMetrics(nil)
	}
	return m
}
