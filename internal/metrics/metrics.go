// Package metrics exposes Prometheus collectors for the vote subsystem.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "folkout"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	proposalsCreated prometheus.Counter
	ballotsCast      prometheus.Counter
	resolutions      *prometheus.CounterVec
	resolveFailures  prometheus.Counter
	membersRemoved   *prometheus.CounterVec
	schedulerPending prometheus.Gauge
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		proposalsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_created_total",
			Help:      "Vote proposals opened.",
		}),
		ballotsCast: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ballots_cast_total",
			Help:      "Ballots cast or replaced.",
		}),
		resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Resolved proposals by outcome.",
		}, []string{"outcome"}),
		resolveFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_failures_total",
			Help:      "Scheduled resolutions that failed after retries.",
		}),
		membersRemoved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "members_removed_total",
			Help:      "Members deleted by reason.",
		}, []string{"reason"}),
		schedulerPending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_pending",
			Help:      "Proposals waiting for their deadline in the scheduler.",
		}),
	}
}

func (m *Metrics) ProposalCreated() {
	if m != nil {
		m.proposalsCreated.Inc()
	}
}

func (m *Metrics) BallotCast() {
	if m != nil {
		m.ballotsCast.Inc()
	}
}

func (m *Metrics) Resolved(outcome string) {
	if m != nil {
		m.resolutions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ResolveFailed() {
	if m != nil {
		m.resolveFailures.Inc()
	}
}

// MemberRemoved counts a deleted member. reason is one of "expelled",
// "self" or "inactive".
func (m *Metrics) MemberRemoved(reason string) {
	if m != nil {
		m.membersRemoved.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) SetPending(n int) {
	if m != nil {
		m.schedulerPending.Set(float64(n))
	}
}
