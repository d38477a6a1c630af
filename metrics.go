// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gsmatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for a market. A nil *Metrics records
// nothing.
//
// Metrics:
//   - gsmatch_rounds_total - rounds advanced, by Match or explicitly
//   - gsmatch_matches_total{mode} - matchings computed (learning, commit, optimal)
//   - gsmatch_proposal_phases - histogram of deferred acceptance phases per matching
//   - gsmatch_samples_total - rewards sampled and fed back to agents
//   - gsmatch_resets_total - market resets
type Metrics struct {
	RoundsTotal    prometheus.Counter
	MatchesTotal   *prometheus.CounterVec
	ProposalPhases prometheus.Histogram
	SamplesTotal   prometheus.Counter
	ResetsTotal    prometheus.Counter
}

// NewMetrics creates market metrics registered with reg. A nil reg leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RoundsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gsmatch",
			Name:      "rounds_total",
			Help:      "Total number of market rounds advanced",
		}),
		MatchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gsmatch",
			Name:      "matches_total",
			Help:      "Total number of matchings computed",
		}, []string{"mode"}),
		ProposalPhases: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gsmatch",
			Name:      "proposal_phases",
			Help:      "Deferred acceptance proposal phases per matching",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		SamplesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gsmatch",
			Name:      "samples_total",
			Help:      "Total number of rewards sampled from resources",
		}),
		ResetsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gsmatch",
			Name:      "resets_total",
			Help:      "Total number of market resets",
		}),
	}
}

func (m *Metrics) recordRound() {
	if m == nil {
		return
	}
	m.RoundsTotal.Inc()
}

func (m *Metrics) recordMatch(mode string, phases int) {
	if m == nil {
		return
	}
	m.MatchesTotal.WithLabelValues(mode).Inc()
	m.ProposalPhases.Observe(float64(phases))
}

func (m *Metrics) recordSamples(n int) {
	if m == nil {
		return
	}
	m.SamplesTotal.Add(float64(n))
}

func (m *Metrics) recordReset() {
	if m == nil {
		return
	}
	m.ResetsTotal.Inc()
}
