// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package experiment

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/someonegg/gsmatch"
)

// Metrics holds the runner's collectors and the markets' collectors. A nil
// *Metrics records nothing.
type Metrics struct {
	Market *gsmatch.Metrics

	TrialsTotal   *prometheus.CounterVec
	TrialDuration *prometheus.HistogramVec
	FinalRegret   *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Market: gsmatch.NewMetrics(reg),

		TrialsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gsmatch",
			Subsystem: "experiment",
			Name:      "trials_total",
			Help:      "Total number of trials completed",
		}, []string{"policy"}),
		TrialDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gsmatch",
			Subsystem: "experiment",
			Name:      "trial_duration_seconds",
			Help:      "Duration of a trial in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"policy"}),
		FinalRegret: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gsmatch",
			Subsystem: "experiment",
			Name:      "final_regret",
			Help:      "Cumulative regret at the horizon, averaged over trials",
		}, []string{"scenario", "policy", "agent"}),
	}
}

func (m *Metrics) market() *gsmatch.Metrics {
	if m == nil {
		return nil
	}
	return m.Market
}

func (m *Metrics) recordTrial(policy string, d time.Duration) {
	if m == nil {
		return
	}
	m.TrialsTotal.WithLabelValues(policy).Inc()
	m.TrialDuration.WithLabelValues(policy).Observe(d.Seconds())
}

func (m *Metrics) recordFinal(scenario, policy string, final []float64) {
	if m == nil {
		return
	}
	for p, v := range final {
		m.FinalRegret.WithLabelValues(scenario, policy, strconv.Itoa(p)).Set(v)
	}
}
