// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gsmatch

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/someonegg/gsmatch/internal/logging"
)

type marketFixture struct {
	market    *Market
	learners  []*LearningAgent
	agents    []Agent
	resources []Resource
}

// makeMarket builds a market where resource r offers agent p the mean
// means[r][p].
func makeMarket(t *testing.T, agentRankings [][]int, means [][]float64, resourceRankings [][]int, opts ...Option) *marketFixture {
	t.Helper()
	n := len(agentRankings)
	rng := rand.New(rand.NewSource(1))

	f := &marketFixture{}
	for _, ranking := range agentRankings {
		a, err := NewLearningAgent(n, ranking)
		require.NoError(t, err)
		f.learners = append(f.learners, a)
		f.agents = append(f.agents, a)
	}
	for r, ranking := range resourceRankings {
		res, err := NewGaussianResource(n, means[r], 1.0, ranking, rng)
		require.NoError(t, err)
		f.resources = append(f.resources, res)
	}
	m, err := NewMarket(n, n, opts...)
	require.NoError(t, err)
	f.market = m
	return f
}

func cyclicFixture(t *testing.T, opts ...Option) *marketFixture {
	return makeMarket(t,
		[][]int{{0, 1, 2}, {1, 0, 2}, {2, 0, 1}},
		[][]float64{{2, 1, 1.95}, {1, 2, 0}, {0, 0, 2}},
		[][]int{{1, 2, 0}, {0, 1, 2}, {2, 0, 1}},
		opts...)
}

func totalPulls(a *LearningAgent) int {
	total := 0
	for r := 0; r < a.NumResources(); r++ {
		total += a.PullCount(r)
	}
	return total
}

// 1. construction
func TestNewMarket(t *testing.T) {
	_, err := NewMarket(3, 2)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	m, err := NewMarket(2, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Round())
}

// 2. optimal matching
func TestMarket_OptimalMatching(t *testing.T) {
	t.Run("MutualTopChoice", func(t *testing.T) {
		f := makeMarket(t,
			[][]int{{0, 1}, {1, 0}},
			[][]float64{{1, 0}, {0, 1}},
			[][]int{{0, 1}, {1, 0}})

		m, err := f.market.OptimalMatching(f.agents, f.resources)
		require.NoError(t, err)
		assert.Equal(t, Matching{0, 1}, m)
	})

	t.Run("NoSideEffects", func(t *testing.T) {
		f := cyclicFixture(t)
		require.NoError(t, f.learners[0].Update(2, 1.0, 1))

		m, err := f.market.OptimalMatching(f.agents, f.resources)
		require.NoError(t, err)
		assert.Equal(t, Matching{0, 1, 2}, m)
		assert.Equal(t, 0, f.market.Round())
		assert.Equal(t, 1, totalPulls(f.learners[0]))
		assert.Equal(t, 0, totalPulls(f.learners[1]))
	})
}

// 3. learning rounds
func TestMarket_MatchLearning(t *testing.T) {
	t.Run("FirstRoundProposesByIndex", func(t *testing.T) {
		f := cyclicFixture(t)

		// every bound is +Inf: agents rank 0, 1, 2 and resource 0 picks its
		// favourite among all three
		m, err := f.market.Match(f.agents, f.resources, true)
		require.NoError(t, err)
		assert.Equal(t, 1, f.market.Round())
		assert.True(t, m.IsBijection())
		assert.True(t, IsStable(m, [][]int{{0, 1, 2}, {0, 1, 2}, {0, 1, 2}},
			[][]int{{1, 2, 0}, {0, 1, 2}, {2, 0, 1}}))
		assert.Equal(t, Matching{1, 0, 2}, m)
	})

	t.Run("OneUpdatePerAgentPerRound", func(t *testing.T) {
		f := cyclicFixture(t)
		for round := 1; round <= 50; round++ {
			m, err := f.market.Match(f.agents, f.resources, true)
			require.NoError(t, err)
			require.True(t, m.IsBijection())
			for p, r := range m.Inverse() {
				assert.True(t, f.learners[p].PullCount(r) >= 1)
			}
			for _, a := range f.learners {
				assert.Equal(t, round, totalPulls(a))
			}
		}
		assert.Equal(t, 50, f.market.Round())
	})

	t.Run("EveryResourceTriedOnce", func(t *testing.T) {
		f := cyclicFixture(t)
		for i := 0; i < 3; i++ {
			_, err := f.market.Match(f.agents, f.resources, true)
			require.NoError(t, err)
		}
		for _, a := range f.learners {
			for r := 0; r < 3; r++ {
				assert.Equal(t, 1, a.PullCount(r))
				assert.False(t, math.IsInf(a.ConfidenceBound(r), 1))
			}
		}
	})

	t.Run("ReproducibleWithSeed", func(t *testing.T) {
		run := func() []Matching {
			f := cyclicFixture(t)
			var out []Matching
			for i := 0; i < 30; i++ {
				m, err := f.market.Match(f.agents, f.resources, true)
				require.NoError(t, err)
				out = append(out, m)
			}
			return out
		}
		assert.Equal(t, run(), run())
	})

	t.Run("OracleStillLearns", func(t *testing.T) {
		f := cyclicFixture(t)
		oracle, err := NewOracleAgent(3, []int{0, 1, 2})
		require.NoError(t, err)
		f.agents[0] = oracle

		m, err := f.market.Match(f.agents, f.resources, true)
		require.NoError(t, err)
		assert.Equal(t, 1, totalPulls(oracle.LearningAgent))
		assert.Equal(t, []int{0, 1, 2}, oracle.Ranking(true))
		assert.True(t, m.IsBijection())
	})
}

// 4. commit rounds
func TestMarket_MatchCommit(t *testing.T) {
	f := cyclicFixture(t)
	require.NoError(t, f.learners[2].Update(2, 5, 1))
	require.NoError(t, f.learners[2].Update(0, 1, 1))

	m, err := f.market.Match(f.agents, f.resources, false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.market.Round())
	assert.True(t, m.IsBijection())

	// no sampling in commit mode
	assert.Equal(t, 0, totalPulls(f.learners[0]))
	assert.Equal(t, 2, totalPulls(f.learners[2]))
	assert.Equal(t, 2, m.Inverse()[2])
}

// 5. rounds and resets
func TestMarket_Reset(t *testing.T) {
	t.Run("ClearsRoundAndAgents", func(t *testing.T) {
		f := cyclicFixture(t)
		for i := 0; i < 5; i++ {
			_, err := f.market.Match(f.agents, f.resources, true)
			require.NoError(t, err)
		}
		f.market.AdvanceRound()
		assert.Equal(t, 6, f.market.Round())

		require.NoError(t, f.market.Reset(f.agents))
		assert.Equal(t, 0, f.market.Round())
		for _, a := range f.learners {
			assert.Equal(t, 0, totalPulls(a))
		}
	})

	t.Run("HooksRunAfterReset", func(t *testing.T) {
		f := cyclicFixture(t)
		var order []string
		first := func(agents []Agent) error {
			order = append(order, "first")
			assert.Equal(t, 0, totalPulls(agents[2].(*LearningAgent)))
			return agents[2].(*LearningAgent).OverrideBounds([]float64{2.3, 0, 0})
		}
		second := func(agents []Agent) error {
			order = append(order, "second")
			return nil
		}

		require.NoError(t, f.market.Reset(f.agents, first, second))
		assert.Equal(t, []string{"first", "second"}, order)
		assert.Equal(t, 2.3, f.learners[2].ConfidenceBound(0))
		assert.Equal(t, []int{0, 1, 2}, f.learners[2].Ranking(true))
	})

	t.Run("HookError", func(t *testing.T) {
		f := cyclicFixture(t)
		boom := errors.New("boom")
		err := f.market.Reset(f.agents, func([]Agent) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("WrongPopulation", func(t *testing.T) {
		f := cyclicFixture(t)
		assert.ErrorIs(t, f.market.Reset(f.agents[:2]), ErrSizeMismatch)
	})
}

type brokenAgent struct {
	*LearningAgent
}

func (brokenAgent) Ranking(bool) []int {
	return []int{0, 0, 1}
}

// fixedMatcher ignores the rankings and returns the same matching every call.
type fixedMatcher Matching

func (f fixedMatcher) Match(agentRankings, resourceRankings [][]int) (Matching, int, error) {
	return append(Matching(nil), f...), 1, nil
}

// 6. configuration errors
func TestMarket_Errors(t *testing.T) {
	t.Run("PopulationMismatch", func(t *testing.T) {
		f := cyclicFixture(t)
		_, err := f.market.Match(f.agents[:2], f.resources, true)
		assert.ErrorIs(t, err, ErrSizeMismatch)
		assert.Equal(t, 0, f.market.Round())

		_, err = f.market.OptimalMatching(f.agents, f.resources[:1])
		assert.ErrorIs(t, err, ErrSizeMismatch)
	})

	t.Run("MalformedRanking", func(t *testing.T) {
		f := cyclicFixture(t)
		f.agents[1] = brokenAgent{f.learners[1]}
		_, err := f.market.Match(f.agents, f.resources, true)
		assert.ErrorIs(t, err, ErrInvalidRanking)
		for _, a := range f.learners {
			assert.Equal(t, 0, totalPulls(a))
		}
	})

	t.Run("NotBijection", func(t *testing.T) {
		for name, matching := range map[string]Matching{
			"Unmatched":  {0, Unmatched, 2},
			"Duplicate":  {0, 0, 2},
			"Short":      {0, 1},
			"OutOfRange": {0, 1, 5},
		} {
			t.Run(name, func(t *testing.T) {
				f := cyclicFixture(t, WithMatcher(fixedMatcher(matching)))

				_, err := f.market.Match(f.agents, f.resources, true)
				assert.ErrorIs(t, err, ErrNotBijection)
				for _, a := range f.learners {
					assert.Equal(t, 0, totalPulls(a))
				}

				_, err = f.market.Match(f.agents, f.resources, false)
				assert.ErrorIs(t, err, ErrNotBijection)

				_, err = f.market.OptimalMatching(f.agents, f.resources)
				assert.ErrorIs(t, err, ErrNotBijection)
			})
		}
	})

	t.Run("CustomMatcher", func(t *testing.T) {
		f := cyclicFixture(t, WithMatcher(fixedMatcher{2, 0, 1}))
		m, err := f.market.Match(f.agents, f.resources, true)
		require.NoError(t, err)
		assert.Equal(t, Matching{2, 0, 1}, m)
		assert.Equal(t, 1, f.learners[2].PullCount(0))
		assert.Equal(t, 1, f.learners[0].PullCount(1))
		assert.Equal(t, 1, f.learners[1].PullCount(2))
	})

	t.Run("BadNoise", func(t *testing.T) {
		f := cyclicFixture(t)
		bad, err := NewGaussianResource(3, []float64{0, 0, 0}, 0, []int{0, 1, 2}, rand.New(rand.NewSource(1)))
		require.NoError(t, err)
		f.resources[1] = bad

		_, err = f.market.Match(f.agents, f.resources, true)
		assert.ErrorIs(t, err, ErrInvalidNoise)

		_, err = f.market.Match(f.agents, f.resources, false)
		assert.NoError(t, err)
	})
}

// 7. metrics
func TestMarket_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	f := cyclicFixture(t, WithMetrics(metrics))

	for i := 0; i < 4; i++ {
		_, err := f.market.Match(f.agents, f.resources, true)
		require.NoError(t, err)
	}
	_, err := f.market.Match(f.agents, f.resources, false)
	require.NoError(t, err)
	_, err = f.market.OptimalMatching(f.agents, f.resources)
	require.NoError(t, err)
	f.market.AdvanceRound()
	require.NoError(t, f.market.Reset(f.agents))

	assert.Equal(t, 6.0, testutil.ToFloat64(metrics.RoundsTotal))
	assert.Equal(t, 12.0, testutil.ToFloat64(metrics.SamplesTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.MatchesTotal.WithLabelValues(modeLearning)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MatchesTotal.WithLabelValues(modeCommit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MatchesTotal.WithLabelValues(modeOptimal)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ResetsTotal))

	count, err := testutil.GatherAndCount(reg, "gsmatch_proposal_phases")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.recordRound()
	m.recordMatch(modeLearning, 3)
	m.recordSamples(2)
	m.recordReset()
}

func TestMarket_TraceLog(t *testing.T) {
	logger := logging.NewTestLogger()
	f := cyclicFixture(t, WithLogger(logger.Underlying()))

	_, err := f.market.Match(f.agents, f.resources, true)
	require.NoError(t, err)
	_, err = f.market.Match(f.agents, f.resources, false)
	require.NoError(t, err)

	entries := logger.FilterMessage("matched").All()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, logging.TraceLevel, e.Level)
	}
	logger.AssertField(t, "matched", "round", int64(2))
	logger.AssertField(t, "matched", "mode", modeCommit)

	// per-round entries are below debug
	core, observed := observer.New(zapcore.DebugLevel)
	f = cyclicFixture(t, WithLogger(zap.New(core)))
	_, err = f.market.Match(f.agents, f.resources, true)
	require.NoError(t, err)
	assert.Zero(t, observed.FilterMessage("matched").Len())
	assert.Equal(t, 1, observed.FilterMessage("deferred acceptance done").Len())
}
