// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package experiment

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/someonegg/gsmatch"
)

// trial owns one independent copy of a scenario's market.
type trial struct {
	scenario  *Scenario
	market    *gsmatch.Market
	agents    []gsmatch.Agent
	learners  []*gsmatch.LearningAgent
	resources []gsmatch.Resource

	// optimal[p] is agent p's partner under true rankings.
	optimal []int
}

func newTrial(s *Scenario, seed int64, logger *zap.Logger, metrics *gsmatch.Metrics) (*trial, error) {
	n := s.Size()
	rng := rand.New(rand.NewSource(seed))

	tr := &trial{
		scenario:  s,
		agents:    make([]gsmatch.Agent, n),
		learners:  make([]*gsmatch.LearningAgent, n),
		resources: make([]gsmatch.Resource, n),
	}

	for p, ranking := range s.AgentRankings {
		if s.oracle(p) {
			a, err := gsmatch.NewOracleAgent(n, ranking)
			if err != nil {
				return nil, fmt.Errorf("agent %d: %w", p, err)
			}
			tr.agents[p], tr.learners[p] = a, a.LearningAgent
			continue
		}
		a, err := gsmatch.NewLearningAgent(n, ranking)
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", p, err)
		}
		tr.agents[p], tr.learners[p] = a, a
	}

	for r, ranking := range s.ResourceRankings {
		res, err := gsmatch.NewGaussianResource(n, s.Means[r], s.Noise, ranking, rng)
		if err != nil {
			return nil, fmt.Errorf("resource %d: %w", r, err)
		}
		tr.resources[r] = res
	}

	market, err := gsmatch.NewMarket(n, n, gsmatch.WithLogger(logger), gsmatch.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}
	tr.market = market

	if err := market.Reset(tr.agents, s.resetHooks()...); err != nil {
		return nil, err
	}

	optimal, err := market.OptimalMatching(tr.agents, tr.resources)
	if err != nil {
		return nil, fmt.Errorf("optimal matching: %w", err)
	}
	tr.optimal = optimal.Inverse()

	return tr, nil
}

func newRegrets(n, horizon int) [][]float64 {
	regrets := make([][]float64, n)
	for p := range regrets {
		regrets[p] = make([]float64, horizon)
	}
	return regrets
}

func (tr *trial) record(regrets [][]float64, t int, matching gsmatch.Matching) {
	for r, p := range matching {
		regrets[p][t] = tr.scenario.regret(tr.optimal, p, r)
	}
}

// playUCB matches on confidence bounds every round.
func (tr *trial) playUCB(ctx context.Context, horizon int) ([][]float64, error) {
	regrets := newRegrets(len(tr.agents), horizon)
	for t := 0; t < horizon; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matching, err := tr.market.Match(tr.agents, tr.resources, true)
		if err != nil {
			return nil, err
		}
		tr.record(regrets, t, matching)
	}
	return regrets, nil
}

// playETC explores round-robin for explore*K rounds, each agent pull
// advancing the market round, then commits to one matching on empirical
// means for the rest of the horizon.
func (tr *trial) playETC(ctx context.Context, horizon, explore int) ([][]float64, error) {
	n := len(tr.agents)
	regrets := newRegrets(n, horizon)
	exploreRounds := explore * n

	var committed gsmatch.Matching
	for t := 0; t < horizon; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if t < exploreRounds {
			for p, a := range tr.agents {
				r := (t + p) % n
				reward, err := tr.resources[r].Sample(p)
				if err != nil {
					return nil, fmt.Errorf("explore: %w", err)
				}
				tr.market.AdvanceRound()
				if err := a.Update(r, reward, tr.market.Round()); err != nil {
					return nil, fmt.Errorf("explore: %w", err)
				}
				regrets[p][t] = tr.scenario.regret(tr.optimal, p, r)
			}
			continue
		}

		if committed == nil {
			m, err := tr.market.Match(tr.agents, tr.resources, false)
			if err != nil {
				return nil, fmt.Errorf("commit: %w", err)
			}
			committed = m
		}
		tr.record(regrets, t, committed)
	}
	return regrets, nil
}

func cumulate(regrets [][]float64) {
	for _, row := range regrets {
		for t := 1; t < len(row); t++ {
			row[t] += row[t-1]
		}
	}
}
