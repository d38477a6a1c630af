// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gsmatch

import (
	"fmt"
	"math"
)

// boundEpsilon keeps the exploration bonus finite right after the first pull.
const boundEpsilon = 1e-10

// LearningAgent ranks resources by an online UCB estimate of their rewards.
type LearningAgent struct {
	trueRanking []int

	counts []int
	means  []float64
	bounds []float64
}

func NewLearningAgent(numResources int, trueRanking []int) (*LearningAgent, error) {
	if err := ValidateRanking(trueRanking, numResources); err != nil {
		return nil, err
	}
	a := &LearningAgent{
		trueRanking: copyInts(trueRanking),
		counts:      make([]int, numResources),
		means:       make([]float64, numResources),
		bounds:      make([]float64, numResources),
	}
	a.Reset()
	return a, nil
}

func (a *LearningAgent) Reset() {
	for i := range a.counts {
		a.counts[i] = 0
		a.means[i] = 0.0
		a.bounds[i] = math.Inf(1)
	}
}

// Update feeds one reward observed from resource at the given market round.
// The exploration bonus is driven by the market round, not by the agent's
// own pull total.
func (a *LearningAgent) Update(resource int, reward float64, round int) error {
	if resource < 0 || resource >= len(a.counts) {
		return fmt.Errorf("%w: resource %d", ErrIndexOutOfRange, resource)
	}
	if round < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidRound, round)
	}

	a.counts[resource]++
	n := float64(a.counts[resource])
	a.means[resource] += (reward - a.means[resource]) / n
	a.bounds[resource] = a.means[resource] +
		math.Sqrt(3*math.Log(float64(round))/(2*(n+boundEpsilon)))
	return nil
}

func (a *LearningAgent) Ranking(optimistic bool) []int {
	if optimistic {
		return rankDescending(a.bounds)
	}
	return rankDescending(a.means)
}

func (a *LearningAgent) TrueRanking() []int {
	return copyInts(a.trueRanking)
}

// OverrideBounds replaces every confidence bound. A bound stays overridden
// until its resource is next updated.
func (a *LearningAgent) OverrideBounds(bounds []float64) error {
	if len(bounds) != len(a.bounds) {
		return fmt.Errorf("%w: %d bounds for %d resources", ErrSizeMismatch, len(bounds), len(a.bounds))
	}
	copy(a.bounds, bounds)
	return nil
}

func (a *LearningAgent) NumResources() int {
	return len(a.counts)
}

func (a *LearningAgent) PullCount(resource int) int {
	return a.counts[resource]
}

func (a *LearningAgent) EstimatedMean(resource int) float64 {
	return a.means[resource]
}

func (a *LearningAgent) ConfidenceBound(resource int) float64 {
	return a.bounds[resource]
}

// OracleAgent always submits its true ranking. Updates still run on the
// embedded estimator.
type OracleAgent struct {
	*LearningAgent
}

func NewOracleAgent(numResources int, trueRanking []int) (*OracleAgent, error) {
	a, err := NewLearningAgent(numResources, trueRanking)
	if err != nil {
		return nil, err
	}
	return &OracleAgent{a}, nil
}

func (a *OracleAgent) Ranking(optimistic bool) []int {
	return a.TrueRanking()
}
