// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gsmatch

import (
	"fmt"
	"math/rand"
)

// GaussianResource offers each agent a stationary reward with normal noise,
// and holds a fixed preference order over agents.
type GaussianResource struct {
	means   []float64
	noise   float64
	ranking []int
	rng     *rand.Rand
}

// NewGaussianResource creates a resource for numAgents agents. rng may be
// shared with the other resources of a trial.
func NewGaussianResource(numAgents int, means []float64, noise float64, ranking []int, rng *rand.Rand) (*GaussianResource, error) {
	if len(means) != numAgents {
		return nil, fmt.Errorf("%w: %d means for %d agents", ErrSizeMismatch, len(means), numAgents)
	}
	if err := ValidateRanking(ranking, numAgents); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, ErrNilSource
	}

	r := &GaussianResource{
		means:   make([]float64, numAgents),
		noise:   noise,
		ranking: copyInts(ranking),
		rng:     rng,
	}
	copy(r.means, means)
	return r, nil
}

func (r *GaussianResource) Sample(agent int) (float64, error) {
	if agent < 0 || agent >= len(r.means) {
		return 0, fmt.Errorf("%w: agent %d", ErrIndexOutOfRange, agent)
	}
	if !(r.noise > 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidNoise, r.noise)
	}
	return r.rng.NormFloat64()*r.noise + r.means[agent], nil
}

func (r *GaussianResource) Ranking() []int {
	return copyInts(r.ranking)
}
