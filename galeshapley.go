// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gsmatch

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"
)

type galeShapley struct {
	log *zap.Logger

	// shuffle, when set, permutes agent and resource iteration inside
	// every phase.
	shuffle *rand.Rand
}

// GaleShapleyMatcher returns the agent-proposing deferred acceptance matcher.
// logger can be nil.
func GaleShapleyMatcher(logger *zap.Logger) Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return galeShapley{log: logger}
}

func validateProfile(agentRankings, resourceRankings [][]int) error {
	n := len(agentRankings)
	if len(resourceRankings) != n {
		return fmt.Errorf("%w: %d agents, %d resources", ErrSizeMismatch, n, len(resourceRankings))
	}
	for p, ranking := range agentRankings {
		if err := ValidateRanking(ranking, n); err != nil {
			return fmt.Errorf("agent %d: %w", p, err)
		}
	}
	for r, ranking := range resourceRankings {
		if err := ValidateRanking(ranking, n); err != nil {
			return fmt.Errorf("resource %d: %w", r, err)
		}
	}
	return nil
}

func (m galeShapley) order(n int) []int {
	if m.shuffle != nil {
		return m.shuffle.Perm(n)
	}
	o := make([]int, n)
	for i := range o {
		o[i] = i
	}
	return o
}

func (m galeShapley) Match(agentRankings, resourceRankings [][]int) (matching Matching, phases int, err error) {
	if err = validateProfile(agentRankings, resourceRankings); err != nil {
		return nil, 0, err
	}

	n := len(agentRankings)

	pos := make([][]int, n)
	for r, ranking := range resourceRankings {
		pos[r] = positions(ranking)
	}

	next := make([]int, n) // proposal pointer per agent
	matching = make(Matching, n)
	for r := range matching {
		matching[r] = Unmatched
	}
	proposals := make([][]int, n)

	free := m.order(n)
	for len(free) > 0 {
		phases++

		for _, p := range free {
			if next[p] >= n {
				return nil, phases, fmt.Errorf("%w: agent %d", ErrExhausted, p)
			}
			r := agentRankings[p][next[p]]
			proposals[r] = append(proposals[r], p)
		}

		var rejected []int
		for _, r := range m.order(n) {
			proposers := proposals[r]
			if len(proposers) == 0 {
				continue
			}

			held := matching[r]
			best := held
			for _, p := range proposers {
				if best == Unmatched || pos[r][p] < pos[r][best] {
					best = p
				}
			}
			if held != Unmatched && held != best {
				rejected = append(rejected, held)
				next[held]++
			}
			for _, p := range proposers {
				if p != best {
					rejected = append(rejected, p)
					next[p]++
				}
			}
			matching[r] = best
			proposals[r] = proposers[:0]
		}

		if m.shuffle != nil {
			m.shuffle.Shuffle(len(rejected), func(i, j int) {
				rejected[i], rejected[j] = rejected[j], rejected[i]
			})
		}
		free = rejected
	}

	m.log.Debug("deferred acceptance done",
		zap.Int("agents", n), zap.Int("phases", phases))

	return matching, phases, nil
}
