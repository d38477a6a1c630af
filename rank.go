// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gsmatch

import (
	"fmt"
	"sort"
)

// ValidateRanking reports whether ranking is a permutation of 0..n-1.
func ValidateRanking(ranking []int, n int) error {
	if len(ranking) != n {
		return fmt.Errorf("%w: length %d, want %d", ErrInvalidRanking, len(ranking), n)
	}
	seen := make([]bool, n)
	for _, v := range ranking {
		if v < 0 || v >= n {
			return fmt.Errorf("%w: element %d outside [0, %d)", ErrInvalidRanking, v, n)
		}
		if seen[v] {
			return fmt.Errorf("%w: duplicate element %d", ErrInvalidRanking, v)
		}
		seen[v] = true
	}
	return nil
}

// rankDescending orders indexes by descending key, ties by ascending index.
func rankDescending(keys []float64) []int {
	ranking := make([]int, len(keys))
	for i := range ranking {
		ranking[i] = i
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		ki, kj := keys[ranking[i]], keys[ranking[j]]
		return ki > kj ||
			ki == kj && ranking[i] < ranking[j]
	})
	return ranking
}

// positions inverts a ranking: positions(r)[x] is the place of x in r.
func positions(ranking []int) []int {
	pos := make([]int, len(ranking))
	for i, x := range ranking {
		pos[x] = i
	}
	return pos
}

func copyInts(s []int) []int {
	c := make([]int, len(s))
	copy(c, s)
	return c
}

// Inverse returns the matching indexed by agent and valued by resource.
func (m Matching) Inverse() []int {
	inv := make([]int, len(m))
	for i := range inv {
		inv[i] = Unmatched
	}
	for r, p := range m {
		if p >= 0 && p < len(inv) {
			inv[p] = r
		}
	}
	return inv
}

// IsBijection reports whether every resource holds a distinct agent.
func (m Matching) IsBijection() bool {
	seen := make([]bool, len(m))
	for _, p := range m {
		if p < 0 || p >= len(m) || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}

// BlockingPairs lists the agent-resource pairs that prefer each other over
// their partners in m under the given rankings. Unmatched participants
// prefer any partner.
func BlockingPairs(m Matching, agentRankings, resourceRankings [][]int) []Pair {
	partner := m.Inverse()

	var pairs []Pair
	for p, ranking := range agentRankings {
		for _, r := range ranking {
			if r == partner[p] {
				break
			}
			// p prefers r over its partner
			held := m[r]
			if held == Unmatched {
				pairs = append(pairs, Pair{Agent: p, Resource: r})
				continue
			}
			pos := positions(resourceRankings[r])
			if pos[p] < pos[held] {
				pairs = append(pairs, Pair{Agent: p, Resource: r})
			}
		}
	}
	return pairs
}

func IsStable(m Matching, agentRankings, resourceRankings [][]int) bool {
	return len(BlockingPairs(m, agentRankings, resourceRankings)) == 0
}
