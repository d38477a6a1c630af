// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gsmatch simulates a repeated two-sided matching market where
// learning agents are paired with stationary resources by deferred
// acceptance, and learn their own preferences from bandit feedback.
package gsmatch

import "errors"

var (
	ErrInvalidRanking  = errors.New("ranking is not a permutation")
	ErrSizeMismatch    = errors.New("population size mismatch")
	ErrInvalidNoise    = errors.New("noise scale must be positive")
	ErrInvalidRound    = errors.New("round must be at least 1")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrExhausted       = errors.New("agent exhausted its ranking")
	ErrNotBijection    = errors.New("matching is not a bijection")
	ErrNilSource       = errors.New("nil random source")
)

// Unmatched marks a resource that holds no agent.
const Unmatched = -1

// Matcher computes a matching from both sides' submitted rankings.
// agentRankings[p] orders resources, resourceRankings[r] orders agents,
// most preferred first.
type Matcher interface {
	Match(agentRankings, resourceRankings [][]int) (matching Matching, phases int, err error)
}

type Agent interface {
	// Ranking returns the working ranking. optimistic selects the confidence
	// bound ordering, otherwise the empirical mean ordering is used.
	Ranking(optimistic bool) []int
	TrueRanking() []int

	Reset()
	Update(resource int, reward float64, round int) error
}

type Resource interface {
	Sample(agent int) (float64, error)
	Ranking() []int
}

// Matching is indexed by resource and valued by agent.
type Matching []int

type Pair struct {
	Agent    int
	Resource int
}
