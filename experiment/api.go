// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package experiment runs independent trials of a gsmatch market and
// accumulates the agents' regret curves.
package experiment

import "go.uber.org/zap"

// Scenario describes a market configuration.
type Scenario struct {
	Name string `json:"name" koanf:"name"`

	// AgentRankings[p] is agent p's true ranking over resources.
	AgentRankings [][]int `json:"agent_rankings" koanf:"agent_rankings"`
	// Oracles[p] makes agent p always submit its true ranking. May be empty.
	Oracles []bool `json:"oracles,omitempty" koanf:"oracles"`

	// Means[r][p] is the mean reward resource r offers agent p.
	Means            [][]float64 `json:"means" koanf:"means"`
	ResourceRankings [][]int     `json:"resource_rankings" koanf:"resource_rankings"`
	Noise            float64     `json:"noise" koanf:"noise"`

	// Overrides are applied after every reset.
	Overrides []BoundOverride `json:"overrides,omitempty" koanf:"overrides"`
}

// BoundOverride replaces an agent's confidence bounds.
type BoundOverride struct {
	Agent  int       `json:"agent" koanf:"agent"`
	Bounds []float64 `json:"bounds" koanf:"bounds"`
}

const (
	PolicyUCB = "ucb"
	PolicyETC = "etc"
)

const (
	DefaultHorizon = 1000
	DefaultTrials  = 10
	DefaultWorkers = 4
	DefaultNoise   = 1.0
)

type Runner struct {
	Horizon *int `json:"horizon"`
	Trials  *int `json:"trials"`
	Workers *int `json:"workers"`

	// Trial i draws its rewards from a source seeded Seed+i.
	Seed int64 `json:"seed"`

	Logger  *zap.Logger `json:"-"`
	Metrics *Metrics    `json:"-"`

	horizon int
	trials  int
	workers int
	log     *zap.Logger
}

// Curves holds regret averaged over trials.
type Curves struct {
	RunID    string `json:"run_id"`
	Scenario string `json:"scenario"`
	Policy   string `json:"policy"`
	Explore  int    `json:"explore,omitempty"`
	Horizon  int    `json:"horizon"`
	Trials   int    `json:"trials"`
	Seed     int64  `json:"seed"`

	// Optimal[p] is agent p's partner in the agent-optimal stable matching.
	Optimal []int `json:"optimal"`
	// Regrets[p][t] is agent p's cumulative regret after round t.
	Regrets [][]float64 `json:"regrets"`
}

type GapPoint struct {
	Delta float64   `json:"delta"`
	Final []float64 `json:"final"`
}
