// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package experiment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/someonegg/gsmatch"
)

var ErrUnknownPreset = errors.New("unknown scenario preset")

func (s *Scenario) Size() int {
	return len(s.AgentRankings)
}

// Validate checks the scenario's shape. Rankings are checked when the
// market is built.
func (s *Scenario) Validate() error {
	n := s.Size()
	if n == 0 {
		return fmt.Errorf("scenario %q: %w: no agents", s.Name, gsmatch.ErrSizeMismatch)
	}
	if len(s.ResourceRankings) != n || len(s.Means) != n {
		return fmt.Errorf("scenario %q: %w: %d agents, %d resource rankings, %d mean rows",
			s.Name, gsmatch.ErrSizeMismatch, n, len(s.ResourceRankings), len(s.Means))
	}
	if len(s.Oracles) != 0 && len(s.Oracles) != n {
		return fmt.Errorf("scenario %q: %w: %d oracle flags for %d agents",
			s.Name, gsmatch.ErrSizeMismatch, len(s.Oracles), n)
	}
	for _, o := range s.Overrides {
		if o.Agent < 0 || o.Agent >= n {
			return fmt.Errorf("scenario %q: override: %w: agent %d", s.Name, gsmatch.ErrIndexOutOfRange, o.Agent)
		}
		if len(o.Bounds) != n {
			return fmt.Errorf("scenario %q: override: %w: %d bounds", s.Name, gsmatch.ErrSizeMismatch, len(o.Bounds))
		}
	}
	return nil
}

func (s *Scenario) oracle(p int) bool {
	return len(s.Oracles) != 0 && s.Oracles[p]
}

type boundOverrider interface {
	OverrideBounds(bounds []float64) error
}

func (s *Scenario) resetHooks() []gsmatch.ResetHook {
	var hooks []gsmatch.ResetHook
	for _, o := range s.Overrides {
		o := o
		hooks = append(hooks, func(agents []gsmatch.Agent) error {
			a, ok := agents[o.Agent].(boundOverrider)
			if !ok {
				return fmt.Errorf("agent %d has no confidence bounds", o.Agent)
			}
			return a.OverrideBounds(o.Bounds)
		})
	}
	return hooks
}

// regret is what agent p loses on resource r against its optimal partner.
func (s *Scenario) regret(optimal []int, p, r int) float64 {
	return s.Means[optimal[p]][p] - s.Means[r][p]
}

func identityRanking(n int) []int {
	ranking := make([]int, n)
	for i := range ranking {
		ranking[i] = i
	}
	return ranking
}

func linspace(start, stop float64, n int) []float64 {
	if n == 1 {
		return []float64{start}
	}
	v := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range v {
		v[i] = start + step*float64(i)
	}
	return v
}

// MutualTopChoice is a 2x2 market where every participant's first choice
// is reciprocated.
func MutualTopChoice() Scenario {
	return Scenario{
		Name:             "mutual-top",
		AgentRankings:    [][]int{{0, 1}, {1, 0}},
		Means:            [][]float64{{1, 0}, {0, 1}},
		ResourceRankings: [][]int{{0, 1}, {1, 0}},
		Noise:            DefaultNoise,
	}
}

// Cyclic is a 3x3 market with cyclic resource preferences.
func Cyclic() Scenario {
	return Scenario{
		Name:             "cyclic",
		AgentRankings:    [][]int{{0, 1, 2}, {1, 0, 2}, {2, 0, 1}},
		Means:            [][]float64{{2, 1, 1.95}, {1, 2, 0}, {0, 0, 2}},
		ResourceRankings: [][]int{{1, 2, 0}, {0, 1, 2}, {2, 0, 1}},
		Noise:            DefaultNoise,
	}
}

// CyclicWithOracles is Cyclic with the first two agents fully informed and
// the last agent starting every trial with bounds [2.3, 0, 0].
func CyclicWithOracles() Scenario {
	s := Cyclic()
	s.Name = "cyclic-oracle"
	s.Oracles = []bool{true, true, false}
	s.Overrides = []BoundOverride{{Agent: 2, Bounds: []float64{2.3, 0, 0}}}
	return s
}

// RewardGap is a 2x2 market where resource 0 offers agent 0 a mean of
// delta.
func RewardGap(delta float64) Scenario {
	return Scenario{
		Name:             fmt.Sprintf("reward-gap-%g", delta),
		AgentRankings:    [][]int{{0, 1}, {1, 0}},
		Means:            [][]float64{{delta, 0}, {0, 1}},
		ResourceRankings: [][]int{{0, 1}, {0, 1}},
		Noise:            DefaultNoise,
	}
}

// Linear is an n x n market where every agent offers the same means,
// evenly spaced from 0.9 down to 0, and every ranking is the identity.
func Linear(n int) Scenario {
	levels := linspace(0.9, 0, n)
	s := Scenario{
		Name:             fmt.Sprintf("linear-%d", n),
		AgentRankings:    make([][]int, n),
		Means:            make([][]float64, n),
		ResourceRankings: make([][]int, n),
		Noise:            DefaultNoise,
	}
	for i := 0; i < n; i++ {
		s.AgentRankings[i] = identityRanking(n)
		s.ResourceRankings[i] = identityRanking(n)
		s.Means[i] = make([]float64, n)
		for p := range s.Means[i] {
			s.Means[i][p] = levels[i]
		}
	}
	return s
}

// PresetParams carries the knobs of the parameterised presets.
type PresetParams struct {
	Size  int
	Delta float64
}

var presets = map[string]func(PresetParams) Scenario{
	"mutual-top":    func(PresetParams) Scenario { return MutualTopChoice() },
	"cyclic":        func(PresetParams) Scenario { return Cyclic() },
	"cyclic-oracle": func(PresetParams) Scenario { return CyclicWithOracles() },
	"reward-gap":    func(p PresetParams) Scenario { return RewardGap(p.Delta) },
	"linear":        func(p PresetParams) Scenario { return Linear(p.Size) },
}

func Preset(name string, params PresetParams) (Scenario, error) {
	f, ok := presets[name]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	if name == "linear" && params.Size <= 0 {
		return Scenario{}, fmt.Errorf("preset %q needs a positive size", name)
	}
	return f(params), nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
