// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gsmatch

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/someonegg/gsmatch/internal/logging"
)

const (
	modeLearning = "learning"
	modeCommit   = "commit"
	modeOptimal  = "optimal"
)

// Market pairs agents with resources once per round and feeds the sampled
// rewards back to the agents.
type Market struct {
	numAgents    int
	numResources int
	round        int

	matcher Matcher
	log     *zap.Logger
	metrics *Metrics
}

type Option func(*Market)

func WithLogger(logger *zap.Logger) Option {
	return func(m *Market) {
		if logger != nil {
			m.log = logger
		}
	}
}

// WithMatcher replaces the default deferred acceptance matcher.
func WithMatcher(matcher Matcher) Option {
	return func(m *Market) {
		if matcher != nil {
			m.matcher = matcher
		}
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Market) {
		m.metrics = metrics
	}
}

// ResetHook runs after every agent has been reset.
type ResetHook func(agents []Agent) error

func NewMarket(numAgents, numResources int, opts ...Option) (*Market, error) {
	if numAgents != numResources {
		return nil, fmt.Errorf("%w: %d agents, %d resources", ErrSizeMismatch, numAgents, numResources)
	}

	m := &Market{
		numAgents:    numAgents,
		numResources: numResources,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.matcher == nil {
		m.matcher = GaleShapleyMatcher(m.log)
	}
	return m, nil
}

func (m *Market) Round() int {
	return m.round
}

// AdvanceRound enters a new round. Match calls it itself; drivers call it
// directly for rounds that bypass matching.
func (m *Market) AdvanceRound() {
	m.round++
	m.metrics.recordRound()
}

// Reset starts a new trial: the round goes back to 0, every agent forgets
// what it learned, then hooks run in order.
func (m *Market) Reset(agents []Agent, hooks ...ResetHook) error {
	if len(agents) != m.numAgents {
		return fmt.Errorf("%w: %d agents, want %d", ErrSizeMismatch, len(agents), m.numAgents)
	}

	m.round = 0
	for _, a := range agents {
		a.Reset()
	}
	for _, hook := range hooks {
		if err := hook(agents); err != nil {
			return fmt.Errorf("reset hook failed: %w", err)
		}
	}

	m.metrics.recordReset()
	m.log.Debug("market reset", zap.Int("agents", len(agents)), zap.Int("hooks", len(hooks)))
	return nil
}

func (m *Market) checkPopulation(agents []Agent, resources []Resource) error {
	if len(agents) != m.numAgents || len(resources) != m.numResources {
		return fmt.Errorf("%w: got %d agents and %d resources, want %d and %d",
			ErrSizeMismatch, len(agents), len(resources), m.numAgents, m.numResources)
	}
	return nil
}

// checkMatching rejects a matcher result that leaves a resource unmatched
// or gives an agent two resources.
func (m *Market) checkMatching(matching Matching) error {
	if len(matching) != m.numResources || !matching.IsBijection() {
		return fmt.Errorf("%w: %v", ErrNotBijection, []int(matching))
	}
	return nil
}

func resourceRankings(resources []Resource) [][]int {
	rankings := make([][]int, len(resources))
	for r, res := range resources {
		rankings[r] = res.Ranking()
	}
	return rankings
}

// Match runs one round. With optimistic set, agents submit confidence bound
// rankings and every matched pair is sampled, in resource order, and fed
// back to its agent. Otherwise agents submit empirical mean rankings and
// nothing is learned.
func (m *Market) Match(agents []Agent, resources []Resource, optimistic bool) (Matching, error) {
	if err := m.checkPopulation(agents, resources); err != nil {
		return nil, err
	}

	m.AdvanceRound()

	agentRankings := make([][]int, len(agents))
	for p, a := range agents {
		agentRankings[p] = a.Ranking(optimistic)
	}

	matching, phases, err := m.matcher.Match(agentRankings, resourceRankings(resources))
	if err == nil {
		err = m.checkMatching(matching)
	}
	if err != nil {
		return nil, fmt.Errorf("round %d: %w", m.round, err)
	}

	mode := modeCommit
	if optimistic {
		mode = modeLearning
	}
	m.metrics.recordMatch(mode, phases)
	if ce := m.log.Check(logging.TraceLevel, "matched"); ce != nil {
		ce.Write(zap.Int("round", m.round), zap.String("mode", mode),
			zap.Int("phases", phases), zap.Ints("matching", matching))
	}

	if !optimistic {
		return matching, nil
	}

	for r, p := range matching {
		reward, err := resources[r].Sample(p)
		if err != nil {
			return nil, fmt.Errorf("round %d: sample resource %d: %w", m.round, r, err)
		}
		if err := agents[p].Update(r, reward, m.round); err != nil {
			return nil, fmt.Errorf("round %d: update agent %d: %w", m.round, p, err)
		}
	}
	m.metrics.recordSamples(len(matching))

	return matching, nil
}

// OptimalMatching matches on true rankings. The round and the agents'
// learning state are left untouched.
func (m *Market) OptimalMatching(agents []Agent, resources []Resource) (Matching, error) {
	if err := m.checkPopulation(agents, resources); err != nil {
		return nil, err
	}

	agentRankings := make([][]int, len(agents))
	for p, a := range agents {
		agentRankings[p] = a.TrueRanking()
	}

	matching, phases, err := m.matcher.Match(agentRankings, resourceRankings(resources))
	if err == nil {
		err = m.checkMatching(matching)
	}
	if err != nil {
		return nil, err
	}
	m.metrics.recordMatch(modeOptimal, phases)
	return matching, nil
}
