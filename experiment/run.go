// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func (r *Runner) init() {
	if r.Horizon == nil {
		r.horizon = DefaultHorizon
	} else {
		r.horizon = *r.Horizon
	}

	if r.Trials == nil {
		r.trials = DefaultTrials
	} else {
		r.trials = *r.Trials
	}

	if r.Workers == nil {
		r.workers = DefaultWorkers
	} else {
		r.workers = *r.Workers
	}
	if r.workers <= 0 {
		r.workers = 1
	}

	if r.Logger == nil {
		r.log = zap.NewNop()
	} else {
		r.log = r.Logger
	}
}

// RunUCB plays every round on the agents' confidence bound rankings.
func (r *Runner) RunUCB(ctx context.Context, s Scenario) (*Curves, error) {
	return r.run(ctx, s, PolicyUCB, 0, func(ctx context.Context, tr *trial) ([][]float64, error) {
		return tr.playUCB(ctx, r.horizon)
	})
}

// RunETC explores every resource explore times per agent, then commits.
func (r *Runner) RunETC(ctx context.Context, s Scenario, explore int) (*Curves, error) {
	if explore < 0 {
		return nil, fmt.Errorf("invalid exploration length %d", explore)
	}
	return r.run(ctx, s, PolicyETC, explore, func(ctx context.Context, tr *trial) ([][]float64, error) {
		return tr.playETC(ctx, r.horizon, explore)
	})
}

// SweepGap runs UCB on RewardGap(delta) with the given reward noise for
// every delta and keeps the final regret of each agent.
func (r *Runner) SweepGap(ctx context.Context, deltas []float64, noise float64) ([]GapPoint, error) {
	points := make([]GapPoint, 0, len(deltas))
	for _, delta := range deltas {
		s := RewardGap(delta)
		s.Noise = noise
		curves, err := r.RunUCB(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("delta %g: %w", delta, err)
		}
		points = append(points, GapPoint{Delta: delta, Final: curves.Final()})
	}
	return points, nil
}

type playFunc func(ctx context.Context, tr *trial) ([][]float64, error)

func (r *Runner) run(ctx context.Context, s Scenario, policy string, explore int, play playFunc) (*Curves, error) {
	r.init()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	if r.horizon <= 0 || r.trials <= 0 {
		return nil, fmt.Errorf("horizon and trials must be positive, got %d and %d", r.horizon, r.trials)
	}

	runID := uuid.NewString()
	log := r.log.With(
		zap.String("run_id", runID),
		zap.String("scenario", s.Name),
		zap.String("policy", policy))
	log.Info("run started",
		zap.Int("agents", s.Size()), zap.Int("horizon", r.horizon),
		zap.Int("trials", r.trials), zap.Int("explore", explore))

	results := make([][][]float64, r.trials)
	optimals := make([][]int, r.trials)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := 0; i < r.trials; i++ {
		i := i
		g.Go(func() error {
			start := time.Now()

			tr, err := newTrial(&s, r.Seed+int64(i), log, r.Metrics.market())
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			regrets, err := play(ctx, tr)
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			cumulate(regrets)
			results[i], optimals[i] = regrets, tr.optimal

			r.Metrics.recordTrial(policy, time.Since(start))
			log.Debug("trial done", zap.Int("trial", i), zap.Duration("took", time.Since(start)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("run failed", zap.Error(err))
		return nil, err
	}

	curves := &Curves{
		RunID:    runID,
		Scenario: s.Name,
		Policy:   policy,
		Explore:  explore,
		Horizon:  r.horizon,
		Trials:   r.trials,
		Seed:     r.Seed,
		Optimal:  optimals[0],
		Regrets:  average(results),
	}
	final := curves.Final()
	r.Metrics.recordFinal(s.Name, policy, final)
	log.Info("run done", zap.Float64s("final_regret", final))

	return curves, nil
}

// average sums per-trial curves in trial order and divides by the trial
// count.
func average(results [][][]float64) [][]float64 {
	avg := newRegrets(len(results[0]), len(results[0][0]))
	for _, regrets := range results {
		for p, row := range regrets {
			for t, v := range row {
				avg[p][t] += v
			}
		}
	}
	k := float64(len(results))
	for _, row := range avg {
		for t := range row {
			row[t] /= k
		}
	}
	return avg
}

// Final returns every agent's cumulative regret at the horizon.
func (c *Curves) Final() []float64 {
	final := make([]float64, len(c.Regrets))
	for p, row := range c.Regrets {
		if len(row) > 0 {
			final[p] = row[len(row)-1]
		}
	}
	return final
}

// Sample returns every step-th value of agent p's curve, ending with the
// final value.
func (c *Curves) Sample(p, step int) []float64 {
	row := c.Regrets[p]
	if step <= 0 {
		step = 1
	}
	var out []float64
	for t := 0; t < len(row); t += step {
		out = append(out, row[t])
	}
	if len(row) > 0 && (len(row)-1)%step != 0 {
		out = append(out, row[len(row)-1])
	}
	return out
}
