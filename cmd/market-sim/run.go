// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/someonegg/gsmatch/experiment"
	"github.com/someonegg/gsmatch/internal/config"
	"github.com/someonegg/gsmatch/internal/logging"
)

// loadConfig loads the config file and environment, then applies the
// flags that were set.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	e := &cfg.Experiment
	if ctx.IsSet("scenario") {
		e.Scenario = ctx.String("scenario")
		e.Custom = nil
	}
	if ctx.IsSet("size") {
		e.Size = ctx.Int("size")
	}
	if ctx.IsSet("horizon") {
		e.Horizon = ctx.Int("horizon")
	}
	if ctx.IsSet("trials") {
		e.Trials = ctx.Int("trials")
	}
	if ctx.IsSet("workers") {
		e.Workers = ctx.Int("workers")
	}
	if ctx.IsSet("noise") {
		e.Noise = ctx.Float64("noise")
	}
	if ctx.IsSet("seed") {
		e.Seed = ctx.Int64("seed")
	}
	if ctx.IsSet("out") {
		cfg.Output.Path = ctx.String("out")
	}
	if ctx.IsSet("metrics") {
		cfg.Output.Metrics = ctx.String("metrics")
	}
	if ctx.Bool("no-chart") {
		cfg.Output.Chart = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type session struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *prometheus.Registry
	runner   *experiment.Runner
}

func newSession(cfg *config.Config) (*session, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger failed: %w", err)
	}

	registry := prometheus.NewRegistry()
	runner := cfg.Experiment.Runner()
	runner.Logger = logger
	runner.Metrics = experiment.NewMetrics(registry)

	return &session{
		cfg:      cfg,
		log:      logger,
		registry: registry,
		runner:   runner,
	}, nil
}

func (s *session) close() {
	_ = logging.Sync(s.log)
}

// finish writes the results and the metrics textfile.
func (s *session) finish(v interface{}) error {
	if err := writeJSON(s.cfg.Output.Path, v); err != nil {
		return fmt.Errorf("write output failed: %w", err)
	}
	if s.cfg.Output.Metrics != "" {
		if err := prometheus.WriteToTextfile(s.cfg.Output.Metrics, s.registry); err != nil {
			return fmt.Errorf("write metrics failed: %w", err)
		}
	}
	return nil
}

// chart prints to stderr so stdout stays free for the results.
func (s *session) chart(view string) {
	if s.cfg.Output.Chart {
		fmt.Fprintln(os.Stderr, view)
	}
}

func doRun(ctx context.Context, cfg *config.Config, policy string) error {
	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer s.close()

	scenario, err := cfg.Experiment.BuildScenario()
	if err != nil {
		return err
	}

	if policy == experiment.PolicyUCB {
		curves, err := s.runner.RunUCB(ctx, scenario)
		if err != nil {
			return err
		}
		s.chart(renderCurves(curves, chartWidth))
		return s.finish(curves)
	}

	var all []*experiment.Curves
	for _, h := range cfg.Experiment.Explore {
		curves, err := s.runner.RunETC(ctx, scenario, h)
		if err != nil {
			return fmt.Errorf("explore %d: %w", h, err)
		}
		s.chart(renderCurves(curves, chartWidth))
		all = append(all, curves)
	}
	return s.finish(all)
}

func doSweep(ctx context.Context, cfg *config.Config) error {
	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer s.close()

	points, err := s.runner.SweepGap(ctx, cfg.Experiment.Deltas, cfg.Experiment.Noise)
	if err != nil {
		return err
	}
	s.chart(renderGap(points, chartWidth))
	return s.finish(points)
}
