// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/someonegg/gsmatch/experiment"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "market-sim",
		Usage: "Simulate learning agents in a repeated stable matching market",
		Commands: []*cli.Command{
			ucbCmd,
			etcCmd,
			sweepCmd,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Println("Error: ", err)
		stop()
		os.Exit(1)
	}
}

var commonFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "specify the config.yaml",
	},
	&cli.StringFlag{
		Name:  "scenario",
		Usage: "specify the scenario preset (" + strings.Join(experiment.PresetNames(), ", ") + ")",
	},
	&cli.IntFlag{
		Name:  "size",
		Usage: "specify the market size of the linear preset",
	},
	&cli.IntFlag{
		Name:  "horizon",
		Usage: "specify the rounds per trial",
	},
	&cli.IntFlag{
		Name:  "trials",
		Usage: "specify the independent trials",
	},
	&cli.IntFlag{
		Name:  "workers",
		Usage: "specify the trials run in parallel",
	},
	&cli.Float64Flag{
		Name:  "noise",
		Usage: "specify the reward noise scale",
	},
	&cli.Int64Flag{
		Name:  "seed",
		Usage: "specify the seed of the first trial",
	},
	&cli.StringFlag{
		Name:  "out",
		Usage: "specify the output curves.json (default stdout)",
	},
	&cli.StringFlag{
		Name:  "metrics",
		Usage: "specify the output prometheus textfile",
	},
	&cli.BoolFlag{
		Name:  "no-chart",
		Usage: "do not print the regret sparklines",
	},
}

func withCommon(flags ...cli.Flag) []cli.Flag {
	return append(append([]cli.Flag{}, commonFlags...), flags...)
}

var ucbCmd = &cli.Command{
	Name:  "ucb",
	Usage: "Match on confidence bounds every round",
	Flags: withCommon(),
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		return doRun(ctx.Context, cfg, experiment.PolicyUCB)
	},
}

var etcCmd = &cli.Command{
	Name:  "etc",
	Usage: "Explore round-robin, then commit to one matching",
	Flags: withCommon(
		&cli.IntSliceFlag{
			Name:  "explore",
			Usage: "specify the exploration lengths, one run each",
		},
	),
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		if ctx.IsSet("explore") {
			cfg.Experiment.Explore = ctx.IntSlice("explore")
		}
		if len(cfg.Experiment.Explore) == 0 {
			return errors.New("no exploration length")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return doRun(ctx.Context, cfg, experiment.PolicyETC)
	},
}

var sweepCmd = &cli.Command{
	Name:  "sweep",
	Usage: "Run UCB on the reward gap market for every delta",
	Flags: withCommon(
		&cli.Float64SliceFlag{
			Name:  "deltas",
			Usage: "specify the reward gaps",
		},
	),
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		if ctx.IsSet("deltas") {
			cfg.Experiment.Deltas = ctx.Float64Slice("deltas")
		}
		if len(cfg.Experiment.Deltas) == 0 {
			return errors.New("no reward gap")
		}
		return doSweep(ctx.Context, cfg)
	},
}
