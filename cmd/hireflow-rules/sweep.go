package main

import (
	"context"
	"fmt"

	"github.com/dukex/hireflow/pkg/engine"
	"github.com/dukex/hireflow/pkg/log"
	"github.com/dukex/hireflow/pkg/persistence"
	"github.com/dukex/hireflow/pkg/recorder"
	"github.com/dukex/hireflow/pkg/scheduler"
	cli "github.com/urfave/cli/v3"
)

func NewSweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Mark pending executions older than --stale-after as failed",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "stale-after",
				Usage:   "Age after which a pending execution is considered abandoned",
				Value:   engine.DefaultConfig().StaleAfter,
				Sources: cli.EnvVars("STALE_AFTER"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("hireflow-rules").With("action", "sweep")

			return withPersistence(ctx, logger, command, func(p persistence.Persistence) error {
				sweeper, err := scheduler.NewSweeper(
					logger,
					recorder.New(logger, p, nil),
					scheduler.DefaultSchedule,
					command.Duration("stale-after"),
				)
				if err != nil {
					return err
				}

				recovered, err := sweeper.Sweep(ctx)

				_, _ = fmt.Fprintf(command.Root().Writer, "%d stale executions marked failed\n", recovered)

				return err
			})
		},
	}
}
