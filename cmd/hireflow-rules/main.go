// Package main provides hireflow-rules, maintenance commands for stored rules and executions.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/hireflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:                  "hireflow-rules",
		Usage:                 "Inspect and maintain workflow rules",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file://path or postgres://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			return ctx, log.Setup(command.String("log-level"))
		},
		Commands: []*cli.Command{
			NewValidateCommand(),
			NewSweepCommand(),
			NewListCommand(),
		},
	}
}

func main() {
	if err := NewRootCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
