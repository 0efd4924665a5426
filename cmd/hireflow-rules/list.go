package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dukex/hireflow/pkg/log"
	"github.com/dukex/hireflow/pkg/models"
	"github.com/dukex/hireflow/pkg/persistence"
	"github.com/dukex/hireflow/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func NewListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List the active rules of a trigger in execution order",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "trigger",
				Aliases:  []string{"t"},
				Usage:    "Trigger kind, e.g. assessment_completed",
				Required: true,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("hireflow-rules").With("action", "list")

			return withPersistence(ctx, logger, command, func(p persistence.Persistence) error {
				trigger := models.TriggerKind(command.String("trigger"))

				rules, err := services.NewRule(logger, p, nil).ListActiveByTrigger(ctx, trigger)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(command.Root().Writer, 0, 0, 2, ' ', 0)

				_, _ = fmt.Fprintln(w, "PRIORITY\tNAME\tID\tACTIONS\tEXECUTIONS")

				for _, rule := range rules {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
						rule.Priority, rule.Name, rule.ID, len(rule.Actions), rule.ExecutionCount)
				}

				if err := w.Flush(); err != nil {
					return err
				}

				_, _ = fmt.Fprintf(command.Root().Writer, "\n%d active rules for %s\n", len(rules), trigger)

				return nil
			})
		},
	}
}
