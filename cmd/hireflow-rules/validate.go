package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/hireflow/pkg/cmd"
	"github.com/dukex/hireflow/pkg/log"
	"github.com/dukex/hireflow/pkg/persistence"
	"github.com/dukex/hireflow/pkg/services"
	cli "github.com/urfave/cli/v3"
)

var errInvalidRules = errors.New("invalid rules found")

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Re-validate every stored rule and print errors and warnings",
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("hireflow-rules").With("action", "validate")

			return withPersistence(ctx, logger, command, func(p persistence.Persistence) error {
				reports, err := services.NewRule(logger, p, nil).Revalidate(ctx)
				if err != nil {
					return err
				}

				w := command.Root().Writer
				invalid := 0

				for _, report := range reports {
					state := "ok"
					if len(report.Errors) > 0 {
						state = "invalid"
						invalid++
					}

					_, _ = fmt.Fprintf(w, "%s %s (%s)\n", state, report.Name, report.RuleID)

					for _, msg := range report.Errors {
						_, _ = fmt.Fprintf(w, "  error: %s\n", msg)
					}

					for _, msg := range report.Warnings {
						_, _ = fmt.Fprintf(w, "  warning: %s\n", msg)
					}
				}

				_, _ = fmt.Fprintf(w, "\n%d rules checked, %d invalid\n", len(reports), invalid)

				if invalid > 0 {
					return fmt.Errorf("%w: %d", errInvalidRules, invalid)
				}

				return nil
			})
		},
	}
}

func withPersistence(ctx context.Context, logger *slog.Logger, command *cli.Command, fn func(persistence.Persistence) error) error {
	p, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := p.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	return fn(p)
}
