package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/hireflow/pkg/cmd"
	"github.com/dukex/hireflow/pkg/engine"
	"github.com/dukex/hireflow/pkg/eventbus"
	"github.com/dukex/hireflow/pkg/log"
	"github.com/dukex/hireflow/pkg/otelhelper"
	"github.com/dukex/hireflow/pkg/scheduler"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "worker-id",
			Aliases: []string{"id"},
			Usage:   "Custom worker ID (auto-generated if not provided)",
			Value:   "",
			Sources: cli.EnvVars("WORKER_ID"),
		},
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL for persistence (file://path or postgres://...)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (kafka, gochannel)",
			Value:   "kafka",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringSliceFlag{
			Name:    "kafka-brokers",
			Usage:   "Kafka brokers",
			Value:   []string{"localhost:9092"},
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "sweep-schedule",
			Usage:   "Cron schedule of the stale execution recovery sweep",
			Value:   scheduler.DefaultSchedule,
			Sources: cli.EnvVars("SWEEP_SCHEDULE"),
		},
		&cli.BoolFlag{
			Name:    "telemetry",
			Aliases: []string{"tracing"},
			Usage:   "Export traces and metrics over OTLP/HTTP",
			Sources: cli.EnvVars("TELEMETRY_ENABLED", "TRACING_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}

	command := &cli.Command{
		Name:                  "hireflow-worker",
		EnableShellCompletion: true,
		Usage:                 "Run workflow rules for assessment events",
		Flags:                 append(flags, cmd.EngineFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			if err := log.Setup(command.String("log-level")); err != nil {
				return err
			}

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("hireflow-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing hireflow worker")

			if command.Bool("telemetry") {
				shutdownTracer, err := otelhelper.InitTracer(ctx, "hireflow-worker", workerID)
				if err != nil {
					return err
				}

				defer func() {
					if err := shutdownTracer(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()

				shutdownMeter, err := otelhelper.InitMeter(ctx, "hireflow-worker", workerID)
				if err != nil {
					return err
				}

				defer func() {
					if err := shutdownMeter(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown meter provider", "error", err)
					}
				}()
			}

			config := cmd.EngineConfig(command)

			metrics, err := otelhelper.NewMetrics()
			if err != nil {
				return err
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			pool := engine.NewPool(config.Workers)

			eventBus, err := cmd.NewEventBus(
				command.String("event-bus"),
				command.StringSlice("kafka-brokers"),
				logger,
				eventbus.WithDispatcher(pool),
			)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			collaborators, err := cmd.NewCollaborators(
				logger,
				command.String("collaborators-url"),
				command.String("collaborators-token"),
				config.Actions.Timeout,
			)
			if err != nil {
				return err
			}

			locker, closeLocker, err := cmd.NewLocker(ctx, logger, command.String("redis-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := closeLocker(); err != nil {
					logger.ErrorContext(ctx, "Failed to close locker", "error", err)
				}
			}()

			e := cmd.NewEngine(logger, persistence, collaborators, locker, eventBus, metrics, config)

			sweeper, err := scheduler.NewSweeper(logger, e.Recorder, command.String("sweep-schedule"), config.StaleAfter)
			if err != nil {
				return err
			}

			return NewWorker(workerID, logger, eventBus, e.Orchestrator, pool, sweeper).Run(ctx)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := command.Run(ctx, os.Args); err != nil {
		stop()
		os.Exit(1)
	}
}
