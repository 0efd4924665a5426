package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukex/hireflow/pkg/cmd"
	"github.com/dukex/hireflow/pkg/log"
	"github.com/dukex/hireflow/pkg/otelhelper"
	"github.com/dukex/hireflow/pkg/sources/assessment"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort     = 9091
	shutdownTimeout = 30 * time.Second
)

func main() {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
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
		Name:                  "hireflow-api",
		Usage:                 "Manage assessment workflow rules and ingest assessment events",
		EnableShellCompletion: true,
		Flags:                 append(flags, cmd.EngineFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			if err := log.Setup(command.String("log-level")); err != nil {
				return err
			}

			logger := log.WithModule("hireflow-api")

			logger.InfoContext(ctx, "Initializing hireflow API")

			if command.Bool("telemetry") {
				shutdownTracer, err := otelhelper.InitTracer(ctx, "hireflow-api", "")
				if err != nil {
					return err
				}

				defer func() {
					if err := shutdownTracer(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()

				shutdownMeter, err := otelhelper.InitMeter(ctx, "hireflow-api", "")
				if err != nil {
					return err
				}

				defer func() {
					if err := shutdownMeter(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown meter provider", "error", err)
					}
				}()
			}

			metrics, err := otelhelper.NewMetrics()
			if err != nil {
				return err
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.StringSlice("kafka-brokers"), logger)
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
				command.Duration("action-timeout"),
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

			source, err := assessment.NewSource(logger, eventBus)
			if err != nil {
				return err
			}

			engine := cmd.NewEngine(logger, persistence, collaborators, locker, eventBus, metrics, cmd.EngineConfig(command))

			app := NewAPI(logger, persistence, engine.Orchestrator, source).App()

			go func() {
				<-ctx.Done()

				logger.Info("Shutting down hireflow API")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				if err := app.ShutdownWithContext(shutdownCtx); err != nil {
					logger.Error("Failed to shutdown API server", "error", err)
				}
			}()

			if err := app.Listen(":" + strconv.Itoa(command.Int("port"))); err != nil {
				logger.ErrorContext(ctx, "API server stopped", "error", err)

				return err
			}

			return nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := command.Run(ctx, os.Args); err != nil {
		stop()
		os.Exit(1)
	}
}
