package cmd

import (
	"log/slog"

	"github.com/dukex/hireflow/pkg/actions"
	"github.com/dukex/hireflow/pkg/engine"
	"github.com/dukex/hireflow/pkg/eventbus"
	"github.com/dukex/hireflow/pkg/locking"
	"github.com/dukex/hireflow/pkg/otelhelper"
	"github.com/dukex/hireflow/pkg/persistence"
	"github.com/dukex/hireflow/pkg/recorder"
	cli "github.com/urfave/cli/v3"
)

// EngineFlags are the flags shared by every binary that runs rules.
func EngineFlags() []cli.Flag {
	defaults := engine.DefaultConfig()

	return []cli.Flag{
		&cli.IntFlag{
			Name:    "workers",
			Usage:   "Upper bound of events processed concurrently; effective concurrency is also capped by the Kafka partitions assigned to this worker (1 with gochannel)",
			Value:   defaults.Workers,
			Sources: cli.EnvVars("WORKERS"),
		},
		&cli.DurationFlag{
			Name:    "action-timeout",
			Usage:   "Timeout of a single action attempt",
			Value:   defaults.Actions.Timeout,
			Sources: cli.EnvVars("ACTION_TIMEOUT"),
		},
		&cli.IntFlag{
			Name:    "retry-attempts",
			Usage:   "Retries after the first attempt for retryable action errors",
			Value:   defaults.Actions.Retries,
			Sources: cli.EnvVars("RETRY_ATTEMPTS"),
		},
		&cli.DurationFlag{
			Name:    "retry-delay",
			Usage:   "Pause between action attempts",
			Value:   defaults.Actions.RetryDelay,
			Sources: cli.EnvVars("RETRY_DELAY"),
		},
		&cli.IntFlag{
			Name:    "max-trigger-depth",
			Usage:   "Longest chain of rule-driven events before new ones are dropped",
			Value:   defaults.MaxTriggerDepth,
			Sources: cli.EnvVars("MAX_TRIGGER_DEPTH"),
		},
		&cli.DurationFlag{
			Name:    "stale-after",
			Usage:   "Age after which a pending execution is marked failed by the recovery sweep",
			Value:   defaults.StaleAfter,
			Sources: cli.EnvVars("STALE_AFTER"),
		},
		&cli.StringFlag{
			Name:    "collaborators-url",
			Usage:   "Base URL of the notification, status and scheduling services (empty logs actions only)",
			Sources: cli.EnvVars("COLLABORATORS_URL"),
		},
		&cli.StringFlag{
			Name:    "collaborators-token",
			Usage:   "Bearer token sent to the collaborators service",
			Sources: cli.EnvVars("COLLABORATORS_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for rule locks shared between replicas (empty uses in-process locks)",
			Sources: cli.EnvVars("REDIS_URL"),
		},
	}
}

// EngineConfig reads the values of EngineFlags from command.
func EngineConfig(command *cli.Command) engine.Config {
	config := engine.DefaultConfig()

	config.Workers = command.Int("workers")
	config.MaxTriggerDepth = command.Int("max-trigger-depth")
	config.StaleAfter = command.Duration("stale-after")
	config.Actions = actions.Config{
		Timeout:    command.Duration("action-timeout"),
		Retries:    command.Int("retry-attempts"),
		RetryDelay: command.Duration("retry-delay"),
	}

	return config
}

// Engine bundles an orchestrator with the recorder it writes through.
type Engine struct {
	Orchestrator *engine.Orchestrator
	Recorder     *recorder.Recorder
}

// NewEngine wires the recorder, action executor and orchestrator around p.
func NewEngine(
	logger *slog.Logger,
	p persistence.Persistence,
	collaborators actions.Collaborators,
	locker locking.Locker,
	publisher eventbus.EventPublisher,
	metrics *otelhelper.Metrics,
	config engine.Config,
) *Engine {
	rec := recorder.New(logger, p, metrics)
	executor := actions.NewExecutor(logger, collaborators, config.Actions, nil, metrics)

	orchestrator := engine.New(logger, engine.Dependencies{
		Rules:     p.RuleRepository(),
		Recorder:  rec,
		Executor:  executor,
		Locker:    locker,
		Publisher: publisher,
		Metrics:   metrics,
	}, config)

	return &Engine{Orchestrator: orchestrator, Recorder: rec}
}
