// Package main provides the hireflow worker, which runs workflow rules for assessment events.
package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/hireflow/pkg/engine"
	"github.com/dukex/hireflow/pkg/eventbus"
	"github.com/dukex/hireflow/pkg/scheduler"
)

type Worker struct {
	id           string
	logger       *slog.Logger
	eventBus     eventbus.EventSubscriber
	orchestrator *engine.Orchestrator
	pool         *engine.Pool
	sweeper      *scheduler.Sweeper
}

// NewWorker expects eventBus to dispatch handlers through pool.
func NewWorker(
	id string,
	logger *slog.Logger,
	eventBus eventbus.EventSubscriber,
	orchestrator *engine.Orchestrator,
	pool *engine.Pool,
	sweeper *scheduler.Sweeper,
) *Worker {
	return &Worker{
		id:           id,
		logger:       logger.With("module", "hireflow-worker", "worker_id", id),
		eventBus:     eventBus,
		orchestrator: orchestrator,
		pool:         pool,
		sweeper:      sweeper,
	}
}

// Run processes events until ctx is cancelled, then waits for in-flight events to finish.
// Executions interrupted by the cancellation are completed as failed.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker")

	if err := w.orchestrator.Register(w.eventBus); err != nil {
		return err
	}

	if err := w.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start recovery sweeper: %w", err)
	}

	defer w.sweeper.Stop(context.Background())

	if err := w.eventBus.Subscribe(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	<-ctx.Done()

	w.logger.Info("Shutting down worker, draining in-flight events")

	// The message loop may still be blocked handing an event to the pool.
	w.eventBus.Wait()
	w.pool.Wait()

	w.logger.Info("Worker stopped")

	return nil
}
