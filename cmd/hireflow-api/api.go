// Package main provides the hireflow API server: rule management, execution history and event ingest.
package main

import (
	"log/slog"

	"github.com/dukex/hireflow/pkg/persistence"
	"github.com/dukex/hireflow/pkg/services"
	"github.com/dukex/hireflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	firer       web.RuleFirer
	source      web.EventSource
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	firer web.RuleFirer,
	source web.EventSource,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		firer:       firer,
		source:      source,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	ruleService := services.NewRule(a.logger, a.persistence, a.validate)
	executionService := services.NewExecution(a.persistence)

	handlers := web.NewAPIHandlers(ruleService, executionService, a.firer, a.source, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			_, ok := ruleService.HealthCheck(c.Context())

			return ok
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("hireflow API")
	})

	handlers.Routes(app)

	return app
}
