// Package main provides the wirecat API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/wirecat/pkg/auth"
	"github.com/dukex/wirecat/pkg/config"
	"github.com/dukex/wirecat/pkg/eventbus"
	"github.com/dukex/wirecat/pkg/identity"
	"github.com/dukex/wirecat/pkg/persistence"
	"github.com/dukex/wirecat/pkg/services"
	"github.com/dukex/wirecat/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	signer      *identity.WebhookSigner
	resolver    web.RoleResolver
	gate        *auth.Gate
	tracer      trace.Tracer
	cache       services.WebhookCache
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventPublisher,
	signer *identity.WebhookSigner,
	resolver web.RoleResolver,
	gate *auth.Gate,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		signer:      signer,
		resolver:    resolver,
		gate:        gate,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// WithTracer records service spans with tracer.
func (a *API) WithTracer(tracer trace.Tracer) *API {
	a.tracer = tracer

	return a
}

// WithWebhookCache caches webhook authentications in cache.
func (a *API) WithWebhookCache(cache services.WebhookCache) *API {
	a.cache = cache

	return a
}

func (a *API) options() []services.Option {
	opts := []services.Option{services.WithPublisher(a.eventBus)}

	if a.tracer != nil {
		opts = append(opts, services.WithTracer(a.tracer))
	}

	if a.cache != nil {
		opts = append(opts, services.WithWebhookCache(a.cache))
	}

	return opts
}

// SeedLibrary creates the library workflows of library that are not stored yet.
func (a *API) SeedLibrary(ctx context.Context, library *config.LibraryFile) (int, error) {
	opts := a.options()
	seeder := config.NewSeeder(
		services.NewWorkflow(a.persistence, a.gate, a.logger, opts...),
		services.NewAction(a.persistence, a.signer, a.logger, opts...),
		a.gate,
		a.logger,
	)

	return seeder.Seed(ctx, library)
}

func (a *API) App() *fiber.App {
	opts := a.options()

	handlers := web.NewAPIHandlers(web.Services{
		Workflows: services.NewWorkflow(a.persistence, a.gate, a.logger, opts...),
		Actions:   services.NewAction(a.persistence, a.signer, a.logger, opts...),
		Webhooks:  services.NewWebhook(a.persistence, a.signer, a.logger, opts...),
		Runs:      services.NewRun(a.persistence, a.logger, opts...),
		Cloner:    services.NewCloner(a.persistence, a.signer, a.gate, a.logger, opts...),
		Gate:      a.gate,
	}, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Wirecat API")
	})

	app.Get("/health", handlers.HealthCheck)

	app.Use(web.Authenticate(a.resolver))
	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
