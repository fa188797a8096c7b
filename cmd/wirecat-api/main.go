package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/wirecat/pkg/auth"
	"github.com/dukex/wirecat/pkg/cache"
	"github.com/dukex/wirecat/pkg/cmd"
	"github.com/dukex/wirecat/pkg/config"
	"github.com/dukex/wirecat/pkg/identity"
	"github.com/dukex/wirecat/pkg/log"
	"github.com/dukex/wirecat/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "wirecat-api",
		Usage:                 "Store, wire and copy workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL (postgres://..., file:///path or memory://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "signing-secret",
				Usage:    "Key webhook secrets are derived from",
				Required: true,
				Sources:  cli.EnvVars("WIRECAT_SIGNING_SECRET"),
			},
			&cli.StringFlag{
				Name:    "runner-url",
				Usage:   "Base URL of the runner receiving webhook calls",
				Value:   "http://localhost:8001",
				Sources: cli.EnvVars("WIRECAT_RUNNER_URL"),
			},
			&cli.StringFlag{
				Name:     "jwt-secret",
				Usage:    "Key bearer tokens are verified with",
				Required: true,
				Sources:  cli.EnvVars("WIRECAT_JWT_SECRET"),
			},
			&cli.StringFlag{
				Name:    "library-owner",
				Usage:   "Owner id of the shared workflow library",
				Value:   auth.DefaultLibraryOwner,
				Sources: cli.EnvVars("WIRECAT_LIBRARY_OWNER"),
			},
			&cli.StringFlag{
				Name:    "library-file",
				Usage:   "YAML file of library workflows seeded at startup (optional)",
				Sources: cli.EnvVars("WIRECAT_LIBRARY_FILE"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL caching webhook authentications (optional)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("api")

	logger.InfoContext(ctx, "Initializing Wirecat API")

	signer, err := identity.NewWebhookSigner([]byte(command.String("signing-secret")), command.String("runner-url"))
	if err != nil {
		return fmt.Errorf("invalid webhook configuration: %w", err)
	}

	resolver, err := auth.NewTokenResolver([]byte(command.String("jwt-secret")))
	if err != nil {
		return err
	}

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		err := persistence.Close(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	api := NewAPI(logger, persistence, eventBus, signer, resolver, auth.NewGate(command.String("library-owner")))

	if command.Bool("tracing") {
		tracer, shutdown, err := otelhelper.NewTracer(ctx, "wirecat-api")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
			}
		}()

		api.WithTracer(tracer)
	}

	if redisURL := command.String("redis-url"); redisURL != "" {
		webhookCache, err := cache.Connect(ctx, redisURL, cache.DefaultTTL)
		if err != nil {
			return err
		}

		defer func() {
			if err := webhookCache.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close webhook cache", "error", err)
			}
		}()

		api.WithWebhookCache(webhookCache)
	}

	if libraryFile := command.String("library-file"); libraryFile != "" {
		library, err := config.LoadLibrary(libraryFile)
		if err != nil {
			return err
		}

		created, err := api.SeedLibrary(ctx, library)
		if err != nil {
			return err
		}

		logger.InfoContext(ctx, "Library seeded", "created", created, "file", libraryFile)
	}

	return api.Start(int(command.Int("port")))
}
