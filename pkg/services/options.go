package services

import (
	"context"
	"log/slog"

	"github.com/dukex/wirecat/pkg/eventbus"
	"github.com/dukex/wirecat/pkg/identity"
	"github.com/dukex/wirecat/pkg/otelhelper"
	"go.opentelemetry.io/otel/trace"
)

// Option customizes a service.
type Option func(*options)

type options struct {
	newID     identity.IDGenerator
	publisher eventbus.EventPublisher
	tracer    trace.Tracer
	cache     WebhookCache
}

// WithIDGenerator replaces the id allocator.
func WithIDGenerator(newID identity.IDGenerator) Option {
	return func(o *options) {
		o.newID = newID
	}
}

// WithPublisher publishes domain events after commits.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(o *options) {
		o.publisher = publisher
	}
}

// WithTracer records spans with tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithWebhookCache caches webhook identities for authentication.
func WithWebhookCache(cache WebhookCache) Option {
	return func(o *options) {
		o.cache = cache
	}
}

func buildOptions(opts []Option) options {
	o := options{
		newID:     identity.NewID,
		publisher: eventbus.Discard{},
		tracer:    otelhelper.NoopTracer(),
		cache:     noCache{},
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// publish sends event after a commit. Failures are logged, never returned: the change
// is already durable.
func (o options) publish(ctx context.Context, logger *slog.Logger, key string, event eventbus.Event) {
	err := o.publisher.Publish(ctx, key, event)
	if err != nil {
		logger.ErrorContext(ctx, "failed to publish event", "event_type", event.GetType(), "key", key, "error", err)
	}
}
