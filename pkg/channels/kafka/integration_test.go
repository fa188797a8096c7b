package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/wirecat/pkg/channels/kafka"
	"github.com/dukex/wirecat/pkg/eventbus"
	"github.com/dukex/wirecat/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func setupKafkaBrokers(t *testing.T) []string {
	t.Helper()

	ctx := context.Background()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("wirecat-test"),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		err := testcontainers.TerminateContainer(container)
		if err != nil {
			t.Logf("Failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	return brokers
}

func TestKafkaEventBus_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Kafka integration test in short mode")
	}

	brokers := setupKafkaBrokers(t)

	pub, sub, err := kafka.CreateChannel(watermill.NopLogger{}, brokers, "wirecat-test")
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	received := make(chan *events.WorkflowCloned, 1)

	require.NoError(t, bus.Handle(events.WorkflowClonedEvent, func(_ context.Context, event any) error {
		if cloned, ok := event.(*events.WorkflowCloned); ok {
			received <- cloned
		}

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	event := events.NewWorkflowCloned("w2", "U9", "w1", "tracecat")
	event.WebhookCount = 1

	require.NoError(t, bus.Publish(ctx, "w2", event))

	select {
	case got := <-received:
		assert.Equal(t, "w2", got.WorkflowID)
		assert.Equal(t, "tracecat", got.SourceOwnerID)
		assert.Equal(t, 1, got.WebhookCount)
	case <-time.After(60 * time.Second):
		t.Fatal("timed out waiting for workflow.cloned event from Kafka")
	}
}
