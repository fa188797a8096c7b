package mocks

import (
	"context"

	"github.com/dukex/wirecat/pkg/services"
	"github.com/stretchr/testify/mock"
)

// MockWebhookCache is a mock implementation of services.WebhookCache interface.
type MockWebhookCache struct {
	mock.Mock
}

func (m *MockWebhookCache) Get(ctx context.Context, webhookID string) (*services.WebhookIdentity, bool, error) {
	args := m.Called(ctx, webhookID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}

	return args.Get(0).(*services.WebhookIdentity), args.Bool(1), args.Error(2)
}

func (m *MockWebhookCache) Set(ctx context.Context, identity *services.WebhookIdentity) error {
	args := m.Called(ctx, identity)

	return args.Error(0)
}

func (m *MockWebhookCache) Delete(ctx context.Context, webhookID string) error {
	args := m.Called(ctx, webhookID)

	return args.Error(0)
}
