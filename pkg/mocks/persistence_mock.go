package mocks

import (
	"context"

	"github.com/dukex/wirecat/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
// WithTransaction returns the configured error without running fn unless Tx is set,
// in which case fn runs against Tx and its error is returned.
type MockPersistence struct {
	mock.Mock

	Tx persistence.Tx
}

func (m *MockPersistence) WithTransaction(ctx context.Context, fn persistence.TxFunc) error {
	args := m.Called(ctx)

	if args.Error(0) != nil || m.Tx == nil {
		return args.Error(0)
	}

	return fn(ctx, m.Tx)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
