package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dukex/wirecat/pkg/auth"
	"github.com/dukex/wirecat/pkg/events"
	"github.com/dukex/wirecat/pkg/graph"
	"github.com/dukex/wirecat/pkg/mocks"
	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/services"
	"github.com/dukex/wirecat/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWorkflow_HealthCheck(t *testing.T) {
	ctx := context.Background()

	healthy := services.NewWorkflow(newMemoryStore(), auth.NewGate(""), discardLogger())
	message, ok := healthy.HealthCheck(ctx)
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)

	store := &mocks.MockPersistence{}
	store.On("HealthCheck", mock.Anything).Return(errors.New("db down"))

	unhealthy := services.NewWorkflow(store, auth.NewGate(""), discardLogger())
	message, ok = unhealthy.HealthCheck(ctx)
	assert.False(t, ok)
	assert.Contains(t, message, "db down")

	missing := services.NewWorkflow(nil, auth.NewGate(""), discardLogger())
	_, ok = missing.HealthCheck(ctx)
	assert.False(t, ok)
}

func TestWorkflow_CreateGetList(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.AnythingOfType("*events.WorkflowCreated")).Return(nil)

	service := services.NewWorkflow(store, auth.NewGate(""), discardLogger(), services.WithPublisher(bus))

	created, err := service.Create(ctx, userRole("U1"), services.CreateWorkflowRequest{
		Title:       "My Workflow",
		Description: "does things",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "U1", created.OwnerID)
	assert.Equal(t, models.WorkflowStatusOffline, created.Status)
	assert.Equal(t, created.ID+".my_workflow", created.Key())

	details, err := service.Get(ctx, userRole("U1"), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "My Workflow", details.Title)
	assert.Empty(t, details.Actions)

	_, err = service.Get(ctx, userRole("U2"), created.ID)
	require.ErrorIs(t, err, services.ErrNotFound)

	listed, err := service.List(ctx, userRole("U1"), false)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	others, err := service.List(ctx, userRole("U2"), false)
	require.NoError(t, err)
	assert.Empty(t, others)

	bus.AssertNumberOfCalls(t, "Publish", 1)
}

func TestWorkflow_ListLibrary(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	library := testutil.CreateTestWorkflow("shared")
	require.NoError(t, testutil.Seed(ctx, store, library, nil, nil))
	require.NoError(t, testutil.Seed(ctx, store, testutil.CreateTestWorkflow("U1"), nil, nil))

	service := services.NewWorkflow(store, auth.NewGate("shared"), discardLogger())

	listed, err := service.List(ctx, userRole("U1"), true)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, library.ID, listed[0].ID)
}

func TestWorkflow_Update(t *testing.T) {
	ctx := context.Background()

	online := models.WorkflowStatusOnline
	bogus := models.WorkflowStatus("paused")
	title := "Renamed"

	tests := []struct {
		name    string
		req     func(a1, a2 *models.Action) services.UpdateWorkflowRequest
		wantErr error
		check   func(t *testing.T, updated *models.Workflow, a1, a2 *models.Action)
	}{
		{
			name: "title and status",
			req: func(_, _ *models.Action) services.UpdateWorkflowRequest {
				return services.UpdateWorkflowRequest{Title: &title, Status: &online}
			},
			check: func(t *testing.T, updated *models.Workflow, _, _ *models.Action) {
				assert.Equal(t, "Renamed", updated.Title)
				assert.Equal(t, models.WorkflowStatusOnline, updated.Status)
				assert.NotNil(t, updated.Graph)
			},
		},
		{
			name: "closed graph",
			req: func(a1, a2 *models.Action) services.UpdateWorkflowRequest {
				raw, _ := graph.Serialize(testutil.GraphOf(a2, a1))

				return services.UpdateWorkflowRequest{Graph: raw}
			},
			check: func(t *testing.T, updated *models.Workflow, a1, a2 *models.Action) {
				assert.Equal(t, []string{a2.ID, a1.ID}, updated.Graph.NodeIDs())
			},
		},
		{
			name: "null graph clears it",
			req: func(_, _ *models.Action) services.UpdateWorkflowRequest {
				return services.UpdateWorkflowRequest{Graph: json.RawMessage("null")}
			},
			check: func(t *testing.T, updated *models.Workflow, _, _ *models.Action) {
				assert.Nil(t, updated.Graph)
			},
		},
		{
			name: "graph naming a foreign action",
			req: func(a1, _ *models.Action) services.UpdateWorkflowRequest {
				stranger := &models.Action{ID: "stranger", Type: models.ActionTypeHTTPRequest}
				raw, _ := graph.Serialize(testutil.GraphOf(a1, stranger))

				return services.UpdateWorkflowRequest{Graph: raw}
			},
			wantErr: services.ErrGraphNotClosed,
		},
		{
			name: "malformed graph",
			req: func(_, _ *models.Action) services.UpdateWorkflowRequest {
				return services.UpdateWorkflowRequest{Graph: json.RawMessage(`{"nodes": 3}`)}
			},
			wantErr: graph.ErrMalformedGraph,
		},
		{
			name: "non canonical edge id",
			req: func(a1, a2 *models.Action) services.UpdateWorkflowRequest {
				raw := json.RawMessage(`{"nodes":[{"id":"` + a1.ID + `"},{"id":"` + a2.ID + `"}],` +
					`"edges":[{"id":"e1","source":"` + a1.ID + `","target":"` + a2.ID + `"}]}`)

				return services.UpdateWorkflowRequest{Graph: raw}
			},
			wantErr: graph.ErrMalformedGraph,
		},
		{
			name: "unknown status",
			req: func(_, _ *models.Action) services.UpdateWorkflowRequest {
				return services.UpdateWorkflowRequest{Status: &bogus}
			},
			wantErr: services.ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			workflow := testutil.CreateTestWorkflow("U1")
			a1 := testutil.CreateTestAction(workflow)
			a2 := testutil.CreateTestAction(workflow)
			workflow.Graph = testutil.GraphOf(a1, a2)
			require.NoError(t, testutil.Seed(ctx, store, workflow, []*models.Action{a1, a2}, nil))

			service := services.NewWorkflow(store, auth.NewGate(""), discardLogger())

			updated, err := service.Update(ctx, userRole("U1"), workflow.ID, tt.req(a1, a2))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				stored, getErr := service.Get(ctx, userRole("U1"), workflow.ID)
				require.NoError(t, getErr)
				assert.Equal(t, workflow.Graph, stored.Graph)

				return
			}

			require.NoError(t, err)
			tt.check(t, updated, a1, a2)

			stored, err := service.Get(ctx, userRole("U1"), workflow.ID)
			require.NoError(t, err)
			assert.Equal(t, updated.Graph, stored.Graph)
			assert.Equal(t, updated.Title, stored.Title)
		})
	}
}

func TestWorkflow_UpdateForeign(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	workflow := testutil.CreateTestWorkflow("U1")
	require.NoError(t, testutil.Seed(ctx, store, workflow, nil, nil))

	service := services.NewWorkflow(store, auth.NewGate(""), discardLogger())

	title := "hijacked"
	_, err := service.Update(ctx, userRole("U2"), workflow.ID, services.UpdateWorkflowRequest{Title: &title})
	require.ErrorIs(t, err, services.ErrNotFound)
}

func TestWorkflow_Delete(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	workflow := testutil.CreateTestWorkflow("U1")
	action := testutil.CreateTestAction(workflow, testutil.WithWebhookType("p", "s"))
	webhook := testutil.CreateTestWebhook(action)
	require.NoError(t, testutil.Seed(ctx, store, workflow, []*models.Action{action}, []*models.Webhook{webhook}))

	cache := &mocks.MockWebhookCache{}
	cache.On("Delete", mock.Anything, webhook.ID).Return(nil)

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, workflow.ID, mock.MatchedBy(func(event *events.WorkflowDeleted) bool {
		return event.WorkflowID == workflow.ID && event.OwnerID == "U1"
	})).Return(nil)

	service := services.NewWorkflow(store, auth.NewGate(""), discardLogger(),
		services.WithWebhookCache(cache), services.WithPublisher(bus))

	err := service.Delete(ctx, userRole("U2"), workflow.ID)
	require.ErrorIs(t, err, services.ErrNotFound)

	err = service.Delete(ctx, userRole("U1"), workflow.ID)
	require.NoError(t, err)

	_, err = service.Get(ctx, userRole("U1"), workflow.ID)
	require.ErrorIs(t, err, services.ErrNotFound)

	cache.AssertExpectations(t)
	bus.AssertExpectations(t)
}
