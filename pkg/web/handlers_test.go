package web_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukex/wirecat/pkg/auth"
	"github.com/dukex/wirecat/pkg/identity"
	"github.com/dukex/wirecat/pkg/mocks"
	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/persistence"
	"github.com/dukex/wirecat/pkg/persistence/memory"
	"github.com/dukex/wirecat/pkg/services"
	"github.com/dukex/wirecat/pkg/testutil"
	"github.com/dukex/wirecat/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app      *fiber.App
	store    persistence.Persistence
	signer   *identity.WebhookSigner
	resolver *auth.TokenResolver
}

func setupTestApp(t *testing.T, store persistence.Persistence) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	signer, err := identity.NewWebhookSigner([]byte("signing-key"), "http://runner.local")
	require.NoError(t, err)

	resolver, err := auth.NewTokenResolver([]byte("jwt-secret"))
	require.NoError(t, err)

	gate := auth.NewGate("")

	handlers := web.NewAPIHandlers(web.Services{
		Workflows: services.NewWorkflow(store, gate, logger),
		Actions:   services.NewAction(store, signer, logger),
		Webhooks:  services.NewWebhook(store, signer, logger),
		Runs:      services.NewRun(store, logger),
		Cloner:    services.NewCloner(store, signer, gate, logger),
		Gate:      gate,
	}, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	app.Get("/health", handlers.HealthCheck)
	app.Use(web.Authenticate(resolver))
	handlers.Register(app)

	return &testEnv{app: app, store: store, signer: signer, resolver: resolver}
}

func (e *testEnv) token(t *testing.T, role auth.Role) string {
	t.Helper()

	token, err := e.resolver.Issue(role, time.Hour)
	require.NoError(t, err)

	return token
}

func (e *testEnv) do(t *testing.T, method, path string, role *auth.Role, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	if role != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(t, *role))
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, raw
}

func problemType(t *testing.T, body []byte) string {
	t.Helper()

	var problem struct {
		Type string `json:"type"`
	}

	require.NoError(t, json.Unmarshal(body, &problem))

	return problem.Type
}

func rolePtr(role auth.Role) *auth.Role {
	return &role
}

func TestAPIHandlers_Authentication(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t, memory.NewPersistence())

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header"},
		{name: "not a bearer token", header: "Basic Zm9vOmJhcg=="},
		{name: "garbage token", header: "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/workflows", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := env.app.Test(req)
			require.NoError(t, err)

			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
		})
	}

	t.Run("health needs no token", func(t *testing.T) {
		status, _ := env.do(t, http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusOK, status)
	})
}

func TestAPIHandlers_WorkflowLifecycle(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t, memory.NewPersistence())
	owner := rolePtr(auth.UserRole("U1"))
	stranger := rolePtr(auth.UserRole("U2"))

	status, body := env.do(t, http.MethodPost, "/workflows", owner, map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", problemType(t, body))

	status, body = env.do(t, http.MethodPost, "/workflows", owner, services.CreateWorkflowRequest{Title: "Triage"})
	require.Equal(t, http.StatusCreated, status)

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))
	assert.Equal(t, "U1", workflow.OwnerID)

	status, body = env.do(t, http.MethodPost, "/actions", owner, services.CreateActionRequest{
		WorkflowID: workflow.ID,
		Type:       models.ActionTypeWebhook,
		Title:      "Receive",
	})
	require.Equal(t, http.StatusCreated, status)

	var action models.Action
	require.NoError(t, json.Unmarshal(body, &action))
	assert.Contains(t, action.Inputs, models.InputWebhookURL)

	status, _ = env.do(t, http.MethodGet, "/workflows/"+workflow.ID, stranger, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = env.do(t, http.MethodGet, "/workflows/"+workflow.ID, owner, nil)
	require.Equal(t, http.StatusOK, status)

	var details services.WorkflowDetails
	require.NoError(t, json.Unmarshal(body, &details))
	require.Len(t, details.Actions, 1)

	t.Run("graph update", func(t *testing.T) {
		graph := testutil.GraphOf(&action)

		status, _ := env.do(t, http.MethodPatch, "/workflows/"+workflow.ID, owner, map[string]any{"object": graph})
		assert.Equal(t, http.StatusOK, status)

		open := testutil.GraphOf(&action, &models.Action{ID: "elsewhere"})
		status, body := env.do(t, http.MethodPatch, "/workflows/"+workflow.ID, owner, map[string]any{"object": open})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "validation_error", problemType(t, body))

		status, body = env.do(t, http.MethodPatch, "/workflows/"+workflow.ID, owner,
			map[string]any{"object": map[string]any{"nodes": "nope"}})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, "malformed_graph", problemType(t, body))
	})

	status, _ = env.do(t, http.MethodDelete, "/workflows/"+workflow.ID, stranger, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodDelete, "/workflows/"+workflow.ID, owner, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = env.do(t, http.MethodGet, "/actions/"+action.ID, owner, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_CopyWorkflow(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t, memory.NewPersistence())

	library := testutil.CreateTestWorkflow(auth.DefaultLibraryOwner)
	action := testutil.CreateTestAction(library)
	library.Graph = testutil.GraphOf(action)
	require.NoError(t, testutil.Seed(t.Context(), env.store, library, []*models.Action{action}, nil))

	private := testutil.CreateTestWorkflow("U2")
	require.NoError(t, testutil.Seed(t.Context(), env.store, private, nil, nil))

	tests := []struct {
		name       string
		role       auth.Role
		body       web.CopyWorkflowRequest
		wantStatus int
		wantType   string
	}{
		{
			name:       "user copies from the library",
			role:       auth.UserRole("U1"),
			body:       web.CopyWorkflowRequest{WorkflowID: library.ID},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "user may not pick the source owner",
			role:       auth.UserRole("U1"),
			body:       web.CopyWorkflowRequest{WorkflowID: private.ID, OwnerID: "U2"},
			wantStatus: http.StatusForbidden,
			wantType:   "forbidden",
		},
		{
			name:       "service copies its user's own workflow",
			role:       auth.ServiceRole("U2", "runner"),
			body:       web.CopyWorkflowRequest{WorkflowID: private.ID, OwnerID: "U2"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "service may not copy across users",
			role:       auth.ServiceRole("U1", "runner"),
			body:       web.CopyWorkflowRequest{WorkflowID: private.ID, OwnerID: "U2"},
			wantStatus: http.StatusForbidden,
			wantType:   "forbidden",
		},
		{
			name:       "unknown workflow",
			role:       auth.UserRole("U1"),
			body:       web.CopyWorkflowRequest{WorkflowID: "missing"},
			wantStatus: http.StatusNotFound,
			wantType:   "not_found",
		},
		{
			name:       "missing workflow id",
			role:       auth.UserRole("U1"),
			wantStatus: http.StatusBadRequest,
			wantType:   "validation_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodPost, "/workflows/copy", rolePtr(tt.role), tt.body)
			require.Equal(t, tt.wantStatus, status, string(body))

			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, problemType(t, body))

				return
			}

			var result services.CloneResult
			require.NoError(t, json.Unmarshal(body, &result))
			assert.Equal(t, tt.role.UserID, result.Workflow.OwnerID)
			assert.Equal(t, models.WorkflowStatusOffline, result.Workflow.Status)
		})
	}
}

func TestAPIHandlers_StoreFailure(t *testing.T) {
	t.Parallel()

	store := &mocks.MockPersistence{}
	store.On("WithTransaction", mock.Anything).Return(errors.New("connection reset"))
	store.On("HealthCheck", mock.Anything).Return(errors.New("connection reset"))

	env := setupTestApp(t, store)

	status, body := env.do(t, http.MethodGet, "/workflows", rolePtr(auth.UserRole("U1")), nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "store_failure", problemType(t, body))

	status, _ = env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestAPIHandlers_WebhookAndRuns(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t, memory.NewPersistence())
	owner := rolePtr(auth.UserRole("U1"))
	runner := rolePtr(auth.ServiceRole("U1", "runner"))

	workflow := testutil.CreateTestWorkflow("U1")
	action := testutil.CreateTestAction(workflow, testutil.WithWebhookType("p", "s"))
	webhook := testutil.CreateTestWebhook(action)
	require.NoError(t, testutil.Seed(t.Context(), env.store, workflow,
		[]*models.Action{action}, []*models.Webhook{webhook}))

	status, body := env.do(t, http.MethodGet, "/actions/"+action.ID+"/webhook", owner, nil)
	require.Equal(t, http.StatusOK, status)

	var view services.WebhookView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, env.signer.Secret(webhook.ID), view.Secret)

	authPath := "/webhooks/" + webhook.ID + "/authenticate"

	status, _ = env.do(t, http.MethodPost, authPath, owner, web.AuthenticateWebhookRequest{Secret: view.Secret})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = env.do(t, http.MethodPost, authPath, runner, web.AuthenticateWebhookRequest{Secret: view.Secret})
	require.Equal(t, http.StatusOK, status)

	var result services.WebhookAuthResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, services.WebhookAuthorized, result.Status)
	assert.Equal(t, action.ID, result.ActionID)

	status, body = env.do(t, http.MethodPost, authPath, runner, web.AuthenticateWebhookRequest{Secret: "wrong"})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, services.WebhookUnauthorized, result.Status)

	status, body = env.do(t, http.MethodPost, "/workflows/"+workflow.ID+"/runs", runner, nil)
	require.Equal(t, http.StatusCreated, status)

	var run models.WorkflowRun
	require.NoError(t, json.Unmarshal(body, &run))

	status, _ = env.do(t, http.MethodPatch, "/workflow-runs/"+run.ID, runner, web.UpdateRunStatusRequest{Status: "bogus"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPatch, "/workflow-runs/"+run.ID, runner, web.UpdateRunStatusRequest{Status: "running"})
	assert.Equal(t, http.StatusOK, status)

	status, body = env.do(t, http.MethodPost, "/actions/"+action.ID+"/runs", runner,
		web.CreateActionRunRequest{WorkflowRunID: run.ID})
	require.Equal(t, http.StatusCreated, status)

	status, body = env.do(t, http.MethodGet, "/workflows/"+workflow.ID+"/runs?limit=10", owner, nil)
	require.Equal(t, http.StatusOK, status)

	var runs []models.WorkflowRun
	require.NoError(t, json.Unmarshal(body, &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusRunning, runs[0].Status)

	status, _ = env.do(t, http.MethodGet, "/actions/"+action.ID+"/runs?limit=abc", owner, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
