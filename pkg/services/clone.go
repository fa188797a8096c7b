package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/wirecat/pkg/auth"
	"github.com/dukex/wirecat/pkg/events"
	"github.com/dukex/wirecat/pkg/graph"
	"github.com/dukex/wirecat/pkg/identity"
	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/otelhelper"
	"github.com/dukex/wirecat/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
)

// Node data keys rewritten on cloned graph nodes.
const (
	nodeDataID       = "id"
	nodeDataInputs   = "inputs"
	nodeDataSelected = "selected"
)

// CloneResult is a committed clone.
type CloneResult struct {
	Workflow        *models.Workflow     `json:"workflow"`
	Actions         []*models.Action     `json:"actions"`
	Webhooks        []*models.Webhook    `json:"webhooks"`
	Inconsistencies []GraphInconsistency `json:"inconsistencies,omitempty"`
}

// Cloner duplicates workflows with their actions, webhooks and graph.
// Cloning is safe to repeat but not idempotent: every attempt allocates new ids.
type Cloner struct {
	options

	store  persistence.Persistence
	signer *identity.WebhookSigner
	gate   *auth.Gate
	logger *slog.Logger
}

// NewCloner creates the clone engine.
func NewCloner(
	store persistence.Persistence,
	signer *identity.WebhookSigner,
	gate *auth.Gate,
	logger *slog.Logger,
	opts ...Option,
) *Cloner {
	return &Cloner{
		options: buildOptions(opts),
		store:   store,
		signer:  signer,
		gate:    gate,
		logger:  logger.With("module", "cloner"),
	}
}

// CloneWorkflow copies workflow sourceWorkflowID of sourceOwnerID to targetOwnerID as
// role, in one transaction. The copy starts offline, gets fresh ids for itself, its
// actions and their webhooks, fresh webhook secrets, and a graph rewired to the new ids.
// Nothing of a failed clone is left behind and the source is never modified.
func (c *Cloner) CloneWorkflow(
	ctx context.Context,
	role auth.Role,
	sourceOwnerID, sourceWorkflowID, targetOwnerID string,
) (*CloneResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "clone_workflow",
		attribute.String(otelhelper.SourceWorkflowIDKey, sourceWorkflowID),
		attribute.String(otelhelper.SourceOwnerIDKey, sourceOwnerID),
		attribute.String(otelhelper.OwnerIDKey, targetOwnerID),
		attribute.String(otelhelper.RoleKindKey, string(role.Kind)),
	)
	defer span.End()

	err := c.gate.CanClone(role, sourceOwnerID, targetOwnerID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, classify("clone workflow", err)
	}

	var result *CloneResult

	err = c.store.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		source, actions, webhooks, err := tx.Workflows().WorkflowWithActions(ctx, sourceOwnerID, sourceWorkflowID)
		if err != nil {
			return err
		}

		result = c.plan(source, actions, webhooks, targetOwnerID)

		return persist(ctx, tx, result)
	})
	if err != nil {
		err = classify("clone workflow", err)
		otelhelper.SetError(span, err)
		c.logger.ErrorContext(ctx, "clone failed",
			"source_workflow_id", sourceWorkflowID,
			"source_owner_id", sourceOwnerID,
			"target_owner_id", targetOwnerID,
			"retryable", IsRetryable(err),
			"error", err,
		)

		return nil, err
	}

	span.SetAttributes(
		attribute.String(otelhelper.WorkflowIDKey, result.Workflow.ID),
		attribute.Int(otelhelper.ActionCountKey, len(result.Actions)),
		attribute.Int(otelhelper.WebhookCountKey, len(result.Webhooks)),
	)

	if len(result.Inconsistencies) > 0 {
		references := make([]string, len(result.Inconsistencies))
		for i, inconsistency := range result.Inconsistencies {
			references[i] = inconsistency.Reference
		}

		c.logger.WarnContext(ctx, "cloned graph references unknown actions",
			"source_workflow_id", sourceWorkflowID,
			"workflow_id", result.Workflow.ID,
			"unresolved", references,
		)
	}

	c.logger.InfoContext(ctx, "workflow cloned",
		"source_workflow_id", sourceWorkflowID,
		"workflow_id", result.Workflow.ID,
		"owner_id", targetOwnerID,
		"actions", len(result.Actions),
		"webhooks", len(result.Webhooks),
	)

	c.publish(ctx, c.logger, result.Workflow.ID, clonedEvent(result, sourceOwnerID, sourceWorkflowID))

	return result, nil
}

// plan builds the rows of the clone without touching the store.
func (c *Cloner) plan(
	source *models.Workflow,
	actions []*models.Action,
	webhooks []*models.Webhook,
	targetOwnerID string,
) *CloneResult {
	workflow := &models.Workflow{
		ID:          c.newID(),
		Title:       source.Title,
		Description: source.Description,
		Status:      models.WorkflowStatusOffline,
		OwnerID:     targetOwnerID,
	}

	if source.IconURL != nil {
		icon := *source.IconURL
		workflow.IconURL = &icon
	}

	hasWebhook := make(map[string]bool, len(webhooks))
	for _, webhook := range webhooks {
		hasWebhook[webhook.ActionID] = true
	}

	result := &CloneResult{
		Workflow: workflow,
		Actions:  make([]*models.Action, 0, len(actions)),
		Webhooks: make([]*models.Webhook, 0),
	}

	actionIDs := make(map[string]string, len(actions))
	byNewID := make(map[string]*models.Action, len(actions))

	for _, sourceAction := range actions {
		action := sourceAction.Copy()
		action.ID = c.newID()
		action.OwnerID = targetOwnerID
		action.WorkflowID = workflow.ID
		action.CreatedAt = time.Time{}
		action.UpdatedAt = time.Time{}

		actionIDs[sourceAction.ID] = action.ID
		byNewID[action.ID] = action

		if action.Type.HasWebhook() || hasWebhook[sourceAction.ID] {
			webhook := &models.Webhook{
				ID:         c.newID(),
				OwnerID:    targetOwnerID,
				ActionID:   action.ID,
				WorkflowID: workflow.ID,
			}
			c.patchWebhookInputs(action, webhook)
			result.Webhooks = append(result.Webhooks, webhook)
		}

		result.Actions = append(result.Actions, action)
	}

	if source.Graph != nil {
		document, unresolved := graph.Remap(source.Graph, actionIDs)
		patchNodes(document, byNewID)
		workflow.Graph = document

		for _, reference := range unresolved {
			result.Inconsistencies = append(result.Inconsistencies, GraphInconsistency{
				WorkflowID: source.ID,
				Reference:  reference,
			})
		}
	}

	return result
}

// patchWebhookInputs points a webhook action's inputs at its new webhook. The secret is
// always derived for the new id, never copied.
func (c *Cloner) patchWebhookInputs(action *models.Action, webhook *models.Webhook) {
	if action.Inputs == nil {
		action.Inputs = make(map[string]any)
	}

	action.Inputs[models.InputWebhookPath] = webhook.Path()
	action.Inputs[models.InputWebhookSecret] = c.signer.Secret(webhook.ID)

	if _, ok := action.Inputs[models.InputWebhookURL]; ok {
		action.Inputs[models.InputWebhookURL] = c.signer.URL(webhook.ID)
	}
}

// patchNodes syncs each remapped node's data with its cloned action and deselects it.
func patchNodes(document *graph.Document, actions map[string]*models.Action) {
	for i := range document.Nodes {
		node := &document.Nodes[i]

		action, ok := actions[node.ID]
		if !ok {
			continue
		}

		if node.Data == nil {
			node.Data = make(map[string]any)
		}

		node.Data[nodeDataID] = action.ID
		node.Data[nodeDataInputs] = graph.CloneMap(action.Inputs)
		node.Data[nodeDataSelected] = false
	}
}

// persist writes the workflow, then its actions, then their webhooks.
func persist(ctx context.Context, tx persistence.Tx, result *CloneResult) error {
	err := tx.Workflows().Insert(ctx, result.Workflow)
	if err != nil {
		return err
	}

	for _, action := range result.Actions {
		err = tx.Actions().Insert(ctx, action)
		if err != nil {
			return err
		}
	}

	for _, webhook := range result.Webhooks {
		err = tx.Webhooks().Insert(ctx, webhook)
		if err != nil {
			return err
		}
	}

	return nil
}

func clonedEvent(result *CloneResult, sourceOwnerID, sourceWorkflowID string) *events.WorkflowCloned {
	event := events.NewWorkflowCloned(result.Workflow.ID, result.Workflow.OwnerID, sourceWorkflowID, sourceOwnerID)
	event.ActionCount = len(result.Actions)
	event.WebhookCount = len(result.Webhooks)

	for _, inconsistency := range result.Inconsistencies {
		event.Unresolved = append(event.Unresolved, inconsistency.Reference)
	}

	return event
}
