// Package web provides the HTTP API of the workflow store.
package web

// CopyWorkflowRequest asks for a copy of a workflow. OwnerID names the source owner and
// may only be set by service roles; it defaults to the shared library.
type CopyWorkflowRequest struct {
	WorkflowID string `json:"workflow_id" validate:"required"`
	OwnerID    string `json:"owner_id"`
}

// AuthenticateWebhookRequest carries the secret presented to a webhook.
type AuthenticateWebhookRequest struct {
	Secret string `json:"secret" validate:"required"`
}

// CreateActionRunRequest starts an action run inside a workflow run.
type CreateActionRunRequest struct {
	WorkflowRunID string `json:"workflow_run_id" validate:"required"`
}

// UpdateRunStatusRequest moves a run to another status.
type UpdateRunStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending running failure success canceled"`
}
