package models

import (
	"slices"
	"time"

	"github.com/dukex/wirecat/pkg/graph"
	"github.com/dukex/wirecat/pkg/identity"
)

// ActionType is the kind of step an action performs.
type ActionType string

const (
	ActionTypeWebhook             ActionType = "webhook"
	ActionTypeHTTPRequest         ActionType = "http_request"
	ActionTypeDataTransform       ActionType = "data_transform"
	ActionTypeConditionCompare    ActionType = "condition.compare"
	ActionTypeConditionRegex      ActionType = "condition.regex"
	ActionTypeConditionMembership ActionType = "condition.membership"
	ActionTypeLLMExtract          ActionType = "llm.extract"
	ActionTypeLLMLabel            ActionType = "llm.label"
	ActionTypeLLMTranslate        ActionType = "llm.translate"
	ActionTypeLLMChoice           ActionType = "llm.choice"
	ActionTypeLLMSummarize        ActionType = "llm.summarize"
	ActionTypeSendEmail           ActionType = "send_email"
	ActionTypeOpenCase            ActionType = "open_case"
	ActionTypeReceiveEmail        ActionType = "receive_email"
)

var actionTypes = []ActionType{
	ActionTypeWebhook,
	ActionTypeHTTPRequest,
	ActionTypeDataTransform,
	ActionTypeConditionCompare,
	ActionTypeConditionRegex,
	ActionTypeConditionMembership,
	ActionTypeLLMExtract,
	ActionTypeLLMLabel,
	ActionTypeLLMTranslate,
	ActionTypeLLMChoice,
	ActionTypeLLMSummarize,
	ActionTypeSendEmail,
	ActionTypeOpenCase,
	ActionTypeReceiveEmail,
}

// ActionTypes lists every supported action type.
func ActionTypes() []ActionType {
	return slices.Clone(actionTypes)
}

// Valid reports whether t is a supported action type.
func (t ActionType) Valid() bool {
	return slices.Contains(actionTypes, t)
}

// HasWebhook reports whether actions of this type own a webhook.
func (t ActionType) HasWebhook() bool {
	return t == ActionTypeWebhook
}

// Input keys a webhook action carries for its webhook.
const (
	InputWebhookPath   = "path"
	InputWebhookSecret = "secret"
	InputWebhookURL    = "url"
)

// Action is a single typed step within a workflow.
type Action struct {
	ID          string         `json:"id"`
	Type        ActionType     `json:"type"        validate:"required"`
	Title       string         `json:"title"       validate:"required,min=1"`
	Description string         `json:"description"`
	Status      WorkflowStatus `json:"status"`
	Inputs      map[string]any `json:"inputs"`
	OwnerID     string         `json:"owner_id"    validate:"required"`
	WorkflowID  string         `json:"workflow_id" validate:"required"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Key returns the derived composite key "{id}.{slug}".
func (a *Action) Key() string {
	return identity.DeriveKey(a.ID, a.Title)
}

// Copy returns a deep copy of a.
func (a *Action) Copy() *Action {
	if a == nil {
		return nil
	}

	out := *a
	out.Inputs = graph.CloneMap(a.Inputs)

	return &out
}
