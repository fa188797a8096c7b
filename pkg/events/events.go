// Package events defines the domain events published after workflow store changes commit.
package events

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the single topic all workflow store events are published on.
const Topic = "wirecat.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowCreatedEvent  EventType = "workflow.created"
	WorkflowUpdatedEvent  EventType = "workflow.updated"
	WorkflowDeletedEvent  EventType = "workflow.deleted"
	WorkflowClonedEvent   EventType = "workflow.cloned"
	ActionCreatedEvent    EventType = "action.created"
	ActionDeletedEvent    EventType = "action.deleted"
	RunStatusChangedEvent EventType = "run.status_changed"
)

var (
	ErrMissingWorkflowID = errors.New("workflow_id is required")
	ErrMissingOwnerID    = errors.New("owner_id is required")
	ErrMissingActionID   = errors.New("action_id is required")
	ErrMissingRunID      = errors.New("run_id is required")
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	OwnerID    string         `json:"owner_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID, ownerID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		OwnerID:    ownerID,
	}
}

func (b BaseEvent) validate() error {
	if b.WorkflowID == "" {
		return ErrMissingWorkflowID
	}

	if b.OwnerID == "" {
		return ErrMissingOwnerID
	}

	return nil
}

// WorkflowCreated is published when an empty workflow is created.
type WorkflowCreated struct {
	BaseEvent

	Title string `json:"title"`
}

func (w WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

func NewWorkflowCreated(workflowID, ownerID, title string) *WorkflowCreated {
	return &WorkflowCreated{
		BaseEvent: NewBaseEvent(WorkflowCreatedEvent, workflowID, ownerID),
		Title:     title,
	}
}

func (w *WorkflowCreated) Validate() error {
	return w.validate()
}

// WorkflowUpdated is published when a workflow's fields or graph change.
type WorkflowUpdated struct {
	BaseEvent

	GraphChanged bool `json:"graph_changed"`
}

func (w WorkflowUpdated) GetType() EventType {
	return WorkflowUpdatedEvent
}

func NewWorkflowUpdated(workflowID, ownerID string, graphChanged bool) *WorkflowUpdated {
	return &WorkflowUpdated{
		BaseEvent:    NewBaseEvent(WorkflowUpdatedEvent, workflowID, ownerID),
		GraphChanged: graphChanged,
	}
}

func (w *WorkflowUpdated) Validate() error {
	return w.validate()
}

// WorkflowDeleted is published after a workflow and its children are removed.
type WorkflowDeleted struct {
	BaseEvent
}

func (w WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}

func NewWorkflowDeleted(workflowID, ownerID string) *WorkflowDeleted {
	return &WorkflowDeleted{BaseEvent: NewBaseEvent(WorkflowDeletedEvent, workflowID, ownerID)}
}

func (w *WorkflowDeleted) Validate() error {
	return w.validate()
}

// WorkflowCloned is published after a clone commits. WorkflowID and OwnerID name the clone.
type WorkflowCloned struct {
	BaseEvent

	SourceWorkflowID string   `json:"source_workflow_id"`
	SourceOwnerID    string   `json:"source_owner_id"`
	ActionCount      int      `json:"action_count"`
	WebhookCount     int      `json:"webhook_count"`
	Unresolved       []string `json:"unresolved,omitempty"`
}

func (w WorkflowCloned) GetType() EventType {
	return WorkflowClonedEvent
}

func NewWorkflowCloned(workflowID, ownerID, sourceWorkflowID, sourceOwnerID string) *WorkflowCloned {
	return &WorkflowCloned{
		BaseEvent:        NewBaseEvent(WorkflowClonedEvent, workflowID, ownerID),
		SourceWorkflowID: sourceWorkflowID,
		SourceOwnerID:    sourceOwnerID,
	}
}

func (w *WorkflowCloned) Validate() error {
	err := w.validate()
	if err != nil {
		return err
	}

	if w.SourceWorkflowID == "" {
		return errors.New("source_workflow_id is required")
	}

	return nil
}

// ActionCreated is published when an action is added to a workflow.
type ActionCreated struct {
	BaseEvent

	ActionID   string `json:"action_id"`
	ActionType string `json:"action_type"`
	WebhookID  string `json:"webhook_id,omitempty"`
}

func (a ActionCreated) GetType() EventType {
	return ActionCreatedEvent
}

func NewActionCreated(workflowID, ownerID, actionID, actionType, webhookID string) *ActionCreated {
	return &ActionCreated{
		BaseEvent:  NewBaseEvent(ActionCreatedEvent, workflowID, ownerID),
		ActionID:   actionID,
		ActionType: actionType,
		WebhookID:  webhookID,
	}
}

func (a *ActionCreated) Validate() error {
	err := a.validate()
	if err != nil {
		return err
	}

	if a.ActionID == "" {
		return ErrMissingActionID
	}

	return nil
}

// ActionDeleted is published when an action and its webhook are removed.
type ActionDeleted struct {
	BaseEvent

	ActionID string `json:"action_id"`
}

func (a ActionDeleted) GetType() EventType {
	return ActionDeletedEvent
}

func NewActionDeleted(workflowID, ownerID, actionID string) *ActionDeleted {
	return &ActionDeleted{
		BaseEvent: NewBaseEvent(ActionDeletedEvent, workflowID, ownerID),
		ActionID:  actionID,
	}
}

func (a *ActionDeleted) Validate() error {
	err := a.validate()
	if err != nil {
		return err
	}

	if a.ActionID == "" {
		return ErrMissingActionID
	}

	return nil
}

// RunStatusChanged is published when a workflow or action run changes status.
// ActionID is empty for workflow runs.
type RunStatusChanged struct {
	BaseEvent

	RunID    string `json:"run_id"`
	ActionID string `json:"action_id,omitempty"`
	Status   string `json:"status"`
}

func (r RunStatusChanged) GetType() EventType {
	return RunStatusChangedEvent
}

func NewRunStatusChanged(workflowID, ownerID, runID, actionID, status string) *RunStatusChanged {
	return &RunStatusChanged{
		BaseEvent: NewBaseEvent(RunStatusChangedEvent, workflowID, ownerID),
		RunID:     runID,
		ActionID:  actionID,
		Status:    status,
	}
}

func (r *RunStatusChanged) Validate() error {
	if r.OwnerID == "" {
		return ErrMissingOwnerID
	}

	if r.RunID == "" {
		return ErrMissingRunID
	}

	return nil
}

// New returns an empty event value for eventType, ready for unmarshalling, or nil when
// the type is unknown.
func New(eventType EventType) any {
	switch eventType {
	case WorkflowCreatedEvent:
		return &WorkflowCreated{}
	case WorkflowUpdatedEvent:
		return &WorkflowUpdated{}
	case WorkflowDeletedEvent:
		return &WorkflowDeleted{}
	case WorkflowClonedEvent:
		return &WorkflowCloned{}
	case ActionCreatedEvent:
		return &ActionCreated{}
	case ActionDeletedEvent:
		return &ActionDeleted{}
	case RunStatusChangedEvent:
		return &RunStatusChanged{}
	default:
		return nil
	}
}
