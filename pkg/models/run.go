package models

import (
	"slices"
	"time"
)

// RunStatus is the lifecycle state of a workflow or action run.
type RunStatus string

const (
	RunStatusPending  RunStatus = "pending"
	RunStatusRunning  RunStatus = "running"
	RunStatusFailure  RunStatus = "failure"
	RunStatusSuccess  RunStatus = "success"
	RunStatusCanceled RunStatus = "canceled"
)

// Valid reports whether s is a known run status.
func (s RunStatus) Valid() bool {
	return slices.Contains([]RunStatus{
		RunStatusPending,
		RunStatusRunning,
		RunStatusFailure,
		RunStatusSuccess,
		RunStatusCanceled,
	}, s)
}

// WorkflowRun records one execution of a workflow.
type WorkflowRun struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	WorkflowID string    `json:"workflow_id"`
	Status     RunStatus `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ActionRun records one execution of an action within a workflow run.
type ActionRun struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	ActionID      string    `json:"action_id"`
	WorkflowRunID string    `json:"workflow_run_id"`
	Status        RunStatus `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
