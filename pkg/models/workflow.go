// Package models defines the owned entities of the workflow store.
package models

import (
	"time"

	"github.com/dukex/wirecat/pkg/graph"
	"github.com/dukex/wirecat/pkg/identity"
)

// WorkflowStatus says whether a workflow accepts triggers.
type WorkflowStatus string

const (
	WorkflowStatusOnline  WorkflowStatus = "online"
	WorkflowStatusOffline WorkflowStatus = "offline"
)

// Valid reports whether s is a known workflow status.
func (s WorkflowStatus) Valid() bool {
	return s == WorkflowStatusOnline || s == WorkflowStatusOffline
}

// Workflow is an owned, named graph of actions plus its wiring document.
type Workflow struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"       validate:"required,min=1"`
	Description string          `json:"description"`
	Status      WorkflowStatus  `json:"status"      validate:"required,oneof=online offline"`
	Graph       *graph.Document `json:"object"`
	IconURL     *string         `json:"icon_url,omitempty"`
	OwnerID     string          `json:"owner_id"    validate:"required"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Key returns the derived composite key "{id}.{slug}".
func (w *Workflow) Key() string {
	return identity.DeriveKey(w.ID, w.Title)
}

// Copy returns a deep copy of w.
func (w *Workflow) Copy() *Workflow {
	if w == nil {
		return nil
	}

	out := *w
	out.Graph = w.Graph.Clone()

	if w.IconURL != nil {
		icon := *w.IconURL
		out.IconURL = &icon
	}

	return &out
}
