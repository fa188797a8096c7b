package models

import "time"

// Webhook is an externally callable trigger bound to one action. Its id doubles as the
// public path segment; its secret and URL are derived and never stored.
type Webhook struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	ActionID   string    `json:"action_id"`
	WorkflowID string    `json:"workflow_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Path is the webhook's public path segment.
func (w *Webhook) Path() string {
	return w.ID
}

// Copy returns a copy of w.
func (w *Webhook) Copy() *Webhook {
	if w == nil {
		return nil
	}

	out := *w

	return &out
}
