package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowCloned_JSONSerialization(t *testing.T) {
	original := NewWorkflowCloned("w2", "U9", "w1", "tracecat")
	original.ActionCount = 2
	original.WebhookCount = 1
	original.Unresolved = []string{"ghost"}

	jsonData, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"source_workflow_id":"w1"`)
	assert.Contains(t, string(jsonData), `"type":"workflow.cloned"`)

	decoded, ok := New(WorkflowClonedEvent).(*WorkflowCloned)
	require.True(t, ok)

	err = json.Unmarshal(jsonData, decoded)
	require.NoError(t, err)

	assert.Equal(t, original.WorkflowID, decoded.WorkflowID)
	assert.Equal(t, original.OwnerID, decoded.OwnerID)
	assert.Equal(t, original.SourceOwnerID, decoded.SourceOwnerID)
	assert.Equal(t, 2, decoded.ActionCount)
	assert.Equal(t, []string{"ghost"}, decoded.Unresolved)
	assert.Equal(t, WorkflowClonedEvent, decoded.GetType())
}

func TestEvents_Validation(t *testing.T) {
	tests := []struct {
		name    string
		event   interface{ Validate() error }
		wantErr error
	}{
		{"valid created", NewWorkflowCreated("w1", "u1", "Triage"), nil},
		{"created without workflow", NewWorkflowCreated("", "u1", "Triage"), ErrMissingWorkflowID},
		{"deleted without owner", NewWorkflowDeleted("w1", ""), ErrMissingOwnerID},
		{"valid updated", NewWorkflowUpdated("w1", "u1", true), nil},
		{"action without id", NewActionCreated("w1", "u1", "", "webhook", ""), ErrMissingActionID},
		{"valid action deleted", NewActionDeleted("w1", "u1", "a1"), nil},
		{"run without id", NewRunStatusChanged("w1", "u1", "", "", "running"), ErrMissingRunID},
		{"valid run", NewRunStatusChanged("", "u1", "r1", "a1", "success"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.Error(t, NewWorkflowCloned("w2", "u1", "", "u1").Validate())
}

func TestNew_Unknown(t *testing.T) {
	assert.Nil(t, New("unknown.event"))

	for _, eventType := range []EventType{
		WorkflowCreatedEvent, WorkflowUpdatedEvent, WorkflowDeletedEvent, WorkflowClonedEvent,
		ActionCreatedEvent, ActionDeletedEvent, RunStatusChangedEvent,
	} {
		assert.NotNil(t, New(eventType), eventType)
	}
}
