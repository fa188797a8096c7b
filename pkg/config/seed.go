package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/wirecat/pkg/auth"
	"github.com/dukex/wirecat/pkg/graph"
	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/services"
)

// Seeder writes library workflows into the library owner's account.
type Seeder struct {
	workflows *services.Workflow
	actions   *services.Action
	role      auth.Role
	logger    *slog.Logger
}

// NewSeeder creates a seeder acting as a service role of gate's library owner.
func NewSeeder(workflows *services.Workflow, actions *services.Action, gate *auth.Gate, logger *slog.Logger) *Seeder {
	return &Seeder{
		workflows: workflows,
		actions:   actions,
		role:      auth.ServiceRole(gate.LibraryOwner(), "library-seed"),
		logger:    logger.With("module", "library_seed"),
	}
}

// Seed creates every library workflow whose title is not in the library yet and
// returns how many were created.
func (s *Seeder) Seed(ctx context.Context, library *LibraryFile) (int, error) {
	existing, err := s.workflows.List(ctx, s.role, false)
	if err != nil {
		return 0, err
	}

	titles := make(map[string]struct{}, len(existing))
	for _, workflow := range existing {
		titles[workflow.Title] = struct{}{}
	}

	created := 0

	for _, definition := range library.Workflows {
		if _, ok := titles[definition.Title]; ok {
			s.logger.DebugContext(ctx, "library workflow already present", "title", definition.Title)

			continue
		}

		workflow, err := s.seedWorkflow(ctx, definition)
		if err != nil {
			return created, fmt.Errorf("failed to seed library workflow %q: %w", definition.Title, err)
		}

		s.logger.InfoContext(ctx, "library workflow seeded", "workflow_id", workflow.ID, "title", workflow.Title)

		created++
	}

	return created, nil
}

// seedWorkflow removes the workflow again when a later step fails so the next run retries it.
func (s *Seeder) seedWorkflow(ctx context.Context, definition LibraryWorkflow) (seeded *models.Workflow, err error) {
	req := services.CreateWorkflowRequest{
		Title:       definition.Title,
		Description: definition.Description,
	}

	if definition.IconURL != "" {
		icon := definition.IconURL
		req.IconURL = &icon
	}

	workflow, err := s.workflows.Create(ctx, s.role, req)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err == nil {
			return
		}

		if deleteErr := s.workflows.Delete(ctx, s.role, workflow.ID); deleteErr != nil {
			s.logger.ErrorContext(ctx, "failed to remove partially seeded workflow",
				"workflow_id", workflow.ID, "error", deleteErr)
		}
	}()

	document := &graph.Document{Nodes: []graph.Node{}, Edges: []graph.Edge{}}
	ids := make(map[string]string, len(definition.Actions))

	for _, step := range definition.Actions {
		action, err := s.actions.Create(ctx, s.role, services.CreateActionRequest{
			WorkflowID:  workflow.ID,
			Type:        models.ActionType(step.Type),
			Title:       step.Title,
			Description: step.Description,
			Inputs:      step.Inputs,
		})
		if err != nil {
			return nil, err
		}

		ids[step.Ref] = action.ID
		document.Nodes = append(document.Nodes, graph.Node{
			ID: action.ID,
			Data: map[string]any{
				"id":       action.ID,
				"type":     string(action.Type),
				"title":    action.Title,
				"inputs":   graph.CloneMap(action.Inputs),
				"selected": false,
			},
		})
	}

	for _, edge := range definition.Edges {
		source, target := ids[edge.Source], ids[edge.Target]
		document.Edges = append(document.Edges, graph.Edge{
			ID:     graph.EdgeID(source, target),
			Source: source,
			Target: target,
		})
	}

	raw, err := graph.Serialize(document)
	if err != nil {
		return nil, err
	}

	return s.workflows.Update(ctx, s.role, workflow.ID, services.UpdateWorkflowRequest{Graph: raw})
}
