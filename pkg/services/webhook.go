package services

import (
	"context"
	"log/slog"

	"github.com/dukex/wirecat/pkg/auth"
	"github.com/dukex/wirecat/pkg/identity"
	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/persistence"
)

// WebhookAuthStatus is the verdict of a webhook authentication.
type WebhookAuthStatus string

const (
	WebhookAuthorized   WebhookAuthStatus = "Authorized"
	WebhookUnauthorized WebhookAuthStatus = "Unauthorized"
)

// WebhookIdentity is what an authorized webhook call resolves to.
type WebhookIdentity struct {
	OwnerID    string `json:"owner_id"`
	ActionID   string `json:"action_id"`
	ActionKey  string `json:"action_key"`
	WorkflowID string `json:"workflow_id"`
	WebhookID  string `json:"webhook_id"`
}

// WebhookAuthResult is returned by Authenticate. Identity is nil unless authorized.
type WebhookAuthResult struct {
	Status WebhookAuthStatus `json:"status"`
	*WebhookIdentity
}

// WebhookCache remembers webhook identities between authentications. Secrets are never
// cached; they are derived and checked on every call.
type WebhookCache interface {
	Get(ctx context.Context, webhookID string) (*WebhookIdentity, bool, error)
	Set(ctx context.Context, identity *WebhookIdentity) error
	Delete(ctx context.Context, webhookID string) error
}

type noCache struct{}

func (noCache) Get(context.Context, string) (*WebhookIdentity, bool, error) { return nil, false, nil }
func (noCache) Set(context.Context, *WebhookIdentity) error                 { return nil }
func (noCache) Delete(context.Context, string) error                        { return nil }

// forget drops a webhook from the cache. Failures only delay expiry and are logged.
func (o options) forget(ctx context.Context, logger *slog.Logger, webhookID string) {
	err := o.cache.Delete(ctx, webhookID)
	if err != nil {
		logger.WarnContext(ctx, "failed to evict webhook from cache", "webhook_id", webhookID, "error", err)
	}
}

// WebhookView is a webhook with its derived secret and URL.
type WebhookView struct {
	*models.Webhook

	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// Webhook handles webhook reads and authentication.
type Webhook struct {
	options

	persistence persistence.Persistence
	signer      *identity.WebhookSigner
	logger      *slog.Logger
}

// NewWebhook creates a new webhook service.
func NewWebhook(
	persistence persistence.Persistence,
	signer *identity.WebhookSigner,
	logger *slog.Logger,
	opts ...Option,
) *Webhook {
	return &Webhook{
		options:     buildOptions(opts),
		persistence: persistence,
		signer:      signer,
		logger:      logger.With("module", "webhook_service"),
	}
}

// Get returns a webhook of role's owner.
func (s *Webhook) Get(ctx context.Context, role auth.Role, webhookID string) (*WebhookView, error) {
	err := requireRole(role)
	if err != nil {
		return nil, classify("get webhook", err)
	}

	var webhook *models.Webhook

	err = s.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		webhook, err = tx.Webhooks().GetByID(ctx, role.UserID, webhookID)

		return err
	})
	if err != nil {
		return nil, classify("get webhook", err)
	}

	return s.view(webhook), nil
}

// GetByAction returns the webhook of an action of role's owner.
func (s *Webhook) GetByAction(ctx context.Context, role auth.Role, actionID string) (*WebhookView, error) {
	err := requireRole(role)
	if err != nil {
		return nil, classify("get webhook by action", err)
	}

	var webhook *models.Webhook

	err = s.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		webhook, err = tx.Webhooks().GetByAction(ctx, role.UserID, actionID)

		return err
	})
	if err != nil {
		return nil, classify("get webhook by action", err)
	}

	return s.view(webhook), nil
}

func (s *Webhook) view(webhook *models.Webhook) *WebhookView {
	return &WebhookView{
		Webhook: webhook,
		Secret:  s.signer.Secret(webhook.ID),
		URL:     s.signer.URL(webhook.ID),
	}
}

// Authenticate checks secret against webhookID for the service role that received the
// call. Unknown webhooks and wrong secrets are both plainly Unauthorized.
func (s *Webhook) Authenticate(
	ctx context.Context,
	role auth.Role,
	webhookID, secret string,
) (*WebhookAuthResult, error) {
	err := auth.RequireService(role)
	if err != nil {
		return nil, classify("authenticate webhook", err)
	}

	unauthorized := &WebhookAuthResult{Status: WebhookUnauthorized}

	if !s.signer.Verify(webhookID, secret) {
		s.logger.InfoContext(ctx, "webhook secret mismatch", "webhook_id", webhookID)

		return unauthorized, nil
	}

	cached, found, err := s.cache.Get(ctx, webhookID)
	if err != nil {
		s.logger.WarnContext(ctx, "webhook cache read failed", "webhook_id", webhookID, "error", err)
	}

	if found {
		return &WebhookAuthResult{Status: WebhookAuthorized, WebhookIdentity: cached}, nil
	}

	var resolved *WebhookIdentity

	err = s.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		webhook, err := tx.Webhooks().Lookup(ctx, webhookID)
		if err != nil {
			return err
		}

		action, err := tx.Actions().Lookup(ctx, webhook.ActionID)
		if err != nil {
			return err
		}

		resolved = &WebhookIdentity{
			OwnerID:    webhook.OwnerID,
			ActionID:   action.ID,
			ActionKey:  action.Key(),
			WorkflowID: webhook.WorkflowID,
			WebhookID:  webhook.ID,
		}

		return nil
	})
	if err != nil {
		if persistence.IsNotFound(err) {
			s.logger.InfoContext(ctx, "unknown webhook", "webhook_id", webhookID)

			return unauthorized, nil
		}

		return nil, classify("authenticate webhook", err)
	}

	err = s.cache.Set(ctx, resolved)
	if err != nil {
		s.logger.WarnContext(ctx, "webhook cache write failed", "webhook_id", webhookID, "error", err)
	}

	return &WebhookAuthResult{Status: WebhookAuthorized, WebhookIdentity: resolved}, nil
}
