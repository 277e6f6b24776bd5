package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/zzstoatzz/statuswire/core"
)

// MutatingService is the write half of the status service. Commands carry
// the caller's identity inside the message so handlers stay stateless.
type MutatingService interface {
	SetStatus(ctx context.Context, in core.SetStatusInput) (core.StatusRecord, error)
	ClearStatus(ctx context.Context, did string, uri string) error
	HideStatus(ctx context.Context, uri string, hidden bool) error
	CreateWebhook(ctx context.Context, in core.CreateWebhookInput) (core.WebhookSubscription, string, error)
	UpdateWebhook(ctx context.Context, in core.UpdateWebhookInput) (core.WebhookSubscription, error)
	RotateWebhookSecret(ctx context.Context, ownerDID string, id string) (core.WebhookSubscription, string, error)
	DeleteWebhook(ctx context.Context, ownerDID string, id string) error
	SendTestEvent(ctx context.Context, ownerDID string, id string) (core.DeliveryAttempt, error)
}

// WebhookWithSecret pairs a masked subscription with the one-time plaintext
// secret. It is the stored result of create and rotate commands; the secret
// never appears on any later read.
type WebhookWithSecret struct {
	Subscription core.WebhookSubscription
	Secret       string
}

type SetStatusCommand struct {
	service MutatingService
}

func NewSetStatusCommand(service MutatingService) *SetStatusCommand {
	return &SetStatusCommand{service: service}
}

func (c *SetStatusCommand) Execute(ctx context.Context, msg SetStatusMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: status service is required")
	}
	out, err := c.service.SetStatus(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ClearStatusCommand struct {
	service MutatingService
}

func NewClearStatusCommand(service MutatingService) *ClearStatusCommand {
	return &ClearStatusCommand{service: service}
}

func (c *ClearStatusCommand) Execute(ctx context.Context, msg ClearStatusMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: status service is required")
	}
	return c.service.ClearStatus(ctx, msg.AuthorDID, msg.URI)
}

type HideStatusCommand struct {
	service MutatingService
}

func NewHideStatusCommand(service MutatingService) *HideStatusCommand {
	return &HideStatusCommand{service: service}
}

func (c *HideStatusCommand) Execute(ctx context.Context, msg HideStatusMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: status service is required")
	}
	return c.service.HideStatus(ctx, msg.URI, msg.Hidden)
}

type CreateWebhookCommand struct {
	service MutatingService
}

func NewCreateWebhookCommand(service MutatingService) *CreateWebhookCommand {
	return &CreateWebhookCommand{service: service}
}

func (c *CreateWebhookCommand) Execute(ctx context.Context, msg CreateWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook service is required")
	}
	sub, secret, err := c.service.CreateWebhook(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, WebhookWithSecret{Subscription: sub, Secret: secret})
	return nil
}

type UpdateWebhookCommand struct {
	service MutatingService
}

func NewUpdateWebhookCommand(service MutatingService) *UpdateWebhookCommand {
	return &UpdateWebhookCommand{service: service}
}

func (c *UpdateWebhookCommand) Execute(ctx context.Context, msg UpdateWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook service is required")
	}
	out, err := c.service.UpdateWebhook(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RotateWebhookSecretCommand struct {
	service MutatingService
}

func NewRotateWebhookSecretCommand(service MutatingService) *RotateWebhookSecretCommand {
	return &RotateWebhookSecretCommand{service: service}
}

func (c *RotateWebhookSecretCommand) Execute(ctx context.Context, msg RotateWebhookSecretMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook service is required")
	}
	sub, secret, err := c.service.RotateWebhookSecret(ctx, msg.OwnerDID, msg.ID)
	if err != nil {
		return err
	}
	storeResult(ctx, WebhookWithSecret{Subscription: sub, Secret: secret})
	return nil
}

type DeleteWebhookCommand struct {
	service MutatingService
}

func NewDeleteWebhookCommand(service MutatingService) *DeleteWebhookCommand {
	return &DeleteWebhookCommand{service: service}
}

func (c *DeleteWebhookCommand) Execute(ctx context.Context, msg DeleteWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook service is required")
	}
	return c.service.DeleteWebhook(ctx, msg.OwnerDID, msg.ID)
}

type SendTestEventCommand struct {
	service MutatingService
}

func NewSendTestEventCommand(service MutatingService) *SendTestEventCommand {
	return &SendTestEventCommand{service: service}
}

func (c *SendTestEventCommand) Execute(ctx context.Context, msg SendTestEventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook service is required")
	}
	out, err := c.service.SendTestEvent(ctx, msg.OwnerDID, msg.ID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
