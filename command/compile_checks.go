package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[SetStatusMessage]           = (*SetStatusCommand)(nil)
	_ gocmd.Commander[ClearStatusMessage]         = (*ClearStatusCommand)(nil)
	_ gocmd.Commander[HideStatusMessage]          = (*HideStatusCommand)(nil)
	_ gocmd.Commander[CreateWebhookMessage]       = (*CreateWebhookCommand)(nil)
	_ gocmd.Commander[UpdateWebhookMessage]       = (*UpdateWebhookCommand)(nil)
	_ gocmd.Commander[RotateWebhookSecretMessage] = (*RotateWebhookSecretCommand)(nil)
	_ gocmd.Commander[DeleteWebhookMessage]       = (*DeleteWebhookCommand)(nil)
	_ gocmd.Commander[SendTestEventMessage]       = (*SendTestEventCommand)(nil)
)
