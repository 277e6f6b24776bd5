package command

import (
	"strings"

	"github.com/zzstoatzz/statuswire/core"
)

const (
	TypeSetStatus           = "statuswire.command.status.set"
	TypeClearStatus         = "statuswire.command.status.clear"
	TypeHideStatus          = "statuswire.command.status.hide"
	TypeCreateWebhook       = "statuswire.command.webhook.create"
	TypeUpdateWebhook       = "statuswire.command.webhook.update"
	TypeRotateWebhookSecret = "statuswire.command.webhook.rotate_secret"
	TypeDeleteWebhook       = "statuswire.command.webhook.delete"
	TypeSendTestEvent       = "statuswire.command.webhook.send_test"
)

type SetStatusMessage struct {
	Input core.SetStatusInput
}

func (SetStatusMessage) Type() string { return TypeSetStatus }

func (m SetStatusMessage) Validate() error {
	if strings.TrimSpace(m.Input.AuthorDID) == "" {
		return commandValidationError("author_did", "author did is required")
	}
	if strings.TrimSpace(m.Input.RKey) == "" {
		return commandValidationError("rkey", "record rkey is required")
	}
	if strings.TrimSpace(m.Input.Status) == "" {
		return commandValidationError("status", "status emoji is required")
	}
	return nil
}

type ClearStatusMessage struct {
	AuthorDID string
	URI       string
}

func (ClearStatusMessage) Type() string { return TypeClearStatus }

func (m ClearStatusMessage) Validate() error {
	if strings.TrimSpace(m.AuthorDID) == "" {
		return commandValidationError("author_did", "author did is required")
	}
	if strings.TrimSpace(m.URI) == "" {
		return commandValidationError("uri", "record uri is required")
	}
	return nil
}

type HideStatusMessage struct {
	URI    string
	Hidden bool
}

func (HideStatusMessage) Type() string { return TypeHideStatus }

func (m HideStatusMessage) Validate() error {
	if strings.TrimSpace(m.URI) == "" {
		return commandValidationError("uri", "record uri is required")
	}
	return nil
}

type CreateWebhookMessage struct {
	Input core.CreateWebhookInput
}

func (CreateWebhookMessage) Type() string { return TypeCreateWebhook }

func (m CreateWebhookMessage) Validate() error {
	if strings.TrimSpace(m.Input.OwnerDID) == "" {
		return commandValidationError("owner_did", "owner did is required")
	}
	if strings.TrimSpace(m.Input.URL) == "" {
		return commandValidationError("url", "webhook url is required")
	}
	return nil
}

type UpdateWebhookMessage struct {
	Input core.UpdateWebhookInput
}

func (UpdateWebhookMessage) Type() string { return TypeUpdateWebhook }

func (m UpdateWebhookMessage) Validate() error {
	if strings.TrimSpace(m.Input.OwnerDID) == "" {
		return commandValidationError("owner_did", "owner did is required")
	}
	if strings.TrimSpace(m.Input.ID) == "" {
		return commandValidationError("id", "subscription id is required")
	}
	if m.Input.URL == nil && m.Input.EventFilter == nil && m.Input.Active == nil {
		return commandValidationError("input", "at least one field must change")
	}
	return nil
}

type RotateWebhookSecretMessage struct {
	OwnerDID string
	ID       string
}

func (RotateWebhookSecretMessage) Type() string { return TypeRotateWebhookSecret }

func (m RotateWebhookSecretMessage) Validate() error {
	if strings.TrimSpace(m.OwnerDID) == "" {
		return commandValidationError("owner_did", "owner did is required")
	}
	if strings.TrimSpace(m.ID) == "" {
		return commandValidationError("id", "subscription id is required")
	}
	return nil
}

type DeleteWebhookMessage struct {
	OwnerDID string
	ID       string
}

func (DeleteWebhookMessage) Type() string { return TypeDeleteWebhook }

func (m DeleteWebhookMessage) Validate() error {
	if strings.TrimSpace(m.OwnerDID) == "" {
		return commandValidationError("owner_did", "owner did is required")
	}
	if strings.TrimSpace(m.ID) == "" {
		return commandValidationError("id", "subscription id is required")
	}
	return nil
}

type SendTestEventMessage struct {
	OwnerDID string
	ID       string
}

func (SendTestEventMessage) Type() string { return TypeSendTestEvent }

func (m SendTestEventMessage) Validate() error {
	if strings.TrimSpace(m.OwnerDID) == "" {
		return commandValidationError("owner_did", "owner did is required")
	}
	if strings.TrimSpace(m.ID) == "" {
		return commandValidationError("id", "subscription id is required")
	}
	return nil
}
