package query

import (
	"strings"
)

const (
	TypeGetStatus          = "statuswire.query.status.get"
	TypeListAuthorStatuses = "statuswire.query.status.list_author"
	TypeListRecentStatuses = "statuswire.query.status.list_recent"
	TypeListWebhooks       = "statuswire.query.webhook.list"
	TypeRecentDeliveries   = "statuswire.query.webhook.deliveries"
	TypeResolveHandle      = "statuswire.query.identity.resolve_handle"
)

type GetStatusMessage struct {
	URI string
}

func (GetStatusMessage) Type() string { return TypeGetStatus }

func (m GetStatusMessage) Validate() error {
	if strings.TrimSpace(m.URI) == "" {
		return queryValidationError("uri", "record uri is required")
	}
	return nil
}

type ListAuthorStatusesMessage struct {
	AuthorDID string
	Limit     int
}

func (ListAuthorStatusesMessage) Type() string { return TypeListAuthorStatuses }

func (m ListAuthorStatusesMessage) Validate() error {
	if strings.TrimSpace(m.AuthorDID) == "" {
		return queryValidationError("author_did", "author did is required")
	}
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	return nil
}

type ListRecentStatusesMessage struct {
	Limit int
}

func (ListRecentStatusesMessage) Type() string { return TypeListRecentStatuses }

func (m ListRecentStatusesMessage) Validate() error {
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	return nil
}

type ListWebhooksMessage struct {
	OwnerDID string
}

func (ListWebhooksMessage) Type() string { return TypeListWebhooks }

func (m ListWebhooksMessage) Validate() error {
	if strings.TrimSpace(m.OwnerDID) == "" {
		return queryValidationError("owner_did", "owner did is required")
	}
	return nil
}

type RecentDeliveriesMessage struct {
	OwnerDID string
	ID       string
	Limit    int
}

func (RecentDeliveriesMessage) Type() string { return TypeRecentDeliveries }

func (m RecentDeliveriesMessage) Validate() error {
	if strings.TrimSpace(m.OwnerDID) == "" {
		return queryValidationError("owner_did", "owner did is required")
	}
	if strings.TrimSpace(m.ID) == "" {
		return queryValidationError("id", "subscription id is required")
	}
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	return nil
}

type ResolveHandleMessage struct {
	DID string
}

func (ResolveHandleMessage) Type() string { return TypeResolveHandle }

func (m ResolveHandleMessage) Validate() error {
	if strings.TrimSpace(m.DID) == "" {
		return queryValidationError("did", "did is required")
	}
	return nil
}
