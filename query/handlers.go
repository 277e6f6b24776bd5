package query

import (
	"context"

	"github.com/zzstoatzz/statuswire/core"
)

// StatusReader is the feed side of the status service. Hidden records are
// already filtered by the reads these delegate to.
type StatusReader interface {
	GetStatus(ctx context.Context, uri string) (core.StatusRecord, error)
	ListAuthorStatuses(ctx context.Context, did string, limit int) ([]core.StatusRecord, error)
	ListRecentStatuses(ctx context.Context, limit int) ([]core.StatusRecord, error)
}

type WebhookReader interface {
	ListWebhooks(ctx context.Context, ownerDID string) ([]core.WebhookSubscription, error)
	RecentDeliveries(ctx context.Context, ownerDID string, id string, limit int) ([]core.DeliveryAttempt, error)
}

type HandleReader interface {
	ResolveHandle(ctx context.Context, did string) (string, error)
}

type GetStatusQuery struct {
	reader StatusReader
}

func NewGetStatusQuery(reader StatusReader) *GetStatusQuery {
	return &GetStatusQuery{reader: reader}
}

func (q *GetStatusQuery) Query(ctx context.Context, msg GetStatusMessage) (core.StatusRecord, error) {
	if q == nil || q.reader == nil {
		return core.StatusRecord{}, queryDependencyError("query: status reader is required")
	}
	return q.reader.GetStatus(ctx, msg.URI)
}

type ListAuthorStatusesQuery struct {
	reader StatusReader
}

func NewListAuthorStatusesQuery(reader StatusReader) *ListAuthorStatusesQuery {
	return &ListAuthorStatusesQuery{reader: reader}
}

func (q *ListAuthorStatusesQuery) Query(
	ctx context.Context,
	msg ListAuthorStatusesMessage,
) ([]core.StatusRecord, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: status reader is required")
	}
	return q.reader.ListAuthorStatuses(ctx, msg.AuthorDID, msg.Limit)
}

type ListRecentStatusesQuery struct {
	reader StatusReader
}

func NewListRecentStatusesQuery(reader StatusReader) *ListRecentStatusesQuery {
	return &ListRecentStatusesQuery{reader: reader}
}

func (q *ListRecentStatusesQuery) Query(
	ctx context.Context,
	msg ListRecentStatusesMessage,
) ([]core.StatusRecord, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: status reader is required")
	}
	return q.reader.ListRecentStatuses(ctx, msg.Limit)
}

type ListWebhooksQuery struct {
	reader WebhookReader
}

func NewListWebhooksQuery(reader WebhookReader) *ListWebhooksQuery {
	return &ListWebhooksQuery{reader: reader}
}

func (q *ListWebhooksQuery) Query(
	ctx context.Context,
	msg ListWebhooksMessage,
) ([]core.WebhookSubscription, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: webhook reader is required")
	}
	return q.reader.ListWebhooks(ctx, msg.OwnerDID)
}

type RecentDeliveriesQuery struct {
	reader WebhookReader
}

func NewRecentDeliveriesQuery(reader WebhookReader) *RecentDeliveriesQuery {
	return &RecentDeliveriesQuery{reader: reader}
}

func (q *RecentDeliveriesQuery) Query(
	ctx context.Context,
	msg RecentDeliveriesMessage,
) ([]core.DeliveryAttempt, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: webhook reader is required")
	}
	return q.reader.RecentDeliveries(ctx, msg.OwnerDID, msg.ID, msg.Limit)
}

type ResolveHandleQuery struct {
	reader HandleReader
}

func NewResolveHandleQuery(reader HandleReader) *ResolveHandleQuery {
	return &ResolveHandleQuery{reader: reader}
}

func (q *ResolveHandleQuery) Query(ctx context.Context, msg ResolveHandleMessage) (string, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: handle reader is required")
	}
	return q.reader.ResolveHandle(ctx, msg.DID)
}
