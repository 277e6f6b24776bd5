package sqlstore

import (
	"time"

	"github.com/zzstoatzz/statuswire/core"
)

func newStatusRecord(in core.StatusRecord) *statusRecord {
	return &statusRecord{
		URI:       in.URI,
		AuthorDID: in.AuthorDID,
		Status:    in.Status,
		Text:      in.Text,
		StartedAt: in.StartedAt.UTC(),
		ExpiresAt: cloneTimePointer(in.ExpiresAt),
		IndexedAt: in.IndexedAt.UTC(),
		Hidden:    in.Hidden,
	}
}

func (r *statusRecord) toDomain() core.StatusRecord {
	if r == nil {
		return core.StatusRecord{}
	}
	return core.StatusRecord{
		URI:       r.URI,
		AuthorDID: r.AuthorDID,
		Status:    r.Status,
		Text:      r.Text,
		StartedAt: r.StartedAt,
		ExpiresAt: cloneTimePointer(r.ExpiresAt),
		IndexedAt: r.IndexedAt,
		Hidden:    r.Hidden,
	}
}

func newWebhookSubscriptionRecord(in core.CreateSubscriptionInput, now time.Time) *webhookSubscriptionRecord {
	return &webhookSubscriptionRecord{
		OwnerDID:    in.OwnerDID,
		URL:         in.URL,
		Secret:      in.Secret,
		EventFilter: in.EventFilter,
		Active:      in.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (r *webhookSubscriptionRecord) toDomain() core.WebhookSubscription {
	if r == nil {
		return core.WebhookSubscription{}
	}
	return core.WebhookSubscription{
		ID:                  r.ID,
		OwnerDID:            r.OwnerDID,
		URL:                 r.URL,
		Secret:              r.Secret,
		EventFilter:         r.EventFilter,
		Active:              r.Active,
		LastDeliveryAt:      cloneTimePointer(r.LastDeliveryAt),
		LastDeliverySuccess: cloneBoolPointer(r.LastDeliverySuccess),
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func newWebhookDeliveryRecord(in core.DeliveryAttempt) *webhookDeliveryRecord {
	return &webhookDeliveryRecord{
		ID:             in.ID,
		SubscriptionID: in.SubscriptionID,
		EventID:        in.EventID,
		EventType:      in.EventType,
		Payload:        append([]byte(nil), in.Payload...),
		Status:         string(in.Status),
		AttemptedAt:    in.AttemptedAt.UTC(),
		CompletedAt:    cloneTimePointer(in.CompletedAt),
		ResponseStatus: cloneIntPointer(in.ResponseStatus),
		ResponseBody:   in.ResponseBody,
		Success:        in.Success,
		RetryCount:     in.RetryCount,
		NextRetryAt:    cloneTimePointer(in.NextRetryAt),
		CreatedAt:      in.CreatedAt,
		UpdatedAt:      in.UpdatedAt,
	}
}

func (r *webhookDeliveryRecord) toDomain() core.DeliveryAttempt {
	if r == nil {
		return core.DeliveryAttempt{}
	}
	return core.DeliveryAttempt{
		ID:             r.ID,
		SubscriptionID: r.SubscriptionID,
		EventID:        r.EventID,
		EventType:      r.EventType,
		Payload:        append([]byte(nil), r.Payload...),
		Status:         core.DeliveryStatus(r.Status),
		AttemptedAt:    r.AttemptedAt,
		CompletedAt:    cloneTimePointer(r.CompletedAt),
		ResponseStatus: cloneIntPointer(r.ResponseStatus),
		ResponseBody:   r.ResponseBody,
		Success:        r.Success,
		RetryCount:     r.RetryCount,
		NextRetryAt:    cloneTimePointer(r.NextRetryAt),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func cloneTimePointer(input *time.Time) *time.Time {
	if input == nil {
		return nil
	}
	value := input.UTC()
	return &value
}

func cloneIntPointer(input *int) *int {
	if input == nil {
		return nil
	}
	value := *input
	return &value
}

func cloneBoolPointer(input *bool) *bool {
	if input == nil {
		return nil
	}
	value := *input
	return &value
}
