package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusStore persists the materialized view. Upsert is a full replace keyed
// by URI and reports whether a new row was inserted. DeleteByURI on an absent
// row is a successful no-op.
type StatusStore interface {
	Upsert(ctx context.Context, record StatusRecord) (StatusRecord, bool, error)
	GetByURI(ctx context.Context, uri string) (StatusRecord, error)
	DeleteByURI(ctx context.Context, uri string) error
	SetHidden(ctx context.Context, uri string, hidden bool) error
	ListByAuthor(ctx context.Context, did string, limit int) ([]StatusRecord, error)
	ListRecent(ctx context.Context, limit int) ([]StatusRecord, error)
}

type CreateSubscriptionInput struct {
	OwnerDID    string
	URL         string
	Secret      string
	EventFilter string
	Active      bool
}

type UpdateSubscriptionInput struct {
	OwnerDID    string
	ID          string
	URL         *string
	EventFilter *string
	Active      *bool
}

// SubscriptionStore persists webhook subscriptions. Owner-scoped lookups
// must not reveal whether a row exists under a different owner: GetOwned and
// Update report not-found for rows the owner does not hold, and Delete treats
// them as an idempotent no-op.
type SubscriptionStore interface {
	Create(ctx context.Context, in CreateSubscriptionInput) (WebhookSubscription, error)
	GetOwned(ctx context.Context, ownerDID string, id string) (WebhookSubscription, error)
	ListByOwner(ctx context.Context, ownerDID string) ([]WebhookSubscription, error)
	Update(ctx context.Context, in UpdateSubscriptionInput) (WebhookSubscription, error)
	UpdateSecret(ctx context.Context, ownerDID string, id string, secret string) (WebhookSubscription, error)
	Delete(ctx context.Context, ownerDID string, id string) error
	MarkDelivery(ctx context.Context, id string, at time.Time, success bool) error
}

type DeliveryOutcome struct {
	Success        bool
	ResponseStatus *int
	ResponseBody   string
	CompletedAt    time.Time
}

// DeliveryStore is the audit ledger: one row per dispatch attempt, created
// pending before the network call and finalized exactly once.
type DeliveryStore interface {
	Create(ctx context.Context, attempt DeliveryAttempt) (DeliveryAttempt, error)
	RecordOutcome(ctx context.Context, id string, outcome DeliveryOutcome) (DeliveryAttempt, error)
	ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]DeliveryAttempt, error)
}

type StoreProvider interface {
	StatusStore() StatusStore
	SubscriptionStore() SubscriptionStore
	DeliveryStore() DeliveryStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

// DeliveryRequest carries everything one webhook POST needs. Timeout is
// already clamped by the dispatcher.
type DeliveryRequest struct {
	URL       string
	Secret    string
	EventID   string
	EventType string
	Payload   []byte
	Timestamp time.Time
	Timeout   time.Duration
}

// DeliveryResult records what happened. A failed POST is an outcome to
// persist, not an error to propagate; Error carries the transport cause when
// no HTTP response was obtained.
type DeliveryResult struct {
	Success    bool
	StatusCode *int
	Body       string
	Error      string
	Duration   time.Duration
}

type DeliverySender interface {
	Send(ctx context.Context, req DeliveryRequest) DeliveryResult
}

// HandleResolver maps a did to its current handle. Implementations should
// cache; the dispatcher calls this on the hot path when the event carries no
// handle.
type HandleResolver interface {
	ResolveHandle(ctx context.Context, did string) (string, error)
}

type DispatchMessage struct {
	EventID    string
	OwnerDID   string
	Event      WebhookEvent
	EnqueuedAt time.Time
}

type DispatchNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type DispatchEnqueuer interface {
	Enqueue(ctx context.Context, msg *DispatchMessage) error
}

type DispatchDelivery interface {
	Message() *DispatchMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts DispatchNackOptions) error
}

type DispatchDequeuer interface {
	Dequeue(ctx context.Context) (DispatchDelivery, error)
}

type DispatchWorkerHook interface {
	OnStart(ctx context.Context, event DispatchWorkerEvent)
	OnSuccess(ctx context.Context, event DispatchWorkerEvent)
	OnFailure(ctx context.Context, event DispatchWorkerEvent)
	OnRetry(ctx context.Context, event DispatchWorkerEvent)
}

type DispatchWorkerEvent struct {
	Message   *DispatchMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type SetStatusInput struct {
	AuthorDID string
	RKey      string
	Handle    string
	Status    string
	Text      string
	StartedAt time.Time
	ExpiresAt *time.Time
}

type CreateWebhookInput struct {
	OwnerDID    string
	URL         string
	Secret      string
	EventFilter string
}

type UpdateWebhookInput struct {
	OwnerDID    string
	ID          string
	URL         *string
	EventFilter *string
	Active      *bool
}

type DispatchReport struct {
	EventID   string
	EventType string
	Matched   int
	Delivered int
	Failed    int
}

// StatusService is the full operation surface exposed through the command
// and query buses and the HTTP transport.
type StatusService interface {
	SetStatus(ctx context.Context, in SetStatusInput) (StatusRecord, error)
	ClearStatus(ctx context.Context, did string, uri string) error
	HideStatus(ctx context.Context, uri string, hidden bool) error
	GetStatus(ctx context.Context, uri string) (StatusRecord, error)
	ListAuthorStatuses(ctx context.Context, did string, limit int) ([]StatusRecord, error)
	ListRecentStatuses(ctx context.Context, limit int) ([]StatusRecord, error)

	CreateWebhook(ctx context.Context, in CreateWebhookInput) (WebhookSubscription, string, error)
	UpdateWebhook(ctx context.Context, in UpdateWebhookInput) (WebhookSubscription, error)
	RotateWebhookSecret(ctx context.Context, ownerDID string, id string) (WebhookSubscription, string, error)
	DeleteWebhook(ctx context.Context, ownerDID string, id string) error
	ListWebhooks(ctx context.Context, ownerDID string) ([]WebhookSubscription, error)
	RecentDeliveries(ctx context.Context, ownerDID string, id string, limit int) ([]DeliveryAttempt, error)
	SendTestEvent(ctx context.Context, ownerDID string, id string) (DeliveryAttempt, error)
}
