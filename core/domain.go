package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidRecordURI                = errors.New("core: invalid record uri")
	ErrInvalidDeliveryStatusTransition = errors.New("core: invalid delivery status transition")
	ErrUnknownEventType                = errors.New("core: unknown event type")
)

// URIScheme prefixes every record URI in the observed network.
const URIScheme = "at"

// StatusCollectionNSID is the record collection this service materializes.
const StatusCollectionNSID = "io.zzstoatzz.status.record"

// WebhookEventSchema tags every wire payload this version emits.
const WebhookEventSchema = "status-webhook.v1"

const (
	EventStatusCreated = "status.created"
	EventStatusUpdated = "status.updated"
	EventStatusDeleted = "status.deleted"
	EventStatusCleared = "status.cleared"
)

// EventFilterWildcard matches every event type. An empty filter behaves the
// same way.
const EventFilterWildcard = "*"

func KnownEventTypes() []string {
	return []string{
		EventStatusCreated,
		EventStatusUpdated,
		EventStatusDeleted,
		EventStatusCleared,
	}
}

func IsKnownEventType(eventType string) bool {
	normalized := strings.TrimSpace(strings.ToLower(eventType))
	for _, known := range KnownEventTypes() {
		if normalized == known {
			return true
		}
	}
	return false
}

// MakeRecordURI reconstructs the canonical resource identity for a record:
// at://<did>/<collection>/<rkey>. Every segment is required.
func MakeRecordURI(did string, collection string, rkey string) (string, error) {
	did = strings.TrimSpace(did)
	collection = strings.TrimSpace(collection)
	rkey = strings.TrimSpace(rkey)
	if did == "" {
		return "", fmt.Errorf("%w: author did is required", ErrInvalidRecordURI)
	}
	if collection == "" {
		return "", fmt.Errorf("%w: collection is required", ErrInvalidRecordURI)
	}
	if rkey == "" {
		return "", fmt.Errorf("%w: record key is required", ErrInvalidRecordURI)
	}
	return URIScheme + "://" + did + "/" + collection + "/" + rkey, nil
}

// RecordURIAuthor extracts the author did segment from a record URI.
func RecordURIAuthor(uri string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(uri), URIScheme+"://")
	if trimmed == strings.TrimSpace(uri) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecordURI, uri)
	}
	parts := strings.SplitN(trimmed, "/", 3)
	if len(parts) != 3 || strings.TrimSpace(parts[0]) == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecordURI, uri)
	}
	return parts[0], nil
}

// StatusRecord is one row of the materialized view. The URI is the sole
// identity; upserting by URI is a full replace, never a merge, because the
// firehose may redeliver or reorder events.
type StatusRecord struct {
	URI       string
	AuthorDID string
	Status    string
	Text      string
	StartedAt time.Time
	ExpiresAt *time.Time
	IndexedAt time.Time
	Hidden    bool
}

func (r StatusRecord) Expired(now time.Time) bool {
	if r.ExpiresAt == nil {
		return false
	}
	return r.ExpiresAt.UTC().Before(now.UTC())
}

// WebhookSubscription is one owner-scoped delivery target. Secret holds the
// HMAC key material; reads outside create/rotate must mask it.
type WebhookSubscription struct {
	ID                  string
	OwnerDID            string
	URL                 string
	Secret              string
	EventFilter         string
	Active              bool
	LastDeliveryAt      *time.Time
	LastDeliverySuccess *bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// WantsEvent reports whether an active subscription's filter matches the
// event type. A wildcard or empty filter matches everything; otherwise the
// filter is a comma list and membership is case-insensitive.
func (s WebhookSubscription) WantsEvent(eventType string) bool {
	if !s.Active {
		return false
	}
	return FilterMatches(s.EventFilter, eventType)
}

func FilterMatches(filter string, eventType string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" || filter == EventFilterWildcard {
		return true
	}
	want := strings.TrimSpace(strings.ToLower(eventType))
	for _, token := range strings.Split(filter, ",") {
		if strings.TrimSpace(strings.ToLower(token)) == want {
			return true
		}
	}
	return false
}

// NormalizeEventFilter validates a filter against the fixed vocabulary and
// returns it in canonical lowercase comma form. Unknown tokens are rejected.
func NormalizeEventFilter(filter string) (string, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" || filter == EventFilterWildcard {
		return EventFilterWildcard, nil
	}
	tokens := strings.Split(filter, ",")
	normalized := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(strings.ToLower(token))
		if token == "" {
			continue
		}
		if !IsKnownEventType(token) {
			return "", fmt.Errorf("%w: %q", ErrUnknownEventType, token)
		}
		normalized = append(normalized, token)
	}
	if len(normalized) == 0 {
		return EventFilterWildcard, nil
	}
	return strings.Join(normalized, ","), nil
}

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// DeliveryAttempt is one ledger row: created before the network call,
// updated exactly once with the outcome, never deleted.
type DeliveryAttempt struct {
	ID             string
	SubscriptionID string
	EventID        string
	EventType      string
	Payload        []byte
	Status         DeliveryStatus
	AttemptedAt    time.Time
	CompletedAt    *time.Time
	ResponseStatus *int
	ResponseBody   string
	Success        bool
	RetryCount     int
	NextRetryAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a *DeliveryAttempt) TransitionTo(status DeliveryStatus, now time.Time) error {
	if a == nil {
		return nil
	}
	if a.Status == status {
		a.UpdatedAt = now
		return nil
	}
	if !deliveryTransitionAllowed(a.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidDeliveryStatusTransition, a.Status, status)
	}
	a.Status = status
	a.UpdatedAt = now
	return nil
}

func deliveryTransitionAllowed(current, next DeliveryStatus) bool {
	allowed := map[DeliveryStatus]map[DeliveryStatus]struct{}{
		DeliveryStatusPending: {
			DeliveryStatusDelivered: {},
			DeliveryStatusFailed:    {},
		},
		DeliveryStatusDelivered: {},
		DeliveryStatusFailed:    {},
	}
	_, ok := allowed[current][next]
	return ok
}

// WebhookEvent is the wire payload POSTed to subscribers. Field names and
// the schema tag are part of the published contract and must not drift.
type WebhookEvent struct {
	Type      string     `json:"type"`
	UserDID   string     `json:"user_did"`
	Handle    string     `json:"handle,omitempty"`
	Emoji     string     `json:"emoji"`
	Text      string     `json:"text,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	StatusURI string     `json:"status_uri"`
	Timestamp time.Time  `json:"timestamp"`
	EventID   string     `json:"event_id"`
	Schema    string     `json:"schema"`
}

func (e WebhookEvent) Validate() error {
	if !IsKnownEventType(e.Type) {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, e.Type)
	}
	if strings.TrimSpace(e.UserDID) == "" {
		return fmt.Errorf("core: event user did is required")
	}
	if strings.TrimSpace(e.EventID) == "" {
		return fmt.Errorf("core: event id is required")
	}
	return nil
}
