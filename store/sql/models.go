package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type statusRecord struct {
	bun.BaseModel `bun:"table:statuses,alias:st"`

	URI       string     `bun:"uri,pk"`
	AuthorDID string     `bun:"author_did,notnull"`
	Status    string     `bun:"status,notnull"`
	Text      string     `bun:"text"`
	StartedAt time.Time  `bun:"started_at,notnull"`
	ExpiresAt *time.Time `bun:"expires_at,nullzero"`
	IndexedAt time.Time  `bun:"indexed_at,notnull"`
	Hidden    bool       `bun:"hidden,notnull,default:false"`
}

type webhookSubscriptionRecord struct {
	bun.BaseModel `bun:"table:webhook_subscriptions,alias:ws"`

	ID                  string     `bun:"id,pk"`
	OwnerDID            string     `bun:"owner_did,notnull"`
	URL                 string     `bun:"url,notnull"`
	Secret              string     `bun:"secret,notnull"`
	EventFilter         string     `bun:"event_filter,notnull"`
	Active              bool       `bun:"active,notnull,default:true"`
	LastDeliveryAt      *time.Time `bun:"last_delivery_at,nullzero"`
	LastDeliverySuccess *bool      `bun:"last_delivery_success"`
	CreatedAt           time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt           time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type webhookDeliveryRecord struct {
	bun.BaseModel `bun:"table:webhook_deliveries,alias:wd"`

	ID             string     `bun:"id,pk"`
	SubscriptionID string     `bun:"subscription_id,notnull"`
	EventID        string     `bun:"event_id,notnull"`
	EventType      string     `bun:"event_type,notnull"`
	Payload        []byte     `bun:"payload"`
	Status         string     `bun:"status,notnull"`
	AttemptedAt    time.Time  `bun:"attempted_at,notnull"`
	CompletedAt    *time.Time `bun:"completed_at,nullzero"`
	ResponseStatus *int       `bun:"response_status"`
	ResponseBody   string     `bun:"response_body"`
	Success        bool       `bun:"success,notnull,default:false"`
	RetryCount     int        `bun:"retry_count,notnull,default:0"`
	NextRetryAt    *time.Time `bun:"next_retry_at,nullzero"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
