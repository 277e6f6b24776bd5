package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/zzstoatzz/statuswire/core"
)

// SubscriptionStore persists webhook subscriptions. Owner-scoped reads run
// through a single owner+id lookup, so a row held by someone else is
// indistinguishable from a row that never existed.
type SubscriptionStore struct {
	db   *bun.DB
	repo repository.Repository[*webhookSubscriptionRecord]
}

func NewSubscriptionStore(db *bun.DB) (*SubscriptionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookSubscriptionRecord](db, webhookSubscriptionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid webhook subscription repository wiring: %w", err)
		}
	}
	return &SubscriptionStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *SubscriptionStore) Create(ctx context.Context, in core.CreateSubscriptionInput) (core.WebhookSubscription, error) {
	if s == nil || s.db == nil {
		return core.WebhookSubscription{}, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	in.OwnerDID = strings.TrimSpace(in.OwnerDID)
	in.URL = strings.TrimSpace(in.URL)
	in.Secret = strings.TrimSpace(in.Secret)
	in.EventFilter = strings.TrimSpace(in.EventFilter)
	if in.OwnerDID == "" {
		return core.WebhookSubscription{}, fmt.Errorf("sqlstore: owner did is required")
	}
	if in.URL == "" {
		return core.WebhookSubscription{}, fmt.Errorf("sqlstore: webhook url is required")
	}
	if in.Secret == "" {
		return core.WebhookSubscription{}, fmt.Errorf("sqlstore: webhook secret is required")
	}

	record := newWebhookSubscriptionRecord(in, time.Now().UTC())
	record.ID = uuid.NewString()
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.WebhookSubscription{}, err
	}
	return record.toDomain(), nil
}

func (s *SubscriptionStore) GetOwned(ctx context.Context, ownerDID string, id string) (core.WebhookSubscription, error) {
	record, err := s.loadOwned(ctx, ownerDID, id)
	if err != nil {
		return core.WebhookSubscription{}, err
	}
	return record.toDomain(), nil
}

func (s *SubscriptionStore) ListByOwner(ctx context.Context, ownerDID string) ([]core.WebhookSubscription, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	ownerDID = strings.TrimSpace(ownerDID)
	if ownerDID == "" {
		return nil, fmt.Errorf("sqlstore: owner did is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("owner_did", "=", ownerDID),
		repository.OrderBy("created_at DESC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.WebhookSubscription, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *SubscriptionStore) Update(ctx context.Context, in core.UpdateSubscriptionInput) (core.WebhookSubscription, error) {
	record, err := s.loadOwned(ctx, in.OwnerDID, in.ID)
	if err != nil {
		return core.WebhookSubscription{}, err
	}
	if in.URL != nil {
		record.URL = strings.TrimSpace(*in.URL)
	}
	if in.EventFilter != nil {
		record.EventFilter = strings.TrimSpace(*in.EventFilter)
	}
	if in.Active != nil {
		record.Active = *in.Active
	}
	record.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, record, repository.UpdateByID(record.ID))
	if err != nil {
		return core.WebhookSubscription{}, err
	}
	return updated.toDomain(), nil
}

func (s *SubscriptionStore) UpdateSecret(ctx context.Context, ownerDID string, id string, secret string) (core.WebhookSubscription, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return core.WebhookSubscription{}, fmt.Errorf("sqlstore: webhook secret is required")
	}
	record, err := s.loadOwned(ctx, ownerDID, id)
	if err != nil {
		return core.WebhookSubscription{}, err
	}
	record.Secret = secret
	record.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, record, repository.UpdateByID(record.ID))
	if err != nil {
		return core.WebhookSubscription{}, err
	}
	return updated.toDomain(), nil
}

func (s *SubscriptionStore) Delete(ctx context.Context, ownerDID string, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: subscription store is not configured")
	}
	ownerDID = strings.TrimSpace(ownerDID)
	id = strings.TrimSpace(id)
	if ownerDID == "" || id == "" {
		return fmt.Errorf("sqlstore: owner did and subscription id are required")
	}
	// No affected-rows check: deleting a missing or foreign row is a no-op.
	_, err := s.db.NewDelete().
		Model((*webhookSubscriptionRecord)(nil)).
		Where("id = ?", id).
		Where("owner_did = ?", ownerDID).
		Exec(ctx)
	return err
}

func (s *SubscriptionStore) MarkDelivery(ctx context.Context, id string, at time.Time, success bool) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: subscription store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("sqlstore: subscription id is required")
	}
	at = at.UTC()
	_, err := s.db.NewUpdate().
		Model((*webhookSubscriptionRecord)(nil)).
		Set("last_delivery_at = ?", at).
		Set("last_delivery_success = ?", success).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (s *SubscriptionStore) loadOwned(ctx context.Context, ownerDID string, id string) (*webhookSubscriptionRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	ownerDID = strings.TrimSpace(ownerDID)
	id = strings.TrimSpace(id)
	if ownerDID == "" || id == "" {
		return nil, fmt.Errorf("sqlstore: owner did and subscription id are required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("id", "=", id),
		repository.SelectBy("owner_did", "=", ownerDID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sqlstore: webhook subscription not found")
	}
	return records[0], nil
}
