package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/zzstoatzz/statuswire/core"
)

// DeliveryStore is the dispatch audit ledger. Rows are inserted pending and
// finalized through the domain transition rules, so a finalized attempt can
// repeat the same outcome but never flip it.
type DeliveryStore struct {
	db   *bun.DB
	repo repository.Repository[*webhookDeliveryRecord]
}

func NewDeliveryStore(db *bun.DB) (*DeliveryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookDeliveryRecord](db, webhookDeliveryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid webhook delivery repository wiring: %w", err)
		}
	}
	return &DeliveryStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *DeliveryStore) Create(ctx context.Context, attempt core.DeliveryAttempt) (core.DeliveryAttempt, error) {
	if s == nil || s.db == nil {
		return core.DeliveryAttempt{}, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	attempt.SubscriptionID = strings.TrimSpace(attempt.SubscriptionID)
	attempt.EventID = strings.TrimSpace(attempt.EventID)
	attempt.EventType = strings.TrimSpace(attempt.EventType)
	if attempt.SubscriptionID == "" {
		return core.DeliveryAttempt{}, fmt.Errorf("sqlstore: delivery subscription id is required")
	}
	if attempt.EventID == "" {
		return core.DeliveryAttempt{}, fmt.Errorf("sqlstore: delivery event id is required")
	}
	now := time.Now().UTC()
	if strings.TrimSpace(attempt.ID) == "" {
		attempt.ID = uuid.NewString()
	}
	if strings.TrimSpace(string(attempt.Status)) == "" {
		attempt.Status = core.DeliveryStatusPending
	}
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = now
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
	if attempt.UpdatedAt.IsZero() {
		attempt.UpdatedAt = now
	}

	record := newWebhookDeliveryRecord(attempt)
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return core.DeliveryAttempt{}, fmt.Errorf("sqlstore: delivery attempt %q already exists", attempt.ID)
		}
		return core.DeliveryAttempt{}, err
	}
	return record.toDomain(), nil
}

func (s *DeliveryStore) RecordOutcome(ctx context.Context, id string, outcome core.DeliveryOutcome) (core.DeliveryAttempt, error) {
	if s == nil || s.db == nil {
		return core.DeliveryAttempt{}, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.DeliveryAttempt{}, fmt.Errorf("sqlstore: delivery id is required")
	}
	completedAt := outcome.CompletedAt.UTC()
	if outcome.CompletedAt.IsZero() {
		completedAt = time.Now().UTC()
	}
	target := core.DeliveryStatusFailed
	if outcome.Success {
		target = core.DeliveryStatusDelivered
	}

	var out core.DeliveryAttempt
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &webhookDeliveryRecord{}
		err := tx.NewSelect().
			Model(record).
			Where("?TableAlias.id = ?", id).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("sqlstore: delivery attempt not found for id %q", id)
			}
			return err
		}

		attempt := record.toDomain()
		if transitionErr := attempt.TransitionTo(target, completedAt); transitionErr != nil {
			return transitionErr
		}
		attempt.Success = outcome.Success
		attempt.ResponseStatus = cloneIntPointer(outcome.ResponseStatus)
		attempt.ResponseBody = outcome.ResponseBody
		attempt.CompletedAt = &completedAt

		updated := newWebhookDeliveryRecord(attempt)
		if _, updateErr := tx.NewUpdate().
			Model(updated).
			Where("id = ?", updated.ID).
			Exec(ctx); updateErr != nil {
			return updateErr
		}
		out = updated.toDomain()
		return nil
	})
	if err != nil {
		return core.DeliveryAttempt{}, err
	}
	return out, nil
}

func (s *DeliveryStore) ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]core.DeliveryAttempt, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return nil, fmt.Errorf("sqlstore: delivery subscription id is required")
	}
	criteria := []repository.SelectCriteria{
		repository.SelectBy("subscription_id", "=", subscriptionID),
		repository.OrderBy("attempted_at DESC"),
	}
	if limit > 0 {
		criteria = append(criteria, repository.SelectPaginate(limit, 0))
	}
	records, _, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, err
	}
	out := make([]core.DeliveryAttempt, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
