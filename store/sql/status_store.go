package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/zzstoatzz/statuswire/core"
)

// StatusStore persists the materialized status view on bun. Rows are keyed
// by record URI, so it drives raw bun queries instead of the uuid-keyed
// repository helpers the other stores use.
type StatusStore struct {
	db *bun.DB
}

func NewStatusStore(db *bun.DB) (*StatusStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &StatusStore{db: db}, nil
}

func (s *StatusStore) Upsert(ctx context.Context, record core.StatusRecord) (core.StatusRecord, bool, error) {
	if s == nil || s.db == nil {
		return core.StatusRecord{}, false, fmt.Errorf("sqlstore: status store is not configured")
	}
	record.URI = strings.TrimSpace(record.URI)
	record.AuthorDID = strings.TrimSpace(record.AuthorDID)
	if record.URI == "" {
		return core.StatusRecord{}, false, fmt.Errorf("sqlstore: status record uri is required")
	}
	if record.AuthorDID == "" {
		return core.StatusRecord{}, false, fmt.Errorf("sqlstore: status record author did is required")
	}

	row := newStatusRecord(record)
	var inserted bool
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, existsErr := tx.NewSelect().
			Model((*statusRecord)(nil)).
			Where("?TableAlias.uri = ?", row.URI).
			Exists(ctx)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			if _, insertErr := tx.NewInsert().Model(row).Exec(ctx); insertErr != nil {
				return insertErr
			}
			inserted = true
			return nil
		}
		// Full replace: redelivered and reordered commits must leave the row
		// exactly as if the latest event were the only one ever applied.
		_, updateErr := tx.NewUpdate().
			Model(row).
			Where("uri = ?", row.URI).
			Exec(ctx)
		return updateErr
	})
	if err != nil {
		return core.StatusRecord{}, false, err
	}
	return row.toDomain(), inserted, nil
}

func (s *StatusStore) GetByURI(ctx context.Context, uri string) (core.StatusRecord, error) {
	if s == nil || s.db == nil {
		return core.StatusRecord{}, fmt.Errorf("sqlstore: status store is not configured")
	}
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return core.StatusRecord{}, fmt.Errorf("sqlstore: status record uri is required")
	}
	record := &statusRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.uri = ?", uri).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.StatusRecord{}, fmt.Errorf("sqlstore: status record not found for uri %q", uri)
		}
		return core.StatusRecord{}, err
	}
	return record.toDomain(), nil
}

func (s *StatusStore) DeleteByURI(ctx context.Context, uri string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: status store is not configured")
	}
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return fmt.Errorf("sqlstore: status record uri is required")
	}
	_, err := s.db.NewDelete().
		Model((*statusRecord)(nil)).
		Where("uri = ?", uri).
		Exec(ctx)
	return err
}

func (s *StatusStore) SetHidden(ctx context.Context, uri string, hidden bool) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: status store is not configured")
	}
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return fmt.Errorf("sqlstore: status record uri is required")
	}
	result, err := s.db.NewUpdate().
		Model((*statusRecord)(nil)).
		Set("hidden = ?", hidden).
		Where("uri = ?", uri).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("sqlstore: status record not found for uri %q", uri)
	}
	return nil
}

func (s *StatusStore) ListByAuthor(ctx context.Context, did string, limit int) ([]core.StatusRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: status store is not configured")
	}
	did = strings.TrimSpace(did)
	if did == "" {
		return nil, fmt.Errorf("sqlstore: author did is required")
	}
	records := []*statusRecord{}
	query := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.author_did = ?", did).
		Where("?TableAlias.hidden = ?", false).
		OrderExpr("?TableAlias.indexed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return statusesToDomain(records), nil
}

func (s *StatusStore) ListRecent(ctx context.Context, limit int) ([]core.StatusRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: status store is not configured")
	}
	records := []*statusRecord{}
	query := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.hidden = ?", false).
		OrderExpr("?TableAlias.indexed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return statusesToDomain(records), nil
}

func statusesToDomain(records []*statusRecord) []core.StatusRecord {
	out := make([]core.StatusRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out
}
