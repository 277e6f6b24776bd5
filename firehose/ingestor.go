package firehose

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zzstoatzz/statuswire/core"
)

// StatusIngestor materializes io.zzstoatzz.status.record commits. Creates and
// updates are the same operation locally: a full replace keyed by URI, so
// redelivery and reorder converge to one stored row. Deletes of absent rows
// are successful no-ops. The ingestor only writes the view; it never feeds
// the dispatcher, so a subscriber is not notified about the echo of a write
// that already notified them.
type StatusIngestor struct {
	Store core.StatusStore
	Now   func() time.Time
}

func NewStatusIngestor(store core.StatusStore) *StatusIngestor {
	return &StatusIngestor{
		Store: store,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (i *StatusIngestor) Collection() string {
	return core.StatusCollectionNSID
}

func (i *StatusIngestor) Ingest(ctx context.Context, evt Event) error {
	if i == nil || i.Store == nil {
		return fmt.Errorf("firehose: status ingestor requires a status store")
	}
	if evt.Commit == nil {
		return fmt.Errorf("firehose: commit section is required")
	}

	uri, err := core.MakeRecordURI(evt.DID, evt.Commit.Collection, evt.Commit.RKey)
	if err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(evt.Commit.Operation)) {
	case OperationCreate, OperationUpdate:
		record, err := i.decodeRecord(uri, evt)
		if err != nil {
			return err
		}
		if _, _, err := i.Store.Upsert(ctx, record); err != nil {
			return err
		}
		return nil
	case OperationDelete:
		return i.Store.DeleteByURI(ctx, uri)
	default:
		return fmt.Errorf("firehose: unsupported commit operation %q", evt.Commit.Operation)
	}
}

// statusRecordBody is the lexicon shape of io.zzstoatzz.status.record.
// createdAt is required; expires is optional but must parse when present,
// an unparseable value is a decode error rather than a silent fallback.
type statusRecordBody struct {
	Type      string `json:"$type"`
	Emoji     string `json:"emoji"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
	Expires   string `json:"expires"`
}

func (i *StatusIngestor) decodeRecord(uri string, evt Event) (core.StatusRecord, error) {
	if len(evt.Commit.Record) == 0 {
		return core.StatusRecord{}, fmt.Errorf("firehose: decode status record: record body is required")
	}

	var body statusRecordBody
	if err := json.Unmarshal(evt.Commit.Record, &body); err != nil {
		return core.StatusRecord{}, fmt.Errorf("firehose: decode status record: %w", err)
	}
	if strings.TrimSpace(body.Emoji) == "" {
		return core.StatusRecord{}, fmt.Errorf("firehose: decode status record: emoji is required")
	}

	createdAt, err := time.Parse(time.RFC3339, strings.TrimSpace(body.CreatedAt))
	if err != nil {
		return core.StatusRecord{}, fmt.Errorf("firehose: decode status record createdAt: %w", err)
	}

	record := core.StatusRecord{
		URI:       uri,
		AuthorDID: strings.TrimSpace(evt.DID),
		Status:    body.Emoji,
		Text:      body.Text,
		StartedAt: createdAt.UTC(),
		IndexedAt: i.now(),
	}

	if expires := strings.TrimSpace(body.Expires); expires != "" {
		expiresAt, err := time.Parse(time.RFC3339, expires)
		if err != nil {
			return core.StatusRecord{}, fmt.Errorf("firehose: decode status record expires: %w", err)
		}
		utc := expiresAt.UTC()
		record.ExpiresAt = &utc
	}

	return record, nil
}

func (i *StatusIngestor) now() time.Time {
	if i != nil && i.Now != nil {
		return i.Now().UTC()
	}
	return time.Now().UTC()
}
