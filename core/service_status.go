package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SetStatus writes a status through the local path and announces the change.
// The same rkey always maps to the same record URI, so repeating a write is a
// full replace rather than a duplicate.
func (s *Service) SetStatus(ctx context.Context, in SetStatusInput) (record StatusRecord, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"author_did": in.AuthorDID,
	}
	defer func() {
		if record.URI != "" {
			fields["uri"] = record.URI
		}
		s.observeOperation(ctx, startedAt, "set_status", err, fields)
	}()

	if s.statusStore == nil {
		err = s.mapError(fmt.Errorf("core: status store is required"))
		return StatusRecord{}, err
	}
	authorDID := strings.TrimSpace(in.AuthorDID)
	if authorDID == "" {
		err = s.mapError(fmt.Errorf("core: author did is required"))
		return StatusRecord{}, err
	}
	rkey := strings.TrimSpace(in.RKey)
	if rkey == "" {
		err = s.mapError(fmt.Errorf("core: record rkey is required"))
		return StatusRecord{}, err
	}
	emoji := strings.TrimSpace(in.Status)
	if emoji == "" {
		err = s.mapError(fmt.Errorf("core: status emoji is required"))
		return StatusRecord{}, err
	}

	uri, err := MakeRecordURI(authorDID, StatusCollectionNSID, rkey)
	if err != nil {
		err = s.mapError(err)
		return StatusRecord{}, err
	}

	now := s.now()
	started := in.StartedAt
	if started.IsZero() {
		started = now
	}

	stored, inserted, upsertErr := s.statusStore.Upsert(ctx, StatusRecord{
		URI:       uri,
		AuthorDID: authorDID,
		Status:    emoji,
		Text:      strings.TrimSpace(in.Text),
		StartedAt: started.UTC(),
		ExpiresAt: in.ExpiresAt,
		IndexedAt: now,
	})
	if upsertErr != nil {
		err = s.mapError(upsertErr)
		return StatusRecord{}, err
	}

	eventType := EventStatusUpdated
	if inserted {
		eventType = EventStatusCreated
	}
	s.publishStatusEvent(ctx, eventType, stored, in.Handle)

	record = stored
	return record, nil
}

// ClearStatus removes an author's status and announces the removal. Clearing
// a record the author does not own reports not found.
func (s *Service) ClearStatus(ctx context.Context, did string, uri string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"author_did": did,
		"uri":        uri,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "clear_status", err, fields)
	}()

	if s.statusStore == nil {
		err = s.mapError(fmt.Errorf("core: status store is required"))
		return err
	}
	did = strings.TrimSpace(did)
	if did == "" {
		err = s.mapError(fmt.Errorf("core: author did is required"))
		return err
	}
	uri = strings.TrimSpace(uri)
	if uri == "" {
		err = s.mapError(fmt.Errorf("core: record uri is required"))
		return err
	}

	existing, getErr := s.statusStore.GetByURI(ctx, uri)
	if getErr != nil {
		err = s.mapError(getErr)
		return err
	}
	if existing.AuthorDID != did {
		err = s.mapError(fmt.Errorf("core: status record not found"))
		return err
	}

	if deleteErr := s.statusStore.DeleteByURI(ctx, uri); deleteErr != nil {
		err = s.mapError(deleteErr)
		return err
	}

	s.publishStatusEvent(ctx, EventStatusCleared, existing, "")
	return nil
}

// HideStatus flips the moderation flag on a record without touching its
// content. Hidden records stay in the view but drop out of the feeds.
func (s *Service) HideStatus(ctx context.Context, uri string, hidden bool) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"uri":    uri,
		"hidden": hidden,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "hide_status", err, fields)
	}()

	if s.statusStore == nil {
		err = s.mapError(fmt.Errorf("core: status store is required"))
		return err
	}
	uri = strings.TrimSpace(uri)
	if uri == "" {
		err = s.mapError(fmt.Errorf("core: record uri is required"))
		return err
	}

	if setErr := s.statusStore.SetHidden(ctx, uri, hidden); setErr != nil {
		err = s.mapError(setErr)
		return err
	}
	return nil
}

func (s *Service) GetStatus(ctx context.Context, uri string) (record StatusRecord, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"uri": uri,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "get_status", err, fields)
	}()

	if s.statusStore == nil {
		err = s.mapError(fmt.Errorf("core: status store is required"))
		return StatusRecord{}, err
	}
	uri = strings.TrimSpace(uri)
	if uri == "" {
		err = s.mapError(fmt.Errorf("core: record uri is required"))
		return StatusRecord{}, err
	}

	record, err = s.statusStore.GetByURI(ctx, uri)
	if err != nil {
		err = s.mapError(err)
		return StatusRecord{}, err
	}
	return record, nil
}

func (s *Service) ListAuthorStatuses(ctx context.Context, did string, limit int) (records []StatusRecord, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"author_did": did,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "list_author_statuses", err, fields)
	}()

	if s.statusStore == nil {
		err = s.mapError(fmt.Errorf("core: status store is required"))
		return nil, err
	}
	did = strings.TrimSpace(did)
	if did == "" {
		err = s.mapError(fmt.Errorf("core: author did is required"))
		return nil, err
	}

	records, err = s.statusStore.ListByAuthor(ctx, did, normalizeListLimit(limit))
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	return records, nil
}

func (s *Service) ListRecentStatuses(ctx context.Context, limit int) (records []StatusRecord, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		s.observeOperation(ctx, startedAt, "list_recent_statuses", err, nil)
	}()

	if s.statusStore == nil {
		err = s.mapError(fmt.Errorf("core: status store is required"))
		return nil, err
	}

	records, err = s.statusStore.ListRecent(ctx, normalizeListLimit(limit))
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	return records, nil
}

// publishStatusEvent hands a change announcement to the dispatch queue.
// Queue pressure must never fail the write that triggered it, so a full
// queue is logged and counted rather than returned.
func (s *Service) publishStatusEvent(ctx context.Context, eventType string, record StatusRecord, handle string) {
	if s == nil || s.enqueuer == nil {
		return
	}

	event := WebhookEvent{
		Type:      eventType,
		UserDID:   record.AuthorDID,
		Handle:    strings.TrimSpace(handle),
		Emoji:     record.Status,
		Text:      record.Text,
		ExpiresAt: record.ExpiresAt,
		StatusURI: record.URI,
		Timestamp: s.now(),
		EventID:   uuid.NewString(),
		Schema:    WebhookEventSchema,
	}

	if enqueueErr := s.enqueuer.Enqueue(ctx, &DispatchMessage{
		EventID:    event.EventID,
		OwnerDID:   record.AuthorDID,
		Event:      event,
		EnqueuedAt: s.now(),
	}); enqueueErr != nil {
		s.logError(ctx, "dispatch enqueue failed", map[string]any{
			"event_id":   event.EventID,
			"event_type": eventType,
			"uri":        record.URI,
			"error":      enqueueErr.Error(),
		})
		s.recordCounter(ctx, "statuswire.dispatch_enqueue_failed.total", 1, map[string]string{
			"event_type": eventType,
		})
	}
}

const defaultListLimit = 50

func normalizeListLimit(limit int) int {
	if limit < 1 {
		return defaultListLimit
	}
	return limit
}
