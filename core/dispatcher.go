package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

const (
	defaultDeliveryTimeout = 10 * time.Second
	minDeliveryTimeout     = 5 * time.Second
	maxDeliveryTimeout     = 30 * time.Second
)

// DispatcherDeps collects everything the fan-out engine needs. Zero fields
// get safe defaults; a nil Sender only fails once a delivery is attempted.
type DispatcherDeps struct {
	Config            DispatchConfig
	Logger            Logger
	MetricsRecorder   MetricsRecorder
	ErrorMapper       ErrorMapper
	SubscriptionStore SubscriptionStore
	DeliveryStore     DeliveryStore
	Sender            DeliverySender
	HandleResolver    HandleResolver
	Hooks             []DispatchWorkerHook
	Now               func() time.Time
}

// Dispatcher fans one event out to every matching subscription of the event
// owner. Deliveries are isolated from each other and from the caller: a slow
// or failing endpoint burns its own ledger row and nothing else.
type Dispatcher struct {
	config            DispatchConfig
	logger            Logger
	metricsRecorder   MetricsRecorder
	errorMapper       ErrorMapper
	subscriptionStore SubscriptionStore
	deliveryStore     DeliveryStore
	sender            DeliverySender
	handleResolver    HandleResolver
	hooks             []DispatchWorkerHook
	now               func() time.Time
}

func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	dispatcher := &Dispatcher{
		config:            deps.Config,
		logger:            glog.Ensure(deps.Logger),
		metricsRecorder:   deps.MetricsRecorder,
		errorMapper:       deps.ErrorMapper,
		subscriptionStore: deps.SubscriptionStore,
		deliveryStore:     deps.DeliveryStore,
		sender:            deps.Sender,
		handleResolver:    deps.HandleResolver,
		hooks:             append([]DispatchWorkerHook(nil), deps.Hooks...),
		now:               deps.Now,
	}
	if dispatcher.metricsRecorder == nil {
		dispatcher.metricsRecorder = NopMetricsRecorder{}
	}
	if dispatcher.errorMapper == nil {
		dispatcher.errorMapper = defaultErrorMapper
	}
	if dispatcher.now == nil {
		dispatcher.now = func() time.Time { return time.Now().UTC() }
	}
	return dispatcher
}

// Dispatch fans event out to the owner's matching subscriptions and reports
// how each went. Individual delivery failures land in the report and the
// ledger; only validation and store failures surface as errors.
func (d *Dispatcher) Dispatch(ctx context.Context, event WebhookEvent) (DispatchReport, error) {
	if d == nil {
		return DispatchReport{}, fmt.Errorf("core: dispatcher is nil")
	}
	startedAt := d.now()
	report := DispatchReport{EventID: event.EventID, EventType: event.Type}

	if err := event.Validate(); err != nil {
		return DispatchReport{}, d.mapError(err)
	}
	if d.subscriptionStore == nil {
		return DispatchReport{}, d.mapError(fmt.Errorf("core: subscription store is required"))
	}
	if d.sender == nil {
		return DispatchReport{}, d.mapError(fmt.Errorf("core: delivery sender is required"))
	}

	d.enrichHandle(ctx, &event)

	payload, err := json.Marshal(event)
	if err != nil {
		return DispatchReport{}, d.mapError(fmt.Errorf("core: encode webhook event: %w", err))
	}

	subscriptions, err := d.subscriptionStore.ListByOwner(ctx, event.UserDID)
	if err != nil {
		return DispatchReport{}, d.mapError(err)
	}

	matched := make([]WebhookSubscription, 0, len(subscriptions))
	for _, sub := range subscriptions {
		if sub.WantsEvent(event.Type) {
			matched = append(matched, sub)
		}
	}
	report.Matched = len(matched)
	if len(matched) == 0 {
		d.observeDispatch(ctx, startedAt, event, report)
		return report, nil
	}

	maxInFlight := d.config.MaxInFlight
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	semaphore := make(chan struct{}, maxInFlight)

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, sub := range matched {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(sub WebhookSubscription) {
			defer wg.Done()
			defer func() { <-semaphore }()

			attempt, deliverErr := d.deliverOne(ctx, sub, event, payload)
			mu.Lock()
			defer mu.Unlock()
			if deliverErr == nil && attempt.Success {
				report.Delivered++
				return
			}
			report.Failed++
		}(sub)
	}
	wg.Wait()

	d.observeDispatch(ctx, startedAt, event, report)
	return report, nil
}

// DeliverTo pushes event to a single subscription, bypassing filter matching.
// Test deliveries use this path so owners see the exact wire format.
func (d *Dispatcher) DeliverTo(ctx context.Context, sub WebhookSubscription, event WebhookEvent) (DeliveryAttempt, error) {
	if d == nil {
		return DeliveryAttempt{}, fmt.Errorf("core: dispatcher is nil")
	}
	if err := event.Validate(); err != nil {
		return DeliveryAttempt{}, d.mapError(err)
	}
	if d.sender == nil {
		return DeliveryAttempt{}, d.mapError(fmt.Errorf("core: delivery sender is required"))
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return DeliveryAttempt{}, d.mapError(fmt.Errorf("core: encode webhook event: %w", err))
	}
	attempt, deliverErr := d.deliverOne(ctx, sub, event, payload)
	if deliverErr != nil {
		return attempt, d.mapError(deliverErr)
	}
	return attempt, nil
}

// Run drains the dispatch queue until ctx is done. Dequeued events that fail
// to dispatch are nacked without requeue; there is no automatic retry.
func (d *Dispatcher) Run(ctx context.Context, dequeuer DispatchDequeuer) error {
	if d == nil {
		return fmt.Errorf("core: dispatcher is nil")
	}
	if dequeuer == nil {
		return d.mapError(fmt.Errorf("core: dispatch dequeuer is required"))
	}

	for {
		delivery, err := dequeuer.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return d.mapError(err)
		}
		if delivery == nil {
			continue
		}
		d.processDelivery(ctx, delivery)

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func (d *Dispatcher) processDelivery(ctx context.Context, delivery DispatchDelivery) {
	message := delivery.Message()
	if message == nil {
		_ = delivery.Ack(ctx)
		return
	}

	workerEvent := DispatchWorkerEvent{
		Message:   message,
		Attempt:   1,
		StartedAt: d.now(),
	}
	d.notifyHooks(ctx, workerEvent, func(hook DispatchWorkerHook, event DispatchWorkerEvent) {
		hook.OnStart(ctx, event)
	})

	report, err := d.Dispatch(ctx, message.Event)
	workerEvent.Duration = d.now().Sub(workerEvent.StartedAt)
	workerEvent.Err = err

	if err != nil {
		d.logError(ctx, "dispatch failed", map[string]any{
			"event_id":   message.EventID,
			"event_type": message.Event.Type,
			"owner_did":  message.OwnerDID,
			"error":      err.Error(),
		})
		d.notifyHooks(ctx, workerEvent, func(hook DispatchWorkerHook, event DispatchWorkerEvent) {
			hook.OnFailure(ctx, event)
		})
		_ = delivery.Nack(ctx, DispatchNackOptions{Requeue: false, Reason: err.Error()})
		return
	}

	d.logInfo(ctx, "dispatch complete", map[string]any{
		"event_id":   report.EventID,
		"event_type": report.EventType,
		"owner_did":  message.OwnerDID,
		"matched":    report.Matched,
		"delivered":  report.Delivered,
		"failed":     report.Failed,
	})
	d.notifyHooks(ctx, workerEvent, func(hook DispatchWorkerHook, event DispatchWorkerEvent) {
		hook.OnSuccess(ctx, event)
	})
	_ = delivery.Ack(ctx)
}

// deliverOne writes the pending ledger row, performs the POST, and finalizes
// the row exactly once. A ledger row that cannot be created aborts this
// delivery only.
func (d *Dispatcher) deliverOne(ctx context.Context, sub WebhookSubscription, event WebhookEvent, payload []byte) (DeliveryAttempt, error) {
	now := d.now()
	attempt := DeliveryAttempt{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		EventID:        event.EventID,
		EventType:      event.Type,
		Payload:        append([]byte(nil), payload...),
		Status:         DeliveryStatusPending,
		AttemptedAt:    now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if d.deliveryStore != nil {
		created, createErr := d.deliveryStore.Create(ctx, attempt)
		if createErr != nil {
			d.logError(ctx, "delivery ledger create failed", map[string]any{
				"subscription_id": sub.ID,
				"event_id":        event.EventID,
				"error":           createErr.Error(),
			})
			return attempt, createErr
		}
		attempt = created
	}

	result := d.sender.Send(ctx, DeliveryRequest{
		URL:       sub.URL,
		Secret:    sub.Secret,
		EventID:   event.EventID,
		EventType: event.Type,
		Payload:   payload,
		Timestamp: d.now(),
		Timeout:   clampDeliveryTimeout(d.config.TimeoutSeconds),
	})

	completedAt := d.now()
	target := DeliveryStatusFailed
	if result.Success {
		target = DeliveryStatusDelivered
	}
	if transitionErr := attempt.TransitionTo(target, completedAt); transitionErr != nil {
		return attempt, transitionErr
	}
	attempt.Success = result.Success
	attempt.ResponseStatus = result.StatusCode
	attempt.ResponseBody = result.Body
	if attempt.ResponseBody == "" && result.Error != "" {
		attempt.ResponseBody = result.Error
	}
	completed := completedAt
	attempt.CompletedAt = &completed

	if d.deliveryStore != nil {
		finalized, outcomeErr := d.deliveryStore.RecordOutcome(ctx, attempt.ID, DeliveryOutcome{
			Success:        attempt.Success,
			ResponseStatus: attempt.ResponseStatus,
			ResponseBody:   attempt.ResponseBody,
			CompletedAt:    completedAt,
		})
		if outcomeErr != nil {
			d.logError(ctx, "delivery ledger update failed", map[string]any{
				"delivery_id":     attempt.ID,
				"subscription_id": sub.ID,
				"error":           outcomeErr.Error(),
			})
			return attempt, outcomeErr
		}
		attempt = finalized
	}

	if d.subscriptionStore != nil {
		if markErr := d.subscriptionStore.MarkDelivery(ctx, sub.ID, completedAt, result.Success); markErr != nil {
			d.logError(ctx, "subscription delivery mark failed", map[string]any{
				"subscription_id": sub.ID,
				"error":           markErr.Error(),
			})
		}
	}

	d.observeDelivery(ctx, sub, event, result)
	return attempt, nil
}

func (d *Dispatcher) enrichHandle(ctx context.Context, event *WebhookEvent) {
	if d == nil || d.handleResolver == nil || event == nil {
		return
	}
	if strings.TrimSpace(event.Handle) != "" {
		return
	}
	handle, err := d.handleResolver.ResolveHandle(ctx, event.UserDID)
	if err != nil {
		d.logInfo(ctx, "handle resolution skipped", map[string]any{
			"user_did": event.UserDID,
			"error":    err.Error(),
		})
		return
	}
	event.Handle = handle
}

func (d *Dispatcher) observeDispatch(ctx context.Context, startedAt time.Time, event WebhookEvent, report DispatchReport) {
	durationMS := float64(d.now().Sub(startedAt).Milliseconds())
	tags := map[string]string{"event_type": event.Type}
	d.metricsRecorder.IncCounter(ctx, "statuswire.dispatch.total", 1, cloneTags(tags))
	d.metricsRecorder.ObserveHistogram(ctx, "statuswire.dispatch.duration_ms", durationMS, cloneTags(tags))
	d.logInfo(ctx, "event dispatched", map[string]any{
		"event_id":   report.EventID,
		"event_type": report.EventType,
		"matched":    report.Matched,
		"delivered":  report.Delivered,
		"failed":     report.Failed,
	})
}

func (d *Dispatcher) observeDelivery(ctx context.Context, sub WebhookSubscription, event WebhookEvent, result DeliveryResult) {
	status := "failure"
	if result.Success {
		status = "success"
	}
	tags := map[string]string{
		"event_type": event.Type,
		"status":     status,
	}
	d.metricsRecorder.IncCounter(ctx, "statuswire.webhook_delivery.total", 1, cloneTags(tags))
	d.metricsRecorder.ObserveHistogram(ctx, "statuswire.webhook_delivery.duration_ms", float64(result.Duration.Milliseconds()), cloneTags(tags))

	fields := map[string]any{
		"subscription_id": sub.ID,
		"event_id":        event.EventID,
		"event_type":      event.Type,
		"status":          status,
		"duration_ms":     result.Duration.Milliseconds(),
	}
	if result.StatusCode != nil {
		fields["response_status"] = *result.StatusCode
	}
	if result.Error != "" {
		fields["error"] = result.Error
	}
	if result.Success {
		d.logInfo(ctx, "webhook delivered", fields)
		return
	}
	d.logError(ctx, "webhook delivery failed", fields)
}

func (d *Dispatcher) notifyHooks(ctx context.Context, event DispatchWorkerEvent, notify func(DispatchWorkerHook, DispatchWorkerEvent)) {
	for _, hook := range d.hooks {
		if hook == nil {
			continue
		}
		notify(hook, event)
	}
}

func (d *Dispatcher) mapError(err error) error {
	if err == nil {
		return nil
	}
	if d == nil || d.errorMapper == nil {
		return err
	}
	mapped := d.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (d *Dispatcher) logInfo(ctx context.Context, message string, fields map[string]any) {
	d.logWithLevel(ctx, "info", message, fields)
}

func (d *Dispatcher) logError(ctx context.Context, message string, fields map[string]any) {
	d.logWithLevel(ctx, "error", message, fields)
}

func (d *Dispatcher) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if d == nil || d.logger == nil {
		return
	}
	logger := d.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func clampDeliveryTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		return defaultDeliveryTimeout
	}
	timeout := time.Duration(seconds) * time.Second
	if timeout < minDeliveryTimeout {
		return minDeliveryTimeout
	}
	if timeout > maxDeliveryTimeout {
		return maxDeliveryTimeout
	}
	return timeout
}
