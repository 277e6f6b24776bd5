package gojob

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zzstoatzz/statuswire/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

const (
	JobIDDispatchEvent = "statuswire.dispatch.event"

	paramOwnerDID   = "owner_did"
	paramEvent      = "event"
	paramEnqueuedAt = "enqueued_at"
)

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts core.DispatchNackOptions, attempt int) core.DispatchNackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// ToExecutionMessage maps a dispatch message to go-job. The webhook event
// travels as a JSON parameter; the event id doubles as the idempotency key
// so a durable queue can drop redelivered events.
func ToExecutionMessage(msg *core.DispatchMessage) (*job.ExecutionMessage, error) {
	if msg == nil {
		return nil, nil
	}
	payload, err := json.Marshal(msg.Event)
	if err != nil {
		return nil, fmt.Errorf("gojob: encode event: %w", err)
	}
	return &job.ExecutionMessage{
		JobID:          JobIDDispatchEvent,
		IdempotencyKey: strings.TrimSpace(msg.EventID),
		Parameters: map[string]any{
			paramOwnerDID:   strings.TrimSpace(msg.OwnerDID),
			paramEvent:      string(payload),
			paramEnqueuedAt: msg.EnqueuedAt.UTC().Format(time.RFC3339Nano),
		},
	}, nil
}

// FromExecutionMessage maps a go-job message back into the dispatch contract.
func FromExecutionMessage(msg *job.ExecutionMessage) (*core.DispatchMessage, error) {
	if msg == nil {
		return nil, nil
	}
	out := &core.DispatchMessage{
		EventID: strings.TrimSpace(msg.IdempotencyKey),
	}
	if owner, ok := msg.Parameters[paramOwnerDID].(string); ok {
		out.OwnerDID = strings.TrimSpace(owner)
	}
	if raw, ok := msg.Parameters[paramEvent].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &out.Event); err != nil {
			return nil, fmt.Errorf("gojob: decode event: %w", err)
		}
	}
	if raw, ok := msg.Parameters[paramEnqueuedAt].(string); ok && raw != "" {
		enqueuedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("gojob: decode enqueued_at: %w", err)
		}
		out.EnqueuedAt = enqueuedAt
	}
	if out.EventID == "" {
		out.EventID = out.Event.EventID
	}
	return out, nil
}

// ToNackOptions maps dispatch nack options to go-job.
func ToNackOptions(opts core.DispatchNackOptions) queue.NackOptions {
	return queue.NackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Requeue,
		DeadLetter: opts.DeadLetter,
		Reason:     opts.Reason,
	}
}

// FromNackOptions maps go-job nack options to the dispatch contract.
func FromNackOptions(opts queue.NackOptions) core.DispatchNackOptions {
	return core.DispatchNackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Requeue,
		DeadLetter: opts.DeadLetter,
		Reason:     opts.Reason,
	}
}

type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer) *EnqueuerAdapter {
	return &EnqueuerAdapter{enqueuer: enqueuer}
}

func (a *EnqueuerAdapter) Enqueue(ctx context.Context, msg *core.DispatchMessage) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: dispatch message is required")
	}
	converted, err := ToExecutionMessage(msg)
	if err != nil {
		return err
	}
	return a.enqueuer.Enqueue(ctx, converted)
}

type DeliveryAdapter struct {
	delivery queue.Delivery
	policy   RetryPolicy

	decoded *core.DispatchMessage
}

func NewDeliveryAdapter(delivery queue.Delivery, policy RetryPolicy) *DeliveryAdapter {
	return &DeliveryAdapter{delivery: delivery, policy: policy}
}

// Message decodes the underlying go-job payload. A payload that does not
// decode yields nil, which the worker treats as poison and dead-letters.
func (d *DeliveryAdapter) Message() *core.DispatchMessage {
	if d == nil || d.delivery == nil {
		return nil
	}
	if d.decoded != nil {
		return d.decoded
	}
	decoded, err := FromExecutionMessage(d.delivery.Message())
	if err != nil {
		return nil
	}
	d.decoded = decoded
	return d.decoded
}

func (d *DeliveryAdapter) Ack(ctx context.Context) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.delivery.Ack(ctx)
}

func (d *DeliveryAdapter) Nack(ctx context.Context, opts core.DispatchNackOptions) error {
	return d.NackForAttempt(ctx, opts, 0)
}

func (d *DeliveryAdapter) NackForAttempt(ctx context.Context, opts core.DispatchNackOptions, attempt int) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	normalized := d.policy.NormalizeAttempt(opts, attempt)
	return d.delivery.Nack(ctx, ToNackOptions(normalized))
}

type DequeuerAdapter struct {
	dequeuer queue.Dequeuer
	policy   RetryPolicy
}

func NewDequeuerAdapter(dequeuer queue.Dequeuer, policy RetryPolicy) *DequeuerAdapter {
	return &DequeuerAdapter{dequeuer: dequeuer, policy: policy}
}

func (a *DequeuerAdapter) Dequeue(ctx context.Context) (core.DispatchDelivery, error) {
	if a == nil || a.dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := a.dequeuer.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	return NewDeliveryAdapter(delivery, a.policy), nil
}

type WorkerHookAdapter struct {
	hook core.DispatchWorkerHook
}

func NewWorkerHookAdapter(hook core.DispatchWorkerHook) *WorkerHookAdapter {
	return &WorkerHookAdapter{hook: hook}
}

func (a *WorkerHookAdapter) OnStart(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnStart(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnSuccess(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnSuccess(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnFailure(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnFailure(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnRetry(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnRetry(ctx, mapWorkerEvent(event))
}

func mapWorkerEvent(event worker.Event) core.DispatchWorkerEvent {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	mapped, _ := FromExecutionMessage(message)
	return core.DispatchWorkerEvent{
		Message:   mapped,
		Attempt:   event.Attempt,
		Delay:     event.Delay,
		Err:       event.Err,
		StartedAt: event.StartedAt,
		Duration:  event.Duration,
	}
}

var (
	_ core.DispatchEnqueuer   = (*EnqueuerAdapter)(nil)
	_ core.DispatchDelivery   = (*DeliveryAdapter)(nil)
	_ core.DispatchDequeuer   = (*DequeuerAdapter)(nil)
	_ worker.Hook             = (*WorkerHookAdapter)(nil)
	_ core.DispatchWorkerHook = (*noopDispatchHook)(nil)
)

// noopDispatchHook only exists to assert local compile-time compatibility.
type noopDispatchHook struct{}

func (noopDispatchHook) OnStart(context.Context, core.DispatchWorkerEvent)   {}
func (noopDispatchHook) OnSuccess(context.Context, core.DispatchWorkerEvent) {}
func (noopDispatchHook) OnFailure(context.Context, core.DispatchWorkerEvent) {}
func (noopDispatchHook) OnRetry(context.Context, core.DispatchWorkerEvent)   {}
