// Package statuswire re-exports the core service surface so embedding
// applications depend on one import path. The heavy lifting lives in core;
// this package adds the command/query facade on top.
package statuswire

import "github.com/zzstoatzz/statuswire/core"

type Config = core.Config

type FirehoseConfig = core.FirehoseConfig
type DispatchConfig = core.DispatchConfig
type LedgerConfig = core.LedgerConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type StatusStore = core.StatusStore
type SubscriptionStore = core.SubscriptionStore
type DeliveryStore = core.DeliveryStore
type DeliverySender = core.DeliverySender
type HandleResolver = core.HandleResolver
type DispatchEnqueuer = core.DispatchEnqueuer
type DispatchDequeuer = core.DispatchDequeuer
type MetricsRecorder = core.MetricsRecorder

type StatusRecord = core.StatusRecord
type WebhookSubscription = core.WebhookSubscription
type DeliveryAttempt = core.DeliveryAttempt
type WebhookEvent = core.WebhookEvent
type DispatchMessage = core.DispatchMessage

type SetStatusInput = core.SetStatusInput

type CreateWebhookInput = core.CreateWebhookInput

type UpdateWebhookInput = core.UpdateWebhookInput

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithStatusStore       = core.WithStatusStore
	WithSubscriptionStore = core.WithSubscriptionStore
	WithDeliveryStore     = core.WithDeliveryStore
	WithDeliverySender    = core.WithDeliverySender
	WithHandleResolver    = core.WithHandleResolver
	WithDispatchEnqueuer  = core.WithDispatchEnqueuer
	WithClock             = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

type MemoryDispatchQueue = core.MemoryDispatchQueue

func NewMemoryDispatchQueue(size int) *MemoryDispatchQueue {
	return core.NewMemoryDispatchQueue(size)
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
