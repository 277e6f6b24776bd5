package core

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service orchestrates the status materialized view and the webhook registry.
// Record mutations flow in from the stream ingestor or the local write path,
// land in the status store, and fan out to subscribers through the dispatcher.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	statusStore       StatusStore
	subscriptionStore SubscriptionStore
	deliveryStore     DeliveryStore
	sender            DeliverySender
	handleResolver    HandleResolver
	enqueuer          DispatchEnqueuer
	dispatcher        *Dispatcher
	now               func() time.Time
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	StatusStore       StatusStore
	SubscriptionStore SubscriptionStore
	DeliveryStore     DeliveryStore
	Sender            DeliverySender
	HandleResolver    HandleResolver
	Enqueuer          DispatchEnqueuer
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("statuswire", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("statuswire"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if missingStores(builder) && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				adoptStores(&builder, storeProvider)
			}
		} else if storeProvider, ok := builder.repositoryFactory.(StoreProvider); ok {
			adoptStores(&builder, storeProvider)
		}
	}

	dispatcher := NewDispatcher(DispatcherDeps{
		Config:            finalConfig.Dispatch,
		Logger:            logger,
		MetricsRecorder:   builder.metricsRecorder,
		ErrorMapper:       builder.errorMapper,
		SubscriptionStore: builder.subscriptionStore,
		DeliveryStore:     builder.deliveryStore,
		Sender:            builder.sender,
		HandleResolver:    builder.handleResolver,
		Now:               builder.now,
	})

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		statusStore:       builder.statusStore,
		subscriptionStore: builder.subscriptionStore,
		deliveryStore:     builder.deliveryStore,
		sender:            builder.sender,
		handleResolver:    builder.handleResolver,
		enqueuer:          builder.enqueuer,
		dispatcher:        dispatcher,
		now:               builder.now,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func missingStores(builder serviceBuilder) bool {
	return builder.statusStore == nil || builder.subscriptionStore == nil || builder.deliveryStore == nil
}

func adoptStores(builder *serviceBuilder, provider StoreProvider) {
	if builder.statusStore == nil {
		builder.statusStore = provider.StatusStore()
	}
	if builder.subscriptionStore == nil {
		builder.subscriptionStore = provider.SubscriptionStore()
	}
	if builder.deliveryStore == nil {
		builder.deliveryStore = provider.DeliveryStore()
	}
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// Dispatcher exposes the fan-out engine so daemons can drive the queue worker.
func (s *Service) Dispatcher() *Dispatcher {
	if s == nil {
		return nil
	}
	return s.dispatcher
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		StatusStore:       s.statusStore,
		SubscriptionStore: s.subscriptionStore,
		DeliveryStore:     s.deliveryStore,
		Sender:            s.sender,
		HandleResolver:    s.handleResolver,
		Enqueuer:          s.enqueuer,
	}
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
