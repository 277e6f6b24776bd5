package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/zzstoatzz/statuswire/adapters/gologger"
	"github.com/zzstoatzz/statuswire/adapters/prommetrics"
	"github.com/zzstoatzz/statuswire/core"
	"github.com/zzstoatzz/statuswire/firehose"
	"github.com/zzstoatzz/statuswire/identity"
	"github.com/zzstoatzz/statuswire/transport"
	"github.com/zzstoatzz/statuswire/webhooks"
)

const shutdownGracePeriod = 10 * time.Second

func runMigrate(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, dialect, err := openDatabase(flagDBDriver, flagDBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := applyMigrations(ctx, db, dialect); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", dialect)
	return nil
}

func runServe(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := newSlogProvider(flagLogLevel)
	_, logger := gologger.Resolve(gologger.DefaultName, provider, nil)

	cfg, err := loadConfig(ctx, flagConfigPath)
	if err != nil {
		return err
	}

	db, dialect, err := openDatabase(flagDBDriver, flagDBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := applyMigrations(ctx, db, dialect); err != nil {
		return err
	}
	logger.Info("database ready", "driver", flagDBDriver, "dialect", dialect)

	factory, err := buildRepositoryFactory(db)
	if err != nil {
		return err
	}

	recorder := prommetrics.NewRecorder(prommetrics.Options{})
	queue := core.NewMemoryDispatchQueue(cfg.Dispatch.QueueSize)
	sender := webhooks.NewHTTPSender(webhooks.SenderOptions{
		UserAgent:         cfg.Dispatch.UserAgent,
		ResponseBodyLimit: cfg.Dispatch.ResponseBodyLimit,
	})

	service, err := core.NewService(cfg,
		core.WithLoggerProvider(provider),
		core.WithMetricsRecorder(recorder),
		core.WithRepositoryFactory(factory),
		core.WithDeliverySender(sender),
		core.WithHandleResolver(identity.DefaultResolver()),
		core.WithDispatchEnqueuer(queue),
	)
	if err != nil {
		return err
	}

	_, consumerLogger := gologger.ResolveComponent("firehose", provider, nil)
	consumer := firehose.NewConsumer(firehose.ConsumerOptions{
		Config:  service.Config().Firehose,
		Logger:  consumerLogger,
		Metrics: recorder,
	})
	for _, collection := range service.Config().Firehose.Collections {
		if collection != core.StatusCollectionNSID {
			logger.Warn("no ingestor for configured collection, skipping", "collection", collection)
			continue
		}
		if err := consumer.Register(firehose.NewStatusIngestor(factory.StatusStore())); err != nil {
			return err
		}
	}

	_, apiLogger := gologger.ResolveComponent("transport", provider, nil)
	apiHandler, err := transport.NewHandler(transport.Deps{
		Service: service,
		Logger:  apiLogger,
		Cursor:  consumer.Cursor,
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", apiHandler)
	server := &http.Server{
		Addr:              flagHTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 3)

	go func() {
		// Exhausted reconnect attempts are fatal: the daemon exits rather
		// than serving an ever-staler view.
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("firehose consumer: %w", err)
			return
		}
		errCh <- nil
	}()

	go func() {
		if err := service.Dispatcher().Run(ctx, queue); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("dispatch worker: %w", err)
			return
		}
		errCh <- nil
	}()

	go func() {
		logger.Info("management API listening", "addr", flagHTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("http shutdown: %w", err)
	}

	snapshot := consumer.Cursor()
	logger.Info("statuswired stopped",
		"cursor_time_us", snapshot.TimeUS,
		"processed", snapshot.Processed,
		"skipped", snapshot.Skipped,
	)
	return runErr
}
