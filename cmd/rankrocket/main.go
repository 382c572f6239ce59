// Package main wires together the crawl service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcppubsub "cloud.google.com/go/pubsub"
	gcpstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/rankrocket/rankrocket-crawler/internal/api"
	"github.com/rankrocket/rankrocket-crawler/internal/clock/system"
	"github.com/rankrocket/rankrocket-crawler/internal/config"
	"github.com/rankrocket/rankrocket-crawler/internal/fetch"
	"github.com/rankrocket/rankrocket-crawler/internal/id/uuid"
	"github.com/rankrocket/rankrocket-crawler/internal/logging"
	"github.com/rankrocket/rankrocket-crawler/internal/metrics"
	memorypublisher "github.com/rankrocket/rankrocket-crawler/internal/publisher/memory"
	pubsubpublisher "github.com/rankrocket/rankrocket-crawler/internal/publisher/pubsub"
	"github.com/rankrocket/rankrocket-crawler/internal/schedule"
	"github.com/rankrocket/rankrocket-crawler/internal/seo"
	gcssnapshot "github.com/rankrocket/rankrocket-crawler/internal/snapshot/gcs"
	localsnapshot "github.com/rankrocket/rankrocket-crawler/internal/snapshot/local"
	memorysnapshot "github.com/rankrocket/rankrocket-crawler/internal/snapshot/memory"
	memorystore "github.com/rankrocket/rankrocket-crawler/internal/store/memory"
	postgresstore "github.com/rankrocket/rankrocket-crawler/internal/store/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	idGen := uuid.New()

	scheduleStore, closeStore, err := newScheduleStore(ctx, cfg)
	if err != nil {
		logger.Fatal("schedule store init failed", zap.Error(err))
	}
	defer closeStore()

	submissionStore := memorystore.NewSubmissionStore(idGen)
	resultStore := memorystore.NewResultStore()
	queue := schedule.NewReadyQueue()

	publisher, closePublisher, err := newPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}
	defer closePublisher()

	snapshots, err := newSnapshotStore(ctx, cfg)
	if err != nil {
		logger.Fatal("snapshot store init failed", zap.Error(err))
	}

	fetcher := fetch.New(fetch.Config{
		UserAgent:    cfg.Crawler.UserAgent,
		Timeout:      cfg.FetchTimeout(),
		MaxBodyBytes: cfg.Crawler.MaxBodyBytes,
	})

	scheduler := schedule.New(
		scheduleStore,
		submissionStore,
		resultStore,
		queue,
		fetcher,
		publisher,
		snapshots,
		clock,
		idGen,
		schedule.Config{
			Concurrency:    cfg.Scheduler.Concurrency,
			TickInterval:   cfg.TickInterval(),
			Topic:          cfg.PubSub.TopicName,
			SnapshotPrefix: cfg.Snapshot.Prefix,
		},
		logger.Named("scheduler"),
	)

	apiServer := api.NewServer(scheduler, submissionStore, resultStore, clock, cfg, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("scheduler started",
			zap.Int("concurrency", cfg.Scheduler.Concurrency),
			zap.Duration("tick_interval", cfg.TickInterval()),
		)
		scheduler.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newScheduleStore(ctx context.Context, cfg config.Config) (seo.ScheduleStore, func(), error) {
	switch cfg.Database.Provider {
	case "", "memory":
		return memorystore.NewScheduleStore(), func() {}, nil
	case "postgres":
		store, err := postgresstore.NewScheduleStore(ctx, postgresstore.Config{
			DSN:      cfg.Database.DSN,
			Table:    cfg.Database.Table,
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown database provider %q", cfg.Database.Provider)
	}
}

func newPublisher(ctx context.Context, cfg config.Config) (seo.Publisher, func(), error) {
	switch cfg.PubSub.Provider {
	case "", "memory":
		return memorypublisher.New(), func() {}, nil
	case "pubsub":
		client, err := gcppubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("pubsub client: %w", err)
		}
		pub, err := pubsubpublisher.New(client)
		if err != nil {
			return nil, nil, err
		}
		return pub, func() {
			pub.Close()
			if err := client.Close(); err != nil {
				zap.L().Warn("pubsub client close failed", zap.Error(err))
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown pubsub provider %q", cfg.PubSub.Provider)
	}
}

func newSnapshotStore(ctx context.Context, cfg config.Config) (seo.SnapshotStore, error) {
	switch cfg.Snapshot.Provider {
	case "", "memory":
		return memorysnapshot.New(), nil
	case "local":
		return localsnapshot.New(cfg.Snapshot.Dir)
	case "gcs":
		client, err := gcpstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage client: %w", err)
		}
		return gcssnapshot.New(client, gcssnapshot.Config{Bucket: cfg.Snapshot.GCSBucket})
	default:
		return nil, fmt.Errorf("unknown snapshot provider %q", cfg.Snapshot.Provider)
	}
}
