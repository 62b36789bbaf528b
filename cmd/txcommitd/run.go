package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fr0stylo/txcommit/internal/adapters/chainrpc"
	"github.com/fr0stylo/txcommit/internal/adapters/kafka"
	"github.com/fr0stylo/txcommit/internal/adapters/rabbitmq"
	"github.com/fr0stylo/txcommit/internal/adapters/redis"
	"github.com/fr0stylo/txcommit/internal/adapters/sqlite"
	"github.com/fr0stylo/txcommit/internal/adapters/webhook"
	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/ports"
	"github.com/fr0stylo/txcommit/internal/app/services"
	"github.com/fr0stylo/txcommit/internal/config"
	"github.com/fr0stylo/txcommit/internal/db"
	"github.com/fr0stylo/txcommit/internal/observability"
	"github.com/fr0stylo/txcommit/internal/server"
	"github.com/fr0stylo/txcommit/internal/server/routes"
	"github.com/fr0stylo/txcommit/internal/signing"
)

// NewRunCommand runs the whole pipeline and its operational HTTP surface.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every pipeline stage and the ops server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return Run(ctx, opts.log)
		},
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Run wires the pipeline from configuration and blocks until ctx is cancelled.
func Run(ctx context.Context, log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.IsLocalDevelopment() {
		log.Warn("Running with local development provider defaults", "provider_id", cfg.Chain.ProviderID)
	}

	shutdownTelemetry, err := setupTelemetry(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}()
	if cfg.Database.LogTiming {
		go logDBLatencyStats(ctx, log, database)
	}
	store := sqlite.NewStore(database)

	queue, closeQueue, err := openQueue(cfg, store)
	if err != nil {
		return err
	}
	defer closeQueue()

	coordination := redis.New(redis.Options{
		Addrs:    []string{cfg.Coordination.RedisAddr},
		Password: cfg.Coordination.RedisPassword,
		DB:       cfg.Coordination.RedisDB,
	})
	defer func() {
		if err := coordination.Close(); err != nil {
			log.Error("Failed to close coordination store", "error", err)
		}
	}()

	chain := chainrpc.New(cfg.Chain.URL, cfg.ChainTimeout())
	keyring, err := signing.New(cfg.Chain.ProviderSeed)
	if err != nil {
		return fmt.Errorf("failed to load provider key: %w", err)
	}
	log.Info("Provider key loaded", "account", keyring.Account(), "provider_id", cfg.Chain.ProviderID)

	metrics, err := observability.NewPipelineMetrics()
	if err != nil {
		return fmt.Errorf("failed to register pipeline metrics: %w", err)
	}

	if err := seedRegistrations(ctx, store, cfg.Webhook); err != nil {
		return err
	}

	var sinks []ports.OutcomeSink
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := kafka.NewSink(kafka.Config{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			ClientID: cfg.Observability.ServiceName,
		})
		if err != nil {
			return fmt.Errorf("failed to connect outcome stream: %w", err)
		}
		defer sink.Close()
		sinks = append(sinks, sink)
		log.Info("Publishing outcomes to kafka", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	}

	allocator := services.NewSequenceAllocator(chain, coordination, services.AllocatorConfig{
		Window:       cfg.Sequence.Window,
		LeaseTTL:     cfg.SequenceLeaseTTL(),
		StoreTimeout: cfg.CoordinationTimeout(),
	}, metrics, log)
	assembler := services.NewBatchAssembler(services.AssemblerConfig{
		MaxItems:   cfg.Batch.MaxItems,
		Interval:   cfg.BatchInterval(),
		ProviderID: cfg.Chain.ProviderID,
	}, services.QueueHandoff(queue), metrics, log)
	intake := services.NewIntake(queue, store, assembler, cfg.SubmitBackoff(), log)
	submitter := services.NewSubmitter(chain, allocator, keyring, store, queue, store, services.SubmitterConfig{
		MaxAttempts: cfg.Submit.MaxAttempts,
		BackoffBase: cfg.SubmitBackoff(),
	}, metrics, log)
	tracker := services.NewFinalityTracker(chain, store, store, queue, services.TrackerConfig{
		ScanInterval:     cfg.ScanInterval(),
		MaxBlocksPerScan: cfg.Finality.MaxBlocksPerScan,
	}, metrics, log)
	notifier := services.NewNotifier(queue, store, store, sinks, log)

	webhookBase, webhookMax := cfg.WebhookBackoff()
	sender := webhook.NewSender(cfg.WebhookTimeout(), webhook.WithSource("txcommit/"+cfg.Chain.ProviderID))
	deliverer := services.NewDeliverer(sender, store, store, services.DelivererConfig{
		MaxAttempts: cfg.Webhook.MaxAttempts,
		BackoffBase: webhookBase,
		BackoffMax:  webhookMax,
	}, metrics, log)

	pipeline := services.NewPipeline(services.PipelineStages{
		Queue:     queue,
		Intake:    intake,
		Assembler: assembler,
		Submitter: submitter,
		Tracker:   tracker,
		Notifier:  notifier,
		Deliverer: deliverer,
	}, services.PipelineConfig{
		Workers:       cfg.Workers.PerStage,
		Poll:          cfg.WorkerPoll(),
		BatchInterval: cfg.BatchInterval(),
		ShutdownGrace: cfg.ShutdownGrace(),
		MaxAttempts:   cfg.Submit.MaxAttempts,
		BackoffBase:   cfg.SubmitBackoff(),
	}, log)

	srv := server.New(log)
	srv.RegisterRouter(&routes.OpsRoutes{
		Queue:      queue,
		Queues:     domain.Queues,
		Cursors:    store,
		CursorName: services.FinalityCursor,
		Statuses:   store,
		Intake:     intake,
		Dependencies: map[string]routes.Pinger{
			"database":     store,
			"coordination": coordination,
			"chain": pingFunc(func(ctx context.Context) error {
				_, err := chain.CurrentBlock(ctx)
				return err
			}),
		},
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return pipeline.Run(groupCtx)
	})
	group.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info("Starting server", "port", cfg.Server.Port)
		return srv.Start(addr)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func setupTelemetry(ctx context.Context, log *slog.Logger, cfg config.Config) (func(), error) {
	shutdownTelemetry, err := observability.SetupOpenTelemetry(ctx, log, observability.OpenTelemetryConfig{
		Enabled:           cfg.Observability.Enabled,
		OTLPEndpoint:      cfg.Observability.OTLPEndpoint,
		OTLPTraceHeaders:  cfg.Observability.OTLPTraceHeaders,
		OTLPMetricHeaders: cfg.Observability.OTLPMetricHeaders,
		ServiceName:       cfg.Observability.ServiceName,
		ServiceVer:        cfg.Observability.ServiceVer,
		SamplingRatio:     cfg.Observability.SamplingRatio,
		MetricsConsole:    cfg.Observability.MetricsConsole,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			log.Error("Failed to shutdown OpenTelemetry", "error", err)
		}
	}, nil
}

// openQueue picks the durable queue backend. The sqlite store doubles as the
// queue unless rabbitmq is configured.
func openQueue(cfg config.Config, store *sqlite.Store) (ports.Queue, func(), error) {
	switch cfg.Queue.Backend {
	case config.QueueBackendRabbitMQ:
		queue, err := rabbitmq.Dial(cfg.Queue.AMQPURL, domain.Queues)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect queue broker: %w", err)
		}
		return queue, func() {
			if err := queue.Close(); err != nil {
				slog.Error("Failed to close queue broker", "error", err)
			}
		}, nil
	default:
		return store, func() {}, nil
	}
}

// seedRegistrations makes every configured callback URL a catch-all registration.
func seedRegistrations(ctx context.Context, store *sqlite.Store, cfg config.WebhookConfig) error {
	for _, url := range cfg.URLs {
		reg, err := store.UpsertRegistration(ctx, domain.WebhookRegistration{
			URL:    url,
			Token:  cfg.Token,
			Secret: cfg.Secret,
		})
		if err != nil {
			return fmt.Errorf("failed to register webhook %s: %w", url, err)
		}
		slog.Info("Webhook registered", "registration_id", reg.ID, "url", reg.URL)
	}
	return nil
}

func logDBLatencyStats(ctx context.Context, log *slog.Logger, database *db.Database) {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		stats := database.QueryLatencyStats()
		if len(stats) == 0 {
			continue
		}
		limit := 5
		if len(stats) < limit {
			limit = len(stats)
		}
		for index := 0; index < limit; index++ {
			entry := stats[index]
			log.Info("db_query_latency",
				"query", entry.Name,
				"queue", entry.Queue,
				"count", entry.Count,
				"p50_ms", entry.P50.Milliseconds(),
				"p95_ms", entry.P95.Milliseconds(),
				"max_ms", entry.Max.Milliseconds(),
			)
		}
	}
}
