package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/docdex/internal/config"
	dbElastic "github.com/kailas-cloud/docdex/internal/db/elastic"
	logpkg "github.com/kailas-cloud/docdex/internal/logger"
	"github.com/kailas-cloud/docdex/internal/metrics"
	articlerepo "github.com/kailas-cloud/docdex/internal/repository/article"
	kafkaTransport "github.com/kailas-cloud/docdex/internal/transport/kafka"
	articleuc "github.com/kailas-cloud/docdex/internal/usecase/article"
	ingestuc "github.com/kailas-cloud/docdex/internal/usecase/ingest"
	"github.com/kailas-cloud/docdex/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if len(cfg.Kafka.Brokers) == 0 {
		logger.Fatal("kafka.brokers is required for the ingest worker")
	}

	logger.Info("Starting docdex ingest worker",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Strings("kafka_brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group", cfg.Kafka.GroupID),
		zap.String("dlq_topic", cfg.Kafka.DLQTopic),
	)

	store, err := dbElastic.NewStore(dbElastic.Config{
		Addrs:          cfg.Elasticsearch.Addrs,
		Username:       cfg.Elasticsearch.Username,
		Password:       cfg.Elasticsearch.Password,
		RequestTimeout: time.Duration(cfg.Elasticsearch.RequestTimeoutSec) * time.Second,
		MaxRetries:     cfg.Elasticsearch.MaxRetries,
	})
	if err != nil {
		logger.Fatal("Failed to create Elasticsearch store", zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logpkg.ContextWithLogger(ctx, logger)

	readiness := time.Duration(cfg.Elasticsearch.ReadinessTimeoutSec) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("Elasticsearch not ready", zap.Error(err))
	}
	logger.Info("Connected to Elasticsearch")

	metrics.RegisterIngestMetrics()

	// The worker may boot before the API server, so it ensures the
	// articles index itself. Dimensions must match the API config.
	articleRepo := articlerepo.New(store, cfg.Elasticsearch.IndexPrefix, articlerepo.IndexSettings{
		Shards:     cfg.Elasticsearch.Shards,
		Replicas:   cfg.Elasticsearch.Replicas,
		VectorDims: cfg.Embedding.Dimensions,
	})
	if err := articleRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure articles index", zap.Error(err))
	}

	// Ingested articles are stored without vectors: embedding inside the
	// consume loop would couple ingest latency to the provider. Keyword
	// and geo search cover them; the API update path can backfill vectors.
	articleSvc := articleuc.New(articleRepo, nil)
	ingestSvc := ingestuc.New(
		articleSvc,
		cfg.Kafka.DedupeSize,
		time.Duration(cfg.Kafka.DedupeWindowSec)*time.Second,
	)

	handler := func(ctx context.Context, payload []byte) error {
		out := ingestSvc.Process(ctx, payload)
		if out.Failed() {
			return out.Err()
		}
		// Context logger carries the partition/offset set by the consumer.
		logpkg.FromContext(ctx).Debug("event processed",
			zap.String("id", out.ID()),
			zap.String("outcome", string(out.Status())),
		)
		return nil
	}

	consumer, err := kafkaTransport.NewConsumer(kafkaTransport.Config{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		GroupID:  cfg.Kafka.GroupID,
		DLQTopic: cfg.Kafka.DLQTopic,
	}, handler, logger)
	if err != nil {
		logger.Fatal("Failed to create Kafka consumer", zap.Error(err))
	}
	defer func() { _ = consumer.Close() }()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.Run(gctx)
	})

	if cfg.Retention.Enabled {
		g.Go(func() error {
			runRetention(gctx, articleRepo, cfg.Retention, logger)
			return nil
		})
	} else {
		logger.Info("Retention disabled")
	}

	g.Go(func() error {
		return serveOps(gctx, cfg.HTTP.Port, logger)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("Worker failed", zap.Error(err))
	}
	logger.Info("Worker stopped gracefully")
}

// runRetention prunes ingested articles past their retention age. Sweeps
// once at startup, then on every tick.
func runRetention(ctx context.Context, repo *articlerepo.Repo, cfg config.RetentionConfig, logger *zap.Logger) {
	interval := time.Duration(cfg.IntervalSec) * time.Second
	maxAge := time.Duration(cfg.MaxAgeDays) * 24 * time.Hour

	logger.Info("Retention loop started",
		zap.Duration("interval", interval),
		zap.Int("max_age_days", cfg.MaxAgeDays),
		zap.Int("batch_size", cfg.BatchSize),
	)

	sweep := func() {
		cutoff := time.Now().UTC().Add(-maxAge)
		n, err := repo.DeleteOlderThan(ctx, cutoff, cfg.BatchSize)
		if err != nil {
			logger.Error("Retention sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			metrics.IngestRetentionDeletedTotal.Add(float64(n))
			logger.Info("Retention sweep removed articles",
				zap.Int64("deleted", n),
				zap.Time("cutoff", cutoff),
			)
		}
	}

	sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

// serveOps exposes liveness and Prometheus metrics for the worker.
func serveOps(ctx context.Context, port int, logger *zap.Logger) error {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","service":"` + version.Service + `-worker"}`))
	})
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		promhttp.Handler().ServeHTTP(w, req)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Worker ops server started", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	}
}
