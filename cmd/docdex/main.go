package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/config"
	dbElastic "github.com/kailas-cloud/docdex/internal/db/elastic"
	dbRedis "github.com/kailas-cloud/docdex/internal/db/redis"
	"github.com/kailas-cloud/docdex/internal/domain"
	logpkg "github.com/kailas-cloud/docdex/internal/logger"
	"github.com/kailas-cloud/docdex/internal/metrics"
	articlerepo "github.com/kailas-cloud/docdex/internal/repository/article"
	budgetrepo "github.com/kailas-cloud/docdex/internal/repository/budget"
	"github.com/kailas-cloud/docdex/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/docdex/internal/repository/search"
	userrepo "github.com/kailas-cloud/docdex/internal/repository/user"
	chiTransport "github.com/kailas-cloud/docdex/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/docdex/internal/transport/openai"
	articleuc "github.com/kailas-cloud/docdex/internal/usecase/article"
	embeddinguc "github.com/kailas-cloud/docdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/docdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/docdex/internal/usecase/search"
	usageuc "github.com/kailas-cloud/docdex/internal/usecase/usage"
	useruc "github.com/kailas-cloud/docdex/internal/usecase/user"
	"github.com/kailas-cloud/docdex/internal/version"
)

func main() {
	// Load configuration based on ENV
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

	logger.Info("Starting docdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("es_addrs", cfg.Elasticsearch.Addrs),
		zap.String("index_prefix", cfg.Elasticsearch.IndexPrefix),
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

	ctx := context.Background()
	readiness := time.Duration(cfg.Elasticsearch.ReadinessTimeoutSec) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("Elasticsearch not ready", zap.Error(err))
	}
	logger.Info("Connected to Elasticsearch")

	// Optional shared cache. A missing cache degrades health but never
	// blocks startup: embeddings fall back to the in-process tier.
	var cache *dbRedis.Store
	if len(cfg.Cache.Addrs) > 0 {
		cache, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Warn("Shared cache unavailable, continuing without it", zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
			logger.Info("Connected to shared cache", zap.Strings("addrs", cfg.Cache.Addrs))
		}
	}

	// Register Prometheus metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterHTTPMetrics()

	// Single BudgetTracker shared between the embedder chain and /usage.
	var budget *embeddinguc.BudgetTracker
	budgetCfg := cfg.Embedding.Budget
	if cfg.Embedding.Enabled() && (budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0) {
		action := embeddinguc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			cfg.Embedding.Provider, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		if cache != nil {
			// Counter keys outlive their period slightly so restarts
			// within the period resume, not reset.
			budget.WithStore(ctx, budgetrepo.New(cache, 48*time.Hour, 62*24*time.Hour))
		}
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker embeddinguc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	var embedder domain.Embedder
	if cfg.Embedding.Enabled() {
		embedder = buildEmbedder(cfg, cache, budgetChecker, logger)
		logger.Info("Embedder created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	} else {
		logger.Info("Embeddings disabled, semantic and hybrid search unavailable")
	}

	// Create repositories (domain-native, no adapters)
	prefix := cfg.Elasticsearch.IndexPrefix
	articleRepo := articlerepo.New(store, prefix, articlerepo.IndexSettings{
		Shards:     cfg.Elasticsearch.Shards,
		Replicas:   cfg.Elasticsearch.Replicas,
		VectorDims: cfg.Embedding.Dimensions,
	})
	userRepo := userrepo.New(store, prefix, cfg.Elasticsearch.Shards, cfg.Elasticsearch.Replicas)
	searchRepo := searchrepo.New(store, prefix)

	if err := articleRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure articles index", zap.Error(err))
	}
	if err := userRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure users index", zap.Error(err))
	}
	logger.Info("Indices ready", zap.String("prefix", prefix))

	// Create use case services
	articleSvc := articleuc.New(articleRepo, embedder).
		WithPagination(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize).
		WithMaxOffset(cfg.Search.MaxOffset)
	userSvc := useruc.New(userRepo).
		WithPagination(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize).
		WithMaxOffset(cfg.Search.MaxOffset)
	searchSvc := searchuc.New(searchRepo, embedder)

	// Usage service — reads from shared BudgetTracker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usageuc.New(budgetReader)

	// Health service. cache stays nil when the shared cache is off.
	var cachePinger healthuc.CachePinger
	if cache != nil {
		cachePinger = cache
	}
	healthSvc := healthuc.New(store, cachePinger, cfg.Embedding.Enabled())

	// Create chi server
	server := chiTransport.NewServer(articleSvc, userSvc, searchSvc, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Routes())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
// The instrumented layer sits outermost so cache hits skip budget accounting.
func buildEmbedder(
	cfg config.Config,
	cache *dbRedis.Store,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) domain.Embedder {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
	})

	cached := embcache.New(base, cfg.Embedding.Model, cfg.Cache.LocalSize, metrics.EmbeddingCacheTotal, logger)
	if cache != nil {
		cached.WithSharedStore(cache, time.Duration(cfg.Cache.EmbeddingTTLSec)*time.Second)
	}

	return embeddinguc.NewInstrumentedEmbedder(
		cached, cfg.Embedding.Provider, cfg.Embedding.Model, budget, logger,
	)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
