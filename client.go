package docdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/db/elastic"
	dbredis "github.com/kailas-cloud/docdex/internal/db/redis"
	"github.com/kailas-cloud/docdex/internal/domain"
	articlerepo "github.com/kailas-cloud/docdex/internal/repository/article"
	"github.com/kailas-cloud/docdex/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/docdex/internal/repository/search"
	userrepo "github.com/kailas-cloud/docdex/internal/repository/user"
	"github.com/kailas-cloud/docdex/internal/transport/openai"
	articleuc "github.com/kailas-cloud/docdex/internal/usecase/article"
	healthuc "github.com/kailas-cloud/docdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/docdex/internal/usecase/search"
	usageuc "github.com/kailas-cloud/docdex/internal/usecase/usage"
	useruc "github.com/kailas-cloud/docdex/internal/usecase/user"
)

const defaultReadinessTimeout = 10 * time.Second

// sharedCacheTTL matches the server default for cached embeddings.
const sharedCacheTTL = 7 * 24 * time.Hour

// Client is the docdex SDK entry point.
type Client struct {
	store db.Store
	cache db.Cache

	articleSvc *articleuc.Service
	userSvc    *useruc.Service
	searchSvc  *searchuc.Service
	usageSvc   usageUseCase
	healthSvc  healthUseCase

	indexPrefix string
	vectorDims  int
	embedder    domain.Embedder

	obs *observer
}

// New creates a docdex Client, connects to Elasticsearch and ensures the
// articles and users indices exist.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		indexPrefix: "docdex",
		vectorDims:  domain.DefaultVectorDims,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("docdex: elasticsearch address required (use WithAddresses)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := elastic.NewStore(elastic.Config{
		Addrs:          cfg.addrs,
		Username:       cfg.username,
		Password:       cfg.password,
		RequestTimeout: cfg.timeout,
		MaxRetries:     cfg.maxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("docdex: create store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("docdex: elasticsearch not ready: %w", err)
	}

	return wireClient(ctx, store, cfg, obs)
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	embedder, cache, err := buildEmbedder(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	articleRepo := articlerepo.New(store, cfg.indexPrefix, articlerepo.IndexSettings{
		VectorDims: cfg.vectorDims,
	})
	userRepo := userrepo.New(store, cfg.indexPrefix, 1, 0)
	searchRepo := searchrepo.New(store, cfg.indexPrefix)

	if err := articleRepo.EnsureIndex(ctx); err != nil {
		closeStores(store, cache)
		return nil, fmt.Errorf("docdex: ensure articles index: %w", err)
	}
	if err := userRepo.EnsureIndex(ctx); err != nil {
		closeStores(store, cache)
		return nil, fmt.Errorf("docdex: ensure users index: %w", err)
	}

	return &Client{
		store:       store,
		cache:       cache,
		articleSvc:  articleuc.New(articleRepo, embedder),
		userSvc:     useruc.New(userRepo),
		searchSvc:   searchuc.New(searchRepo, embedder),
		usageSvc:    usageuc.New(nil),
		healthSvc:   healthuc.New(store, cache, embedder != nil),
		indexPrefix: cfg.indexPrefix,
		vectorDims:  cfg.vectorDims,
		embedder:    embedder,
		obs:         obs,
	}, nil
}

// buildEmbedder assembles the embedding chain: provider, then an optional
// shared Redis cache tier. Quota enforcement stays a server concern.
func buildEmbedder(cfg *clientConfig) (domain.Embedder, db.Cache, error) {
	var emb domain.Embedder
	switch {
	case cfg.embedder != nil:
		emb = &embedderAdapter{inner: cfg.embedder}
	case cfg.openaiKey != "" || cfg.openaiBaseURL != "":
		emb = openai.NewEmbedder(&openai.Config{
			APIKey:     cfg.openaiKey,
			BaseURL:    cfg.openaiBaseURL,
			Model:      cfg.openaiModel,
			Dimensions: cfg.vectorDims,
		})
	default:
		return nil, nil, nil
	}

	if len(cfg.cacheAddrs) == 0 {
		return emb, nil, nil
	}

	cache, err := dbredis.NewStore(dbredis.Config{
		Addrs:    cfg.cacheAddrs,
		Password: cfg.cachePassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("docdex: create cache store: %w", err)
	}

	model := cfg.openaiModel
	if model == "" {
		model = domain.DefaultEmbeddingModel
	}
	cached := embcache.New(emb, model, 0, nil, zap.NewNop()).
		WithSharedStore(cache, sharedCacheTTL)
	return cached, cache, nil
}

func closeStores(store db.Store, cache db.Cache) {
	store.Close()
	if cache != nil {
		cache.Close()
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
	if c.cache != nil {
		c.cache.Close()
	}
}

// Ping checks Elasticsearch connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Articles returns the article management service.
func (c *Client) Articles() *ArticlesService {
	return &ArticlesService{svc: c.articleSvc, obs: c.obs}
}

// Users returns the user management service.
func (c *Client) Users() *UsersService {
	return &UsersService{svc: c.userSvc, obs: c.obs}
}

// Search returns the search service over the articles index.
func (c *Client) Search() *SearchService {
	return &SearchService{svc: c.searchSvc, obs: c.obs}
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
