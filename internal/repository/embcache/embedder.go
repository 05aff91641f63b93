// Package embcache caches embeddings in two tiers: an in-process LRU and an
// optional shared key-value store. Cache hits report zero token usage so the
// budget tracker only counts real provider calls.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// DefaultLocalSize is the in-process tier capacity when none is configured.
const DefaultLocalSize = 1000

// store is the consumer interface for the shared cache tier (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder is a caching decorator over an Embedder.
// Lookup order: local LRU, then the shared store, then the provider.
type CachedEmbedder struct {
	inner      domain.Embedder
	model      string
	local      *lru.Cache[string, []float32]
	shared     store
	sharedTTL  time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator with only the in-process tier.
// cacheTotal is a counter vec with label "result"
// ("hit_local"/"hit_shared"/"miss"), passed explicitly.
func New(
	inner domain.Embedder,
	model string,
	localSize int,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	if localSize <= 0 {
		localSize = DefaultLocalSize
	}
	local, _ := lru.New[string, []float32](localSize)
	return &CachedEmbedder{
		inner:      inner,
		model:      model,
		local:      local,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// WithSharedStore attaches the shared tier. Entries written there expire
// after ttl so stale vectors age out across deployments.
func (c *CachedEmbedder) WithSharedStore(s store, ttl time.Duration) *CachedEmbedder {
	c.shared = s
	c.sharedTTL = ttl
	return c
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
// Cache miss: full EmbeddingResult from inner, written to both tiers.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.local.Get(key); ok {
		c.incCache("hit_local")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	if vec, ok := c.getFromShared(ctx, key); ok {
		c.incCache("hit_shared")
		c.local.Add(key, vec)
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	c.incCache("miss")

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.local.Add(key, result.Embedding)
	c.putToShared(ctx, key, result.Embedding)
	return result, nil
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// cacheKey hashes the model together with the text so a model switch never
// serves vectors of the wrong dimensionality.
func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(c.model + "\x00" + text))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromShared(ctx context.Context, key string) ([]float32, bool) {
	if c.shared == nil {
		return nil, false
	}

	data, err := c.shared.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *CachedEmbedder) putToShared(ctx context.Context, key string, vec []float32) {
	if c.shared == nil {
		return
	}
	data := vectorToCacheBytes(vec)
	if err := c.shared.SetWithTTL(ctx, key, data, c.sharedTTL); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
