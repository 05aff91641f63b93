package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain"
)

func TestEmbed_Miss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2, 0.3},
		PromptTokens: 10,
		TotalTokens:  10,
	}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	// GET → ErrKeyNotFound (miss in both tiers)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, db.ErrKeyNotFound
	}

	var setCalled bool
	var setTTL time.Duration
	ms.setFn = func(_ context.Context, _ string, _ []byte, ttl time.Duration) error {
		setCalled = true
		setTTL = ttl
		return nil
	}

	result, err := ce.Embed(ctx, "test text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.1 {
		t.Fatalf("unexpected vector: %v", result.Embedding)
	}
	if result.TotalTokens != 10 {
		t.Fatalf("expected TotalTokens=10, got %d", result.TotalTokens)
	}
	if !setCalled {
		t.Fatal("expected shared tier put")
	}
	if setTTL != time.Hour {
		t.Errorf("expected TTL 1h, got %v", setTTL)
	}
}

func TestEmbed_LocalHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.1, 0.2, 0.3},
		TotalTokens: 10,
	}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, db.ErrKeyNotFound
	}

	// Первый вызов — miss, кладёт в LRU.
	if _, err := ce.Embed(ctx, "warm me up"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Second call must be a local hit: no shared GET, no inner call.
	var sharedGets int
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		sharedGets++
		return nil, db.ErrKeyNotFound
	}

	result, err := ce.Embed(ctx, "warm me up")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalTokens != 0 {
		t.Fatalf("expected TotalTokens=0 on cache hit, got %d", result.TotalTokens)
	}
	if sharedGets != 0 {
		t.Errorf("expected no shared lookups on local hit, got %d", sharedGets)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call total, got %d", inner.calls)
	}
}

func TestEmbed_SharedHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.1, 0.2, 0.3},
	}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	cached := vectorToCacheBytes([]float32{0.4, 0.5, 0.6})
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return cached, nil
	}

	result, err := ce.Embed(ctx, "test text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.4 {
		t.Fatalf("expected cached vector, got: %v", result.Embedding)
	}
	if result.TotalTokens != 0 {
		t.Fatalf("expected TotalTokens=0 on cache hit, got %d", result.TotalTokens)
	}
	if inner.calls != 0 {
		t.Errorf("expected no inner calls on shared hit, got %d", inner.calls)
	}

	// A shared hit backfills the local tier.
	var sharedGets int
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		sharedGets++
		return cached, nil
	}
	if _, err := ce.Embed(ctx, "test text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sharedGets != 0 {
		t.Errorf("expected local hit after backfill, got %d shared lookups", sharedGets)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("provider down")}
	ce, ms := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, db.ErrKeyNotFound
	}

	_, err := ce.Embed(ctx, "test text")
	if err == nil {
		t.Fatal("expected error from inner embedder")
	}
}

func TestEmbed_NoSharedTier(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.7},
		TotalTokens: 4,
	}}
	ce := New(inner, "test-model", 16, nil, zap.NewNop())

	result, err := ce.Embed(context.Background(), "standalone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalTokens != 4 {
		t.Fatalf("expected TotalTokens=4, got %d", result.TotalTokens)
	}

	// LRU still works without the shared store.
	result, err = ce.Embed(context.Background(), "standalone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalTokens != 0 || inner.calls != 1 {
		t.Fatalf("expected local hit, got tokens=%d calls=%d", result.TotalTokens, inner.calls)
	}
}

func TestCacheKey_DependsOnModel(t *testing.T) {
	inner := &mockEmbedder{}
	a := New(inner, "model-a", 16, nil, zap.NewNop())
	b := New(inner, "model-b", 16, nil, zap.NewNop())

	if a.cacheKey("same text") == b.cacheKey("same text") {
		t.Error("expected different keys for different models")
	}
	if a.cacheKey("same text") != a.cacheKey("same text") {
		t.Error("expected stable key for same model and text")
	}
}

func TestVectorRoundTrip(t *testing.T) {
	orig := []float32{0.1, -2.5, 3.75, 0}
	data := vectorToCacheBytes(orig)
	got, err := bytesToVector(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(orig) {
		t.Fatalf("length mismatch: %d != %d", len(got), len(orig))
	}
	for i := range orig {
		if got[i] != orig[i] {
			t.Errorf("index %d: %v != %v", i, got[i], orig[i])
		}
	}
}

func TestBytesToVector_Invalid(t *testing.T) {
	if _, err := bytesToVector([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated data")
	}
}
