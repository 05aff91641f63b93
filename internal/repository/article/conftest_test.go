package article

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/docdex/internal/db"
	domart "github.com/kailas-cloud/docdex/internal/domain/article"
	"github.com/kailas-cloud/docdex/internal/domain/geo"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	putFn           func(ctx context.Context, index, id string, doc []byte) error
	getFn           func(ctx context.Context, index, id string) ([]byte, error)
	updateFn        func(ctx context.Context, index, id string, partial []byte) error
	deleteFn        func(ctx context.Context, index, id string) error
	searchFn        func(ctx context.Context, index string, body map[string]any) (*db.SearchResult, error)
	countFn         func(ctx context.Context, index string, body map[string]any) (int, error)
	deleteByQueryFn func(ctx context.Context, index string, body map[string]any, batchSize int) (int64, error)
	ensureIndexFn   func(ctx context.Context, name string, m *db.Mapping) error
}

func (m *mockStore) Put(ctx context.Context, index, id string, doc []byte) error {
	if m.putFn != nil {
		return m.putFn(ctx, index, id, doc)
	}
	return nil
}

func (m *mockStore) Get(ctx context.Context, index, id string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, index, id)
	}
	return nil, db.ErrDocNotFound
}

func (m *mockStore) Update(ctx context.Context, index, id string, partial []byte) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, index, id, partial)
	}
	return nil
}

func (m *mockStore) Delete(ctx context.Context, index, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, index, id)
	}
	return nil
}

func (m *mockStore) Search(ctx context.Context, index string, body map[string]any) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, index, body)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) Count(ctx context.Context, index string, body map[string]any) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, index, body)
	}
	return 0, nil
}

func (m *mockStore) DeleteByQuery(
	ctx context.Context, index string, body map[string]any, batchSize int,
) (int64, error) {
	if m.deleteByQueryFn != nil {
		return m.deleteByQueryFn(ctx, index, body, batchSize)
	}
	return 0, nil
}

func (m *mockStore) EnsureIndex(ctx context.Context, name string, mapping *db.Mapping) error {
	if m.ensureIndexFn != nil {
		return m.ensureIndexFn(ctx, name, mapping)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, "docdex", IndexSettings{VectorDims: 8})
	return repo, ms
}

func testArticle(t *testing.T) domart.Article {
	t.Helper()
	loc, err := geo.NewPoint(55.7558, 37.6173)
	if err != nil {
		t.Fatalf("geo.NewPoint: %v", err)
	}
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return domart.Reconstruct(
		"art-1", "Scaling search", "Full text body.", "ivan", "tech",
		[]string{"go", "search"}, 7, 4.5, "", &loc,
		[]float32{0.1, 0.2, 0.3}, created, created,
	)
}
