package user

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/docdex/internal/db"
	domuser "github.com/kailas-cloud/docdex/internal/domain/user"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	putFn         func(ctx context.Context, index, id string, doc []byte) error
	getFn         func(ctx context.Context, index, id string) ([]byte, error)
	searchFn      func(ctx context.Context, index string, body map[string]any) (*db.SearchResult, error)
	ensureIndexFn func(ctx context.Context, name string, m *db.Mapping) error
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

func (m *mockStore) Search(ctx context.Context, index string, body map[string]any) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, index, body)
	}
	return &db.SearchResult{}, nil
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
	repo := New(ms, "docdex", 1, 0)
	return repo, ms
}

func testUser(t *testing.T) domuser.User {
	t.Helper()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return domuser.Reconstruct(
		"usr-1", "ivan", "ivan@example.com", "Ivan Petrov", "Search engineer.",
		true, created, created,
	)
}
