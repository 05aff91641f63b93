package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain/search/filter"
	"github.com/kailas-cloud/docdex/internal/domain/search/mode"
	"github.com/kailas-cloud/docdex/internal/domain/search/request"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchFn func(ctx context.Context, index string, body map[string]any) (*db.SearchResult, error)
}

func (m *mockStore) Search(ctx context.Context, index string, body map[string]any) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, index, body)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, "docdex")
	return repo, ms
}

// keywordRequest builds a plain keyword request.
func keywordRequest(t *testing.T, query string, limit, offset int) *request.Request {
	t.Helper()
	req, err := request.New(query, mode.Keyword, filter.Expression{}, nil, limit, offset, nil, nil, "")
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &req
}

const hitSourceJSON = `{
	"title": "Scaling search",
	"content": "Full text body.",
	"author": "ivan",
	"category": "tech",
	"tags": ["go", "search"],
	"views": 7,
	"rating": 4.5,
	"created_at": "2024-05-01T12:00:00Z",
	"updated_at": "2024-05-01T12:00:00Z"
}`
