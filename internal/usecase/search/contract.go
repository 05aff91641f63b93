package search

import (
	"context"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/domain/search/request"
	"github.com/kailas-cloud/docdex/internal/domain/search/result"
)

// Repository defines the storage contract for search operations.
type Repository interface {
	Keyword(ctx context.Context, req *request.Request) (*result.Page, error)
	Semantic(ctx context.Context, req *request.Request, vector []float32) (*result.Page, error)
	Geo(ctx context.Context, req *request.Request) (*result.Page, error)
	Similar(ctx context.Context, req *request.Request) (*result.Page, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
