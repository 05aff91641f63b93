package article

import (
	"context"

	"github.com/kailas-cloud/docdex/internal/domain"
	domart "github.com/kailas-cloud/docdex/internal/domain/article"
	"github.com/kailas-cloud/docdex/internal/domain/article/patch"
)

// Repository defines the storage contract for articles.
type Repository interface {
	Put(ctx context.Context, a *domart.Article) error
	Get(ctx context.Context, id string) (domart.Article, error)
	Update(ctx context.Context, id string, p patch.Patch, newVector []float32) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]domart.Article, int, error)
	Count(ctx context.Context) (int, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
