// Package article implements article CRUD with automatic title vectorization.
package article

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	domart "github.com/kailas-cloud/docdex/internal/domain/article"
	"github.com/kailas-cloud/docdex/internal/domain/article/patch"
	"github.com/kailas-cloud/docdex/internal/domain/search/request"
	"github.com/kailas-cloud/docdex/internal/logger"
)

// Service handles article CRUD. When an embedder is configured the title
// is vectorized on create and on title updates.
type Service struct {
	repo            Repository
	embedder        Embedder
	defaultPageSize int
	maxPageSize     int
	maxOffset       int
}

// New creates an article service. embedder may be nil when semantic search
// is not configured.
func New(repo Repository, embedder Embedder) *Service {
	return &Service{
		repo:            repo,
		embedder:        embedder,
		defaultPageSize: request.DefaultLimit,
		maxPageSize:     request.MaxLimit,
		maxOffset:       request.MaxOffset,
	}
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// WithMaxOffset caps list pagination depth. Must stay within the index
// max_result_window or deep pages fail at the store.
func (s *Service) WithMaxOffset(maxOffset int) *Service {
	if maxOffset > 0 {
		s.maxOffset = maxOffset
	}
	return s
}

// Create stores a new article. A missing ID gets a generated UUID; a
// caller-supplied ID that already exists overwrites the stored document
// (index semantics). Returns the article as stored.
//
// A quota or rate-limit error from the embedder does not block the write:
// the article lands without a vector, so keyword and geo search keep
// working while semantic recall shrinks until a later update re-embeds.
func (s *Service) Create(ctx context.Context, a domart.Article) (domart.Article, error) {
	if a.ID() == "" {
		a = a.WithID(uuid.NewString())
	}

	if s.embedder != nil {
		result, err := s.embedder.Embed(ctx, a.Title())
		switch {
		case err == nil:
			domain.UsageFromContext(ctx).AddTokens(result.TotalTokens)
			a = a.WithVector(result.Embedding)
		case embedSkippable(err):
			logger.FromContext(ctx).Warn("embedding skipped, storing article without vector",
				zap.String("id", a.ID()), zap.Error(err))
		default:
			return domart.Article{}, fmt.Errorf("vectorize title: %w", err)
		}
	}

	if err := s.repo.Put(ctx, &a); err != nil {
		return domart.Article{}, fmt.Errorf("create article: %w", err)
	}
	return a, nil
}

// Get retrieves an article by ID.
func (s *Service) Get(ctx context.Context, id string) (domart.Article, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return domart.Article{}, fmt.Errorf("get article: %w", err)
	}
	return a, nil
}

// Update applies a partial update. A changed title is re-embedded so the
// stored vector keeps matching the text; other fields never touch it.
// Returns the updated article.
//
// On a quota or rate-limit error the update still lands; the stored vector
// keeps the previous title's embedding until a later update re-embeds.
func (s *Service) Update(ctx context.Context, id string, p patch.Patch) (domart.Article, error) {
	var newVector []float32
	if p.HasTitle() && s.embedder != nil {
		result, err := s.embedder.Embed(ctx, *p.Title())
		switch {
		case err == nil:
			domain.UsageFromContext(ctx).AddTokens(result.TotalTokens)
			newVector = result.Embedding
		case embedSkippable(err):
			logger.FromContext(ctx).Warn("re-embedding skipped, vector left unchanged",
				zap.String("id", id), zap.Error(err))
		default:
			return domart.Article{}, fmt.Errorf("vectorize updated title: %w", err)
		}
	}

	if err := s.repo.Update(ctx, id, p, newVector); err != nil {
		return domart.Article{}, fmt.Errorf("update article: %w", err)
	}

	updated, err := s.repo.Get(ctx, id)
	if err != nil {
		return domart.Article{}, fmt.Errorf("get updated article: %w", err)
	}
	return updated, nil
}

// embedSkippable reports whether an embed failure is a temporary capacity
// condition the write path degrades around rather than surfaces.
func embedSkippable(err error) bool {
	return errors.Is(err, domain.ErrEmbeddingQuotaExceeded) || errors.Is(err, domain.ErrRateLimited)
}

// Delete removes an article.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	return nil
}

// List returns a page of articles, newest first, and the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domart.Article, int, error) {
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	if offset > s.maxOffset {
		offset = s.maxOffset
	}

	articles, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}
	return articles, total, nil
}
