// Package search dispatches document search across keyword, semantic,
// hybrid, and geo modes.
package search

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/domain/search/mode"
	"github.com/kailas-cloud/docdex/internal/domain/search/request"
	"github.com/kailas-cloud/docdex/internal/domain/search/result"
)

// Service routes validated search requests to the matching retrieval path.
type Service struct {
	repo  Repository
	embed Embedder
}

// New creates a search service. embed may be nil when semantic search is
// not configured; semantic and hybrid requests then fail with ErrInvalidQuery.
func New(repo Repository, embed Embedder) *Service {
	return &Service{repo: repo, embed: embed}
}

// Search executes a search request and returns one page of results.
func (s *Service) Search(ctx context.Context, req *request.Request) (*result.Page, error) {
	if req.IsSimilar() {
		return s.repo.Similar(ctx, req)
	}

	switch req.Mode() {
	case mode.Keyword:
		return s.repo.Keyword(ctx, req)
	case mode.Semantic:
		return s.searchSemantic(ctx, req)
	case mode.Hybrid:
		return s.searchHybrid(ctx, req)
	case mode.Geo:
		return s.repo.Geo(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported search mode %q: %w", req.Mode(), domain.ErrInvalidQuery)
	}
}

// embedQuery vectorizes the query text and records token usage.
func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.embed == nil {
		return nil, fmt.Errorf("semantic search requires a configured embedding provider: %w",
			domain.ErrInvalidQuery)
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)
	return embResult.Embedding, nil
}

func (s *Service) searchSemantic(ctx context.Context, req *request.Request) (*result.Page, error) {
	vector, err := s.embedQuery(ctx, req.Query())
	if err != nil {
		return nil, err
	}
	return s.repo.Semantic(ctx, req, vector)
}

// searchHybrid fans out the keyword and semantic branches in parallel and
// fuses them with RRF. The first branch error cancels the sibling.
func (s *Service) searchHybrid(ctx context.Context, req *request.Request) (*result.Page, error) {
	vector, err := s.embedQuery(ctx, req.Query())
	if err != nil {
		return nil, err
	}

	var kwPage, semPage *result.Page

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, kwErr := s.repo.Keyword(gctx, req)
		if kwErr != nil {
			return kwErr
		}
		kwPage = p
		return nil
	})
	g.Go(func() error {
		p, semErr := s.repo.Semantic(gctx, req, vector)
		if semErr != nil {
			return semErr
		}
		semPage = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := &result.Page{
		Results: fuseRRF(kwPage.Results, semPage.Results, req.Limit()),
		// The union size is unknown client-side; report the larger branch.
		Total:        max(kwPage.Total, semPage.Total),
		Aggregations: kwPage.Aggregations,
	}
	if fused.Aggregations == nil {
		fused.Aggregations = semPage.Aggregations
	}
	return fused, nil
}
