package docdex

import (
	"context"
	"fmt"
	"time"

	domart "github.com/kailas-cloud/docdex/internal/domain/article"
	"github.com/kailas-cloud/docdex/internal/domain/article/patch"
	"github.com/kailas-cloud/docdex/internal/domain/geo"
)

// ArticlesService manages documents in the articles index.
type ArticlesService struct {
	svc articleUseCase
	obs *observer
}

// Create stores an article. An existing ID is overwritten. When the client
// has an embedder the title is vectorized for semantic search.
func (s *ArticlesService) Create(ctx context.Context, a Article) (_ Article, err error) {
	start := time.Now()
	defer func() { s.obs.observe("articles.create", start, err) }()

	d, err := toInternalArticle(a)
	if err != nil {
		return Article{}, fmt.Errorf("create article: %w", err)
	}
	created, err := s.svc.Create(ctx, d)
	if err != nil {
		return Article{}, fmt.Errorf("create article: %w", err)
	}
	return fromInternalArticle(created), nil
}

// Get retrieves an article by ID.
func (s *ArticlesService) Get(ctx context.Context, id string) (_ Article, err error) {
	start := time.Now()
	defer func() { s.obs.observe("articles.get", start, err) }()

	d, err := s.svc.Get(ctx, id)
	if err != nil {
		return Article{}, fmt.Errorf("get article: %w", err)
	}
	return fromInternalArticle(d), nil
}

// Update applies a partial update. A changed title is re-vectorized when
// the client has an embedder.
func (s *ArticlesService) Update(ctx context.Context, id string, p ArticlePatch) (_ Article, err error) {
	start := time.Now()
	defer func() { s.obs.observe("articles.update", start, err) }()

	pp, err := toInternalPatch(p)
	if err != nil {
		return Article{}, fmt.Errorf("update article: %w", err)
	}
	d, err := s.svc.Update(ctx, id, pp)
	if err != nil {
		return Article{}, fmt.Errorf("update article: %w", err)
	}
	return fromInternalArticle(d), nil
}

// Delete removes an article by ID.
func (s *ArticlesService) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("articles.delete", start, err) }()

	if err = s.svc.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	return nil
}

// List returns a page of articles, newest first.
func (s *ArticlesService) List(ctx context.Context, limit, offset int) (_ ArticleList, err error) {
	start := time.Now()
	defer func() { s.obs.observe("articles.list", start, err) }()

	items, total, err := s.svc.List(ctx, limit, offset)
	if err != nil {
		return ArticleList{}, fmt.Errorf("list articles: %w", err)
	}
	out := make([]Article, len(items))
	for i, d := range items {
		out[i] = fromInternalArticle(d)
	}
	return ArticleList{Articles: out, Total: total}, nil
}

func toInternalArticle(a Article) (domart.Article, error) {
	loc, err := toInternalPoint(a.Location)
	if err != nil {
		return domart.Article{}, err
	}
	d, err := domart.New(a.ID, a.Title, a.Content, a.Author, a.Category,
		a.Tags, a.Views, a.Rating, loc)
	if err != nil {
		return domart.Article{}, fmt.Errorf("validate article: %w", err)
	}
	return d, nil
}

func fromInternalArticle(d domart.Article) Article {
	a := Article{
		ID:        d.ID(),
		Title:     d.Title(),
		Content:   d.Content(),
		Author:    d.Author(),
		Category:  d.Category(),
		Tags:      d.Tags(),
		Views:     d.Views(),
		Rating:    d.Rating(),
		Source:    d.Source(),
		CreatedAt: d.CreatedAt(),
		UpdatedAt: d.UpdatedAt(),
	}
	if p := d.Location(); p != nil {
		a.Location = &GeoPoint{Lat: p.Lat(), Lon: p.Lon()}
	}
	return a
}

func toInternalPatch(p ArticlePatch) (patch.Patch, error) {
	loc, err := toInternalPoint(p.Location)
	if err != nil {
		return patch.Patch{}, err
	}
	pp, err := patch.New(p.Title, p.Content, p.Author, p.Category,
		p.Tags, p.Views, p.Rating, loc)
	if err != nil {
		return patch.Patch{}, fmt.Errorf("validate patch: %w", err)
	}
	return pp, nil
}

func toInternalPoint(p *GeoPoint) (*geo.Point, error) {
	if p == nil {
		return nil, nil
	}
	pt, err := geo.NewPoint(p.Lat, p.Lon)
	if err != nil {
		return nil, err
	}
	return &pt, nil
}

// articleUseCase is the internal interface for article operations.
type articleUseCase interface {
	Create(ctx context.Context, a domart.Article) (domart.Article, error)
	Get(ctx context.Context, id string) (domart.Article, error)
	Update(ctx context.Context, id string, p patch.Patch) (domart.Article, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]domart.Article, int, error)
}
