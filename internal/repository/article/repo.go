package article

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain"
	domart "github.com/kailas-cloud/docdex/internal/domain/article"
	"github.com/kailas-cloud/docdex/internal/domain/article/patch"
)

// store is the consumer interface for articles (ISP).
//
//nolint:interfacebloat // article repo needs document + index management operations
type store interface {
	Put(ctx context.Context, index, id string, doc []byte) error
	Get(ctx context.Context, index, id string) ([]byte, error)
	Update(ctx context.Context, index, id string, partial []byte) error
	Delete(ctx context.Context, index, id string) error
	Search(ctx context.Context, index string, body map[string]any) (*db.SearchResult, error)
	Count(ctx context.Context, index string, body map[string]any) (int, error)
	DeleteByQuery(ctx context.Context, index string, body map[string]any, batchSize int) (int64, error)
	EnsureIndex(ctx context.Context, name string, m *db.Mapping) error
}

// IndexSettings configures the articles index created on startup.
type IndexSettings struct {
	Shards     int
	Replicas   int
	VectorDims int
}

// Repo implements usecase/article.Repository.
type Repo struct {
	store store
	index string
	idx   IndexSettings
}

// New creates an article repository over the index {prefix}_articles.
func New(s store, prefix string, idx IndexSettings) *Repo {
	if prefix == "" {
		prefix = "docdex"
	}
	if idx.Shards <= 0 {
		idx.Shards = 1
	}
	if idx.VectorDims <= 0 {
		idx.VectorDims = domain.DefaultVectorDims
	}
	return &Repo{store: s, index: prefix + "_articles", idx: idx}
}

// Index returns the backing index name.
func (r *Repo) Index() string { return r.index }

// EnsureIndex creates the articles index if it does not exist.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	m := buildMapping(r.idx.Shards, r.idx.Replicas, r.idx.VectorDims)
	if err := r.store.EnsureIndex(ctx, r.index, m); err != nil {
		return translate("ensure index "+r.index, err)
	}
	return nil
}

// Put stores an article under its ID. An existing document with the same
// ID is overwritten.
func (r *Repo) Put(ctx context.Context, a *domart.Article) error {
	data, err := json.Marshal(toDoc(a))
	if err != nil {
		return fmt.Errorf("marshal article: %w", err)
	}
	if err := r.store.Put(ctx, r.index, a.ID(), data); err != nil {
		return translate("put article "+a.ID(), err)
	}
	return nil
}

// Get returns an article by ID.
func (r *Repo) Get(ctx context.Context, id string) (domart.Article, error) {
	raw, err := r.store.Get(ctx, r.index, id)
	if err != nil {
		return domart.Article{}, translate("get article "+id, err)
	}

	var d doc
	if err := json.Unmarshal(raw, &d); err != nil {
		return domart.Article{}, fmt.Errorf("decode article %s: %w", id, err)
	}
	return fromDoc(id, d), nil
}

// Update merges the patch fields into the stored document and bumps
// updated_at. A changed title invalidates the stored vector: newVector
// replaces it when the caller re-embedded, otherwise it is cleared.
func (r *Repo) Update(ctx context.Context, id string, p patch.Patch, newVector []float32) error {
	partial := buildPartial(p, newVector)
	data, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("marshal partial: %w", err)
	}

	if err := r.store.Update(ctx, r.index, id, data); err != nil {
		if errors.Is(err, db.ErrConflict) {
			return fmt.Errorf("concurrent update of %s: %w", id, domain.ErrAlreadyExists)
		}
		return translate("update article "+id, err)
	}
	return nil
}

// Delete removes an article.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, r.index, id); err != nil {
		return translate("delete article "+id, err)
	}
	return nil
}

// List returns a page of articles, newest first, with the total count.
func (r *Repo) List(ctx context.Context, limit, offset int) ([]domart.Article, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	body := db.NewQuery().
		Sort("created_at", "desc").
		From(offset).
		Size(limit).
		TrackTotalHits().
		Build()

	sr, err := r.store.Search(ctx, r.index, body)
	if err != nil {
		return nil, 0, translate("list articles", err)
	}

	articles := make([]domart.Article, 0, len(sr.Hits))
	for _, h := range sr.Hits {
		var d doc
		if err := json.Unmarshal(h.Source, &d); err != nil {
			return nil, 0, fmt.Errorf("decode article %s: %w", h.ID, err)
		}
		articles = append(articles, fromDoc(h.ID, d))
	}
	return articles, sr.Total, nil
}

// Count returns the number of stored articles.
func (r *Repo) Count(ctx context.Context) (int, error) {
	body := map[string]any{"query": db.NewQuery().BuildQueryOnly()}
	n, err := r.store.Count(ctx, r.index, body)
	if err != nil {
		return 0, translate("count articles", err)
	}
	return n, nil
}

// DeleteOlderThan removes ingested articles (source is set) created at or
// before the cutoff. Returns the number of deleted documents.
func (r *Repo) DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	q := db.NewQuery().
		Range("created_at", nil, cutoff.UTC().Format(time.RFC3339)).
		Exists("source")
	body := map[string]any{"query": q.BuildQueryOnly()}

	n, err := r.store.DeleteByQuery(ctx, r.index, body, batchSize)
	if err != nil {
		return n, translate("delete articles older than "+cutoff.Format(time.RFC3339), err)
	}
	return n, nil
}

// translate maps driver sentinels onto domain ones, keeping the chain.
func translate(op string, err error) error {
	switch {
	case errors.Is(err, db.ErrDocNotFound):
		return domain.ErrDocumentNotFound
	case errors.Is(err, db.ErrUnavailable):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// buildPartial converts a patch into the partial document body.
func buildPartial(p patch.Patch, newVector []float32) map[string]any {
	m := make(map[string]any, 9)
	if p.Title() != nil {
		m["title"] = *p.Title()
	}
	if p.Content() != nil {
		m["content"] = *p.Content()
	}
	if p.Author() != nil {
		m["author"] = *p.Author()
	}
	if p.Category() != nil {
		m["category"] = *p.Category()
	}
	if p.Tags() != nil {
		m["tags"] = *p.Tags()
	}
	if p.Views() != nil {
		m["views"] = *p.Views()
	}
	if p.Rating() != nil {
		m["rating"] = *p.Rating()
	}
	if loc := p.Location(); loc != nil {
		m["location"] = geoPoint{Lat: loc.Lat(), Lon: loc.Lon()}
	}

	switch {
	case newVector != nil:
		m["title_vector"] = newVector
	case p.HasTitle():
		// Пересчёт не выполнялся — сбрасываем устаревший вектор.
		m["title_vector"] = nil
	}

	m["updated_at"] = time.Now().UTC()
	return m
}
