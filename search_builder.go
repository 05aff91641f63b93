package docdex

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain/geo"
)

// Hit is a typed search result.
type Hit[T any] struct {
	ID    string
	Score float64
	// Distance is the meters from the query point (geo searches only).
	Distance float64
	Doc      T
}

// Hits is one page of typed results with the total match count.
type Hits[T any] struct {
	Total int
	Items []Hit[T]
}

// Builder is a fluent builder for typed search queries.
type Builder[T any] struct {
	idx *Index[T]

	query string
	mode  SearchMode

	filters []builderFilter

	lat, lon     float64
	radiusMeters float64
	hasGeo       bool

	sortField string
	sortOrder SortOrder

	limit  int
	offset int
}

// builderFilter is one pre-filter clause.
type builderFilter struct {
	field    string
	term     *string
	terms    []string
	gte, lte *float64
}

// Query sets the text query for keyword, semantic and hybrid search.
func (b *Builder[T]) Query(q string) *Builder[T] {
	b.query = q
	return b
}

// Mode sets the search mode. Defaults to keyword.
func (b *Builder[T]) Mode(m SearchMode) *Builder[T] {
	b.mode = m
	return b
}

// Term adds an exact-match filter.
func (b *Builder[T]) Term(field, value string) *Builder[T] {
	b.filters = append(b.filters, builderFilter{field: field, term: &value})
	return b
}

// Terms adds an any-of filter.
func (b *Builder[T]) Terms(field string, values ...string) *Builder[T] {
	b.filters = append(b.filters, builderFilter{field: field, terms: values})
	return b
}

// Range adds a numeric range filter. Nil bounds are open; see Float.
func (b *Builder[T]) Range(field string, gte, lte *float64) *Builder[T] {
	b.filters = append(b.filters, builderFilter{field: field, gte: gte, lte: lte})
	return b
}

// Near sets the center for a geo radius search.
func (b *Builder[T]) Near(lat, lon float64) *Builder[T] {
	b.lat, b.lon = lat, lon
	b.hasGeo = true
	return b
}

// Within sets the geo search radius in meters.
func (b *Builder[T]) Within(meters float64) *Builder[T] {
	b.radiusMeters = meters
	return b
}

// SortBy orders results by a field instead of relevance.
func (b *Builder[T]) SortBy(field string, order SortOrder) *Builder[T] {
	b.sortField = field
	b.sortOrder = order
	return b
}

// Offset skips the first n results.
func (b *Builder[T]) Offset(n int) *Builder[T] {
	b.offset = n
	return b
}

// Limit caps the number of results. Defaults to 10.
func (b *Builder[T]) Limit(n int) *Builder[T] {
	b.limit = n
	return b
}

// Do executes the search. Geo applies when Near was called; otherwise the
// mode decides: keyword (default), semantic or hybrid.
func (b *Builder[T]) Do(ctx context.Context) (_ Hits[T], err error) {
	start := time.Now()
	defer func() { b.idx.client.obs.observe("index.search", start, err) }()

	if b.hasGeo {
		return b.doGeo(ctx)
	}
	switch b.mode {
	case ModeSemantic:
		return b.doSemantic(ctx)
	case ModeHybrid:
		return b.doHybrid(ctx)
	case ModeGeo:
		return Hits[T]{}, fmt.Errorf("geo mode needs Near and Within: %w", ErrGeoQueryInvalid)
	default:
		return b.doKeyword(ctx)
	}
}

func (b *Builder[T]) doKeyword(ctx context.Context) (Hits[T], error) {
	q := b.baseQuery().TrackTotalHits()
	if b.query != "" {
		if len(b.idx.meta.textFields) == 0 {
			return Hits[T]{}, fmt.Errorf("schema has no text fields: %w", ErrInvalidQuery)
		}
		q.MultiMatch(b.query, b.idx.meta.textFields...)
	}
	if b.sortField != "" {
		q.Sort(b.sortField, b.order())
	}
	sr, err := b.search(ctx, q)
	if err != nil {
		return Hits[T]{}, fmt.Errorf("keyword search: %w", err)
	}
	return b.toHits(sr, false)
}

func (b *Builder[T]) doSemantic(ctx context.Context) (Hits[T], error) {
	vec, err := b.embedQuery(ctx)
	if err != nil {
		return Hits[T]{}, err
	}
	q := b.baseQuery().KNN(vectorField, vec, b.k(), 0)
	sr, err := b.search(ctx, q)
	if err != nil {
		return Hits[T]{}, fmt.Errorf("semantic search: %w", err)
	}
	return b.toHits(sr, false)
}

// doHybrid fans out the keyword and KNN branches and fuses them with
// reciprocal rank fusion. The first branch error cancels the sibling.
func (b *Builder[T]) doHybrid(ctx context.Context) (Hits[T], error) {
	vec, err := b.embedQuery(ctx)
	if err != nil {
		return Hits[T]{}, err
	}
	if len(b.idx.meta.textFields) == 0 {
		return Hits[T]{}, fmt.Errorf("schema has no text fields: %w", ErrInvalidQuery)
	}

	var kw, sem *db.SearchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q := b.baseQuery().TrackTotalHits().MultiMatch(b.query, b.idx.meta.textFields...)
		r, kwErr := b.search(gctx, q)
		if kwErr != nil {
			return kwErr
		}
		kw = r
		return nil
	})
	g.Go(func() error {
		q := b.baseQuery().KNN(vectorField, vec, b.k(), 0)
		r, semErr := b.search(gctx, q)
		if semErr != nil {
			return semErr
		}
		sem = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return Hits[T]{}, fmt.Errorf("hybrid search: %w", err)
	}

	kwHits, err := b.toHits(kw, false)
	if err != nil {
		return Hits[T]{}, err
	}
	semHits, err := b.toHits(sem, false)
	if err != nil {
		return Hits[T]{}, err
	}
	return Hits[T]{
		// The union size is unknown client-side; report the larger branch.
		Total: max(kwHits.Total, semHits.Total),
		Items: fuseHits(kwHits.Items, semHits.Items, b.pageSize()),
	}, nil
}

func (b *Builder[T]) doGeo(ctx context.Context) (Hits[T], error) {
	if b.idx.meta.geoIdx == -1 {
		return Hits[T]{}, fmt.Errorf("schema has no geo field: %w", ErrGeoQueryInvalid)
	}
	if !geo.ValidateCoordinates(b.lat, b.lon) {
		return Hits[T]{}, fmt.Errorf("invalid coordinates (%v, %v): %w", b.lat, b.lon, ErrGeoQueryInvalid)
	}
	if !geo.ValidateRadius(b.radiusMeters) {
		return Hits[T]{}, fmt.Errorf("invalid radius %v meters: %w", b.radiusMeters, ErrGeoQueryInvalid)
	}

	field := b.idx.meta.geoName
	q := b.baseQuery().
		TrackTotalHits().
		GeoDistance(field, b.lat, b.lon, b.radiusMeters).
		SortGeoDistance(field, b.lat, b.lon)
	sr, err := b.search(ctx, q)
	if err != nil {
		return Hits[T]{}, fmt.Errorf("geo search: %w", err)
	}
	return b.toHits(sr, true)
}

// baseQuery assembles the filters and paging shared by all modes.
func (b *Builder[T]) baseQuery() *db.Query {
	q := db.NewQuery().
		From(b.pageOffset()).
		Size(b.pageSize()).
		Source(b.idx.meta.sourceFields()...)
	for _, f := range b.filters {
		switch {
		case f.term != nil:
			q.Term(f.field, *f.term)
		case len(f.terms) > 0:
			q.Terms(f.field, f.terms)
		default:
			var gte, lte any
			if f.gte != nil {
				gte = *f.gte
			}
			if f.lte != nil {
				lte = *f.lte
			}
			q.Range(f.field, gte, lte)
		}
	}
	return q
}

func (b *Builder[T]) embedQuery(ctx context.Context) ([]float32, error) {
	if b.idx.client.embedder == nil {
		return nil, fmt.Errorf("embedder not configured (use WithEmbedder or WithEmbeddingOpenAI): %w",
			ErrInvalidQuery)
	}
	if b.query == "" {
		return nil, fmt.Errorf("query text is required for mode %q: %w", b.mode, ErrInvalidQuery)
	}
	res, err := b.idx.client.embedder.Embed(ctx, b.query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return res.Embedding, nil
}

func (b *Builder[T]) search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	sr, err := b.idx.client.store.Search(ctx, b.idx.fullName(), q.Build())
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return sr, nil
}

func (b *Builder[T]) toHits(sr *db.SearchResult, withDistance bool) (Hits[T], error) {
	out := Hits[T]{Total: sr.Total, Items: make([]Hit[T], 0, len(sr.Hits))}
	for _, h := range sr.Hits {
		var doc map[string]any
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			return Hits[T]{}, fmt.Errorf("decode hit %s: %w", h.ID, err)
		}
		item, err := b.idx.meta.fromDoc(h.ID, doc)
		if err != nil {
			return Hits[T]{}, err
		}
		typed, ok := item.(T)
		if !ok {
			continue
		}
		hit := Hit[T]{ID: h.ID, Score: h.Score, Doc: typed}
		if withDistance && len(h.Sort) > 0 {
			if meters, ok := h.Sort[0].(float64); ok {
				hit.Distance = meters
			}
		}
		out.Items = append(out.Items, hit)
	}
	return out, nil
}

func (b *Builder[T]) order() string {
	if b.sortOrder == SortDesc {
		return "desc"
	}
	return "asc"
}

// k covers the requested page for KNN retrieval.
func (b *Builder[T]) k() int {
	return b.pageOffset() + b.pageSize()
}

func (b *Builder[T]) pageSize() int {
	if b.limit <= 0 {
		return 10
	}
	return b.limit
}

func (b *Builder[T]) pageOffset() int {
	if b.offset < 0 {
		return 0
	}
	return b.offset
}

// rrfFuseK is the Reciprocal Rank Fusion constant (standard value from
// Cormack et al. 2009).
const rrfFuseK = 60

// fuseHits merges the keyword and semantic rankings via Reciprocal Rank
// Fusion. A document found by both branches outranks one found by a single
// branch at the same position. Ties break on ID for stable output.
func fuseHits[T any](keyword, semantic []Hit[T], limit int) []Hit[T] {
	type scored struct {
		hit   Hit[T]
		score float64
	}
	merged := make(map[string]*scored, len(keyword)+len(semantic))

	for rank, h := range keyword {
		merged[h.ID] = &scored{hit: h, score: 1.0 / float64(rrfFuseK+rank+1)}
	}
	for rank, h := range semantic {
		s := 1.0 / float64(rrfFuseK+rank+1)
		if existing, ok := merged[h.ID]; ok {
			existing.score += s
		} else {
			merged[h.ID] = &scored{hit: h, score: s}
		}
	}

	out := make([]Hit[T], 0, len(merged))
	for _, s := range merged {
		h := s.hit
		h.Score = s.score
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
