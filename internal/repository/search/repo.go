package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain"
	domart "github.com/kailas-cloud/docdex/internal/domain/article"
	"github.com/kailas-cloud/docdex/internal/domain/geo"
	"github.com/kailas-cloud/docdex/internal/domain/search/aggregation"
	"github.com/kailas-cloud/docdex/internal/domain/search/filter"
	"github.com/kailas-cloud/docdex/internal/domain/search/request"
	"github.com/kailas-cloud/docdex/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	Search(ctx context.Context, index string, body map[string]any) (*db.SearchResult, error)
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store store
	index string
}

// New creates a search repository over the index {prefix}_articles.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = "docdex"
	}
	return &Repo{store: s, index: prefix + "_articles"}
}

// sourceFields keeps title_vector out of search responses.
var sourceFields = []string{
	"title", "content", "author", "category", "tags",
	"views", "rating", "source", "location", "created_at", "updated_at",
}

// Keyword runs a BM25 full-text search. Title matches weigh double.
// Without query text the filters alone select documents (match_all fallback).
func (r *Repo) Keyword(ctx context.Context, req *request.Request) (*result.Page, error) {
	q := db.NewQuery().
		From(req.Offset()).
		Size(req.Limit()).
		TrackTotalHits().
		Source(sourceFields...)
	if req.Query() != "" {
		q.MultiMatch(req.Query(), "title^2", "content")
	}
	applyFilters(q, req.Filters())
	if s := req.Sort(); s != nil {
		q.Sort(s.Field(), string(s.Order()))
	}
	applyAggs(q, req.Aggregations())

	sr, err := r.store.Search(ctx, r.index, q.Build())
	if err != nil {
		return nil, translate("keyword search", err)
	}
	return buildPage(sr, req.Aggregations(), false)
}

// Semantic runs approximate KNN retrieval over title_vector. The query
// vector comes from the caller; k covers the requested page.
func (r *Repo) Semantic(ctx context.Context, req *request.Request, vector []float32) (*result.Page, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector: %w", domain.ErrInvalidQuery)
	}

	k := req.Offset() + req.Limit()
	q := db.NewQuery().
		KNN("title_vector", vector, k, 0).
		From(req.Offset()).
		Size(req.Limit()).
		Source(sourceFields...)
	applyFilters(q, req.Filters())
	applyAggs(q, req.Aggregations())

	sr, err := r.store.Search(ctx, r.index, q.Build())
	if err != nil {
		return nil, translate("semantic search", err)
	}
	return buildPage(sr, req.Aggregations(), false)
}

// Geo runs a radius search sorted by distance from the center.
func (r *Repo) Geo(ctx context.Context, req *request.Request) (*result.Page, error) {
	scope := req.Geo()
	if scope == nil {
		return nil, fmt.Errorf("geo scope missing: %w", domain.ErrGeoQueryInvalid)
	}

	center := scope.Point()
	q := db.NewQuery().
		GeoDistance("location", center.Lat(), center.Lon(), scope.RadiusMeters()).
		SortGeoDistance("location", center.Lat(), center.Lon()).
		From(req.Offset()).
		Size(req.Limit()).
		TrackTotalHits().
		Source(sourceFields...)
	applyFilters(q, req.Filters())
	applyAggs(q, req.Aggregations())

	sr, err := r.store.Search(ctx, r.index, q.Build())
	if err != nil {
		return nil, translate("geo search", err)
	}
	return buildPage(sr, req.Aggregations(), true)
}

// Similar finds documents resembling a stored one via more_like_this.
func (r *Repo) Similar(ctx context.Context, req *request.Request) (*result.Page, error) {
	q := db.NewQuery().
		MoreLikeThis(r.index, req.SimilarTo(), "title", "content").
		From(req.Offset()).
		Size(req.Limit()).
		TrackTotalHits().
		Source(sourceFields...)
	applyFilters(q, req.Filters())
	applyAggs(q, req.Aggregations())

	sr, err := r.store.Search(ctx, r.index, q.Build())
	if err != nil {
		return nil, translate("similar search", err)
	}
	return buildPage(sr, req.Aggregations(), false)
}

// applyFilters converts domain filter conditions into query clauses.
func applyFilters(q *db.Query, expr filter.Expression) {
	for _, c := range expr.Conditions() {
		switch c.Kind() {
		case filter.KindTerm:
			q.Term(c.Field(), c.Value())
		case filter.KindTerms:
			q.Terms(c.Field(), c.Values())
		case filter.KindNumRange:
			var gte, lte any
			if c.GTE() != nil {
				gte = *c.GTE()
			}
			if c.LTE() != nil {
				lte = *c.LTE()
			}
			q.Range(c.Field(), gte, lte)
		case filter.KindDateRange:
			var from, to any
			if c.From() != nil {
				from = c.From().UTC().Format(time.RFC3339)
			}
			if c.To() != nil {
				to = c.To().UTC().Format(time.RFC3339)
			}
			q.Range(c.Field(), from, to)
		}
	}
}

// applyAggs attaches requested aggregations to the query.
func applyAggs(q *db.Query, aggs []aggregation.Request) {
	for _, a := range aggs {
		switch a.Kind() {
		case aggregation.KindTerms:
			q.TermsAgg(a.Name(), a.Field(), a.Size())
		case aggregation.KindStats:
			q.StatsAgg(a.Name(), a.Field())
		}
	}
}

// hitDoc is the stored document subset returned by searches.
type hitDoc struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Author   string   `json:"author"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Views    int      `json:"views"`
	Rating   float64  `json:"rating"`
	Source   string   `json:"source"`
	Location *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// buildPage converts a raw search result into domain results.
// withDistance extracts the geo sort value (meters) from each hit.
func buildPage(sr *db.SearchResult, reqAggs []aggregation.Request, withDistance bool) (*result.Page, error) {
	page := &result.Page{
		Total:   sr.Total,
		Results: make([]result.Result, 0, len(sr.Hits)),
	}

	for _, h := range sr.Hits {
		var d hitDoc
		if err := json.Unmarshal(h.Source, &d); err != nil {
			return nil, fmt.Errorf("decode hit %s: %w", h.ID, err)
		}
		a := toArticle(h.ID, d)

		if withDistance {
			if meters, ok := distanceFromSort(h.Sort); ok {
				page.Results = append(page.Results, result.NewWithDistance(a, h.Score, meters))
				continue
			}
		}
		page.Results = append(page.Results, result.New(a, h.Score))
	}

	if len(reqAggs) > 0 {
		aggs, err := parseAggs(reqAggs, sr.Aggregations)
		if err != nil {
			return nil, err
		}
		page.Aggregations = aggs
	}
	return page, nil
}

func toArticle(id string, d hitDoc) domart.Article {
	var loc *geo.Point
	if d.Location != nil {
		if p, err := geo.NewPoint(d.Location.Lat, d.Location.Lon); err == nil {
			loc = &p
		}
	}
	return domart.Reconstruct(
		id, d.Title, d.Content, d.Author, d.Category,
		d.Tags, d.Views, d.Rating, d.Source, loc,
		nil, d.CreatedAt, d.UpdatedAt,
	)
}

// distanceFromSort extracts the geo sort distance in meters.
func distanceFromSort(sortVals []any) (float64, bool) {
	if len(sortVals) == 0 {
		return 0, false
	}
	f, ok := sortVals[0].(float64)
	return f, ok
}

// parseAggs decodes raw aggregation payloads by their requested kind.
func parseAggs(
	reqs []aggregation.Request, raw map[string]json.RawMessage,
) (map[string]aggregation.Result, error) {
	out := make(map[string]aggregation.Result, len(reqs))
	for _, req := range reqs {
		data, ok := raw[req.Name()]
		if !ok {
			continue
		}

		switch req.Kind() {
		case aggregation.KindTerms:
			var parsed struct {
				Buckets []struct {
					Key      string `json:"key"`
					DocCount int    `json:"doc_count"`
				} `json:"buckets"`
			}
			if err := json.Unmarshal(data, &parsed); err != nil {
				return nil, fmt.Errorf("decode terms aggregation %s: %w", req.Name(), err)
			}
			buckets := make([]aggregation.Bucket, 0, len(parsed.Buckets))
			for _, b := range parsed.Buckets {
				buckets = append(buckets, aggregation.Bucket{Key: b.Key, DocCount: b.DocCount})
			}
			out[req.Name()] = aggregation.Result{Kind: aggregation.KindTerms, Buckets: buckets}

		case aggregation.KindStats:
			var parsed struct {
				Count int     `json:"count"`
				Min   float64 `json:"min"`
				Max   float64 `json:"max"`
				Avg   float64 `json:"avg"`
				Sum   float64 `json:"sum"`
			}
			if err := json.Unmarshal(data, &parsed); err != nil {
				return nil, fmt.Errorf("decode stats aggregation %s: %w", req.Name(), err)
			}
			out[req.Name()] = aggregation.Result{
				Kind: aggregation.KindStats,
				Stats: &aggregation.Stats{
					Count: parsed.Count, Min: parsed.Min, Max: parsed.Max,
					Avg: parsed.Avg, Sum: parsed.Sum,
				},
			}
		}
	}
	return out, nil
}

// translate maps driver sentinels onto domain ones, keeping the chain.
func translate(op string, err error) error {
	if errors.Is(err, db.ErrUnavailable) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
