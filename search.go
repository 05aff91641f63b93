package docdex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/domain/search/aggregation"
	"github.com/kailas-cloud/docdex/internal/domain/search/filter"
	"github.com/kailas-cloud/docdex/internal/domain/search/mode"
	"github.com/kailas-cloud/docdex/internal/domain/search/request"
	"github.com/kailas-cloud/docdex/internal/domain/search/result"
)

// SearchService queries the articles index.
type SearchService struct {
	svc searchUseCase
	obs *observer
}

// Query searches by text. Mode defaults to keyword; semantic and hybrid
// need an embedder configured on the client. An empty query is valid in
// keyword mode when filters are present (filtered listing).
func (s *SearchService) Query(ctx context.Context, query string, opts *SearchOptions) (_ SearchPage, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.query", start, err) }()

	req, err := toInternalRequest(query, opts, nil, "")
	if err != nil {
		return SearchPage{}, fmt.Errorf("search: %w", err)
	}
	page, err := s.svc.Search(ctx, req)
	if err != nil {
		return SearchPage{}, fmt.Errorf("search: %w", err)
	}
	return fromInternalPage(page), nil
}

// Geo finds articles within radiusMeters of a point, nearest first.
func (s *SearchService) Geo(ctx context.Context, lat, lon, radiusMeters float64, opts *SearchOptions) (_ SearchPage, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.geo", start, err) }()

	gq := &request.GeoQuery{Lat: lat, Lon: lon, RadiusMeters: radiusMeters}
	req, err := toInternalRequest("", opts, gq, "")
	if err != nil {
		return SearchPage{}, fmt.Errorf("geo search: %w", err)
	}
	page, err := s.svc.Search(ctx, req)
	if err != nil {
		return SearchPage{}, fmt.Errorf("geo search: %w", err)
	}
	return fromInternalPage(page), nil
}

// Similar finds articles resembling a stored one.
func (s *SearchService) Similar(ctx context.Context, id string, opts *SearchOptions) (_ SearchPage, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.similar", start, err) }()

	req, err := toInternalRequest("", opts, nil, id)
	if err != nil {
		return SearchPage{}, fmt.Errorf("similar search: %w", err)
	}
	page, err := s.svc.Search(ctx, req)
	if err != nil {
		return SearchPage{}, fmt.Errorf("similar search: %w", err)
	}
	return fromInternalPage(page), nil
}

func toInternalRequest(query string, opts *SearchOptions, gq *request.GeoQuery, similarTo string) (*request.Request, error) {
	if opts == nil {
		opts = &SearchOptions{}
	}

	m := mode.Mode(opts.Mode)
	if gq != nil {
		m = mode.Geo
	}

	expr, err := toInternalFilters(opts.Filters)
	if err != nil {
		return nil, err
	}

	var sort *request.Sort
	if opts.SortBy != "" {
		order := request.Order(opts.SortOrder)
		if order == "" {
			order = request.OrderAsc
		}
		s, err := request.NewSort(opts.SortBy, order)
		if err != nil {
			return nil, err
		}
		sort = &s
	}

	aggs, err := toInternalAggs(opts.Aggregations)
	if err != nil {
		return nil, err
	}

	req, err := request.New(query, m, expr, gq, opts.Limit, opts.Offset, sort, aggs, similarTo)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func toInternalFilters(fs []Filter) (filter.Expression, error) {
	if len(fs) == 0 {
		return filter.Expression{}, nil
	}
	conds := make([]filter.Condition, 0, len(fs))
	for _, f := range fs {
		c, err := toInternalCondition(f)
		if err != nil {
			return filter.Expression{}, err
		}
		conds = append(conds, c)
	}
	return filter.NewExpression(conds)
}

func toInternalCondition(f Filter) (filter.Condition, error) {
	switch {
	case f.Term != "":
		return filter.NewTerm(f.Field, f.Term)
	case len(f.Terms) > 0:
		return filter.NewTerms(f.Field, f.Terms)
	case f.From != nil || f.To != nil:
		return filter.NewDateRange(f.Field, f.From, f.To)
	case f.GTE != nil || f.LTE != nil:
		return filter.NewNumRange(f.Field, f.GTE, f.LTE)
	default:
		return filter.Condition{}, fmt.Errorf("filter on %q needs a term, terms or range bound: %w",
			f.Field, domain.ErrInvalidQuery)
	}
}

func toInternalAggs(as []AggregationRequest) ([]aggregation.Request, error) {
	if len(as) == 0 {
		return nil, nil
	}
	out := make([]aggregation.Request, 0, len(as))
	for _, a := range as {
		var (
			req aggregation.Request
			err error
		)
		switch a.Kind {
		case AggTerms:
			req, err = aggregation.NewTerms(a.Name, a.Field, a.Size)
		case AggStats:
			req, err = aggregation.NewStats(a.Name, a.Field)
		default:
			err = fmt.Errorf("unknown aggregation kind %q: %w", a.Kind, domain.ErrInvalidQuery)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func fromInternalPage(p *result.Page) SearchPage {
	page := SearchPage{
		Total: p.Total,
		Hits:  make([]SearchHit, 0, len(p.Results)),
	}
	for _, r := range p.Results {
		hit := SearchHit{Article: fromInternalArticle(r.Article()), Score: r.Score()}
		if d := r.DistanceMeters(); d != nil {
			meters := *d
			hit.DistanceMeters = &meters
		}
		page.Hits = append(page.Hits, hit)
	}
	if len(p.Aggregations) > 0 {
		page.Aggregations = fromInternalAggs(p.Aggregations)
	}
	return page
}

func fromInternalAggs(in map[string]aggregation.Result) map[string]Aggregation {
	out := make(map[string]Aggregation, len(in))
	for name, a := range in {
		agg := Aggregation{Kind: AggregationKind(a.Kind)}
		for _, b := range a.Buckets {
			agg.Buckets = append(agg.Buckets, Bucket{Key: b.Key, Count: b.DocCount})
		}
		if a.Stats != nil {
			agg.Stats = &Stats{
				Count: a.Stats.Count,
				Min:   a.Stats.Min,
				Max:   a.Stats.Max,
				Avg:   a.Stats.Avg,
				Sum:   a.Stats.Sum,
			}
		}
		out[name] = agg
	}
	return out
}

// searchUseCase is the internal interface for search operations.
type searchUseCase interface {
	Search(ctx context.Context, req *request.Request) (*result.Page, error)
}
