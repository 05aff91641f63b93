// Package request models a validated search request.
package request

import (
	"fmt"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/domain/geo"
	"github.com/kailas-cloud/docdex/internal/domain/search/aggregation"
	"github.com/kailas-cloud/docdex/internal/domain/search/filter"
	"github.com/kailas-cloud/docdex/internal/domain/search/mode"
)

// Search parameter limits.
const (
	MaxQueryLength  = 4096
	DefaultLimit    = 10
	MaxLimit        = 100
	MaxOffset       = 10000
	MaxAggregations = 8
)

// Order is a sort direction.
type Order string

// Sort directions.
const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Sort orders results by a numeric or date field.
type Sort struct {
	field string
	order Order
}

// NewSort validates a sort clause. Only numeric and date fields are sortable.
func NewSort(field string, order Order) (Sort, error) {
	if !filter.IsSortableField(field) {
		return Sort{}, fmt.Errorf("field %q is not sortable: %w", field, domain.ErrInvalidQuery)
	}
	if order != OrderAsc && order != OrderDesc {
		return Sort{}, fmt.Errorf("invalid sort order %q: %w", order, domain.ErrInvalidQuery)
	}
	return Sort{field: field, order: order}, nil
}

// Field returns the sort field.
func (s Sort) Field() string { return s.field }

// Order returns the sort direction.
func (s Sort) Order() Order { return s.order }

// GeoQuery holds raw geo search parameters before validation.
type GeoQuery struct {
	Lat          float64
	Lon          float64
	RadiusMeters float64
}

// Geo is a validated geo search scope.
type Geo struct {
	point        geo.Point
	radiusMeters float64
}

// Point returns the search center.
func (g Geo) Point() geo.Point { return g.point }

// RadiusMeters returns the search radius.
func (g Geo) RadiusMeters() float64 { return g.radiusMeters }

// Request is a validated search request.
type Request struct {
	query      string
	searchMode mode.Mode
	filters    filter.Expression
	geoScope   *Geo
	limit      int
	offset     int
	sort       *Sort
	aggs       []aggregation.Request
	similarTo  string
}

// New validates and normalizes search parameters.
// Defaults: mode=keyword, limit=10. Limit is clamped to 100, offset to 10000.
func New(
	query string,
	m mode.Mode,
	filters filter.Expression,
	geoQuery *GeoQuery,
	limit, offset int,
	sort *Sort,
	aggs []aggregation.Request,
	similarTo string,
) (Request, error) {
	if m == "" {
		m = mode.Keyword
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("invalid search mode %q: %w", m, domain.ErrInvalidQuery)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars): %w", MaxQueryLength, domain.ErrInvalidQuery)
	}

	if similarTo != "" {
		// similar_to is its own retrieval path; combining it with a non-default
		// mode is ambiguous.
		if m != mode.Keyword {
			return Request{}, fmt.Errorf("similar_to cannot be combined with mode %q: %w",
				m, domain.ErrInvalidQuery)
		}
	} else if m.NeedsQuery() && query == "" {
		// Keyword mode degrades to a filtered or sorted match_all listing;
		// embedding modes have nothing to vectorize without text.
		if m != mode.Keyword || (filters.IsEmpty() && sort == nil) {
			return Request{}, fmt.Errorf("query text is required for mode %q: %w", m, domain.ErrInvalidQuery)
		}
	}

	var geoScope *Geo
	switch {
	case m == mode.Geo:
		if geoQuery == nil {
			return Request{}, fmt.Errorf("geo mode requires coordinates and radius: %w", domain.ErrInvalidQuery)
		}
		point, err := geo.NewPoint(geoQuery.Lat, geoQuery.Lon)
		if err != nil {
			return Request{}, err
		}
		if !geo.ValidateRadius(geoQuery.RadiusMeters) {
			return Request{}, fmt.Errorf("invalid radius %v meters: %w",
				geoQuery.RadiusMeters, domain.ErrGeoQueryInvalid)
		}
		geoScope = &Geo{point: point, radiusMeters: geoQuery.RadiusMeters}
	case geoQuery != nil:
		return Request{}, fmt.Errorf("geo parameters require geo mode: %w", domain.ErrInvalidQuery)
	}

	if sort != nil && m != mode.Keyword {
		return Request{}, fmt.Errorf("explicit sort is only supported in keyword mode: %w", domain.ErrInvalidQuery)
	}

	if len(aggs) > MaxAggregations {
		return Request{}, fmt.Errorf("too many aggregations (max %d): %w", MaxAggregations, domain.ErrInvalidQuery)
	}
	seen := make(map[string]bool, len(aggs))
	for _, a := range aggs {
		if seen[a.Name()] {
			return Request{}, fmt.Errorf("duplicate aggregation name %q: %w", a.Name(), domain.ErrInvalidQuery)
		}
		seen[a.Name()] = true
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset > MaxOffset {
		offset = MaxOffset
	}

	return Request{
		query:      query,
		searchMode: m,
		filters:    filters,
		geoScope:   geoScope,
		limit:      limit,
		offset:     offset,
		sort:       sort,
		aggs:       aggs,
		similarTo:  similarTo,
	}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Mode returns the search strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Filters returns the pre-filter expression.
func (r *Request) Filters() filter.Expression { return r.filters }

// Geo returns the validated geo scope (nil outside geo mode).
func (r *Request) Geo() *Geo { return r.geoScope }

// Limit returns the page size.
func (r *Request) Limit() int { return r.limit }

// Offset returns the page offset.
func (r *Request) Offset() int { return r.offset }

// Sort returns the explicit sort clause, nil for score order.
func (r *Request) Sort() *Sort { return r.sort }

// Aggregations returns the requested aggregations.
func (r *Request) Aggregations() []aggregation.Request { return r.aggs }

// SimilarTo returns the reference document ID for more-like-this retrieval.
func (r *Request) SimilarTo() string { return r.similarTo }

// IsSimilar reports whether this is a more-like-this request.
func (r *Request) IsSimilar() bool { return r.similarTo != "" }
