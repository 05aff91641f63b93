package db

import "strconv"

// Query is a fluent builder for Elasticsearch search request bodies.
// Zero clauses build a match_all query.
type Query struct {
	must    []map[string]any
	filters []map[string]any
	knn     map[string]any
	sorts   []map[string]any
	aggs    map[string]any

	from *int
	size *int

	trackTotalHits bool
	source         []string
}

// NewQuery starts building a search request body.
func NewQuery() *Query {
	return &Query{}
}

// MultiMatch adds a multi_match clause over the given fields.
// Per-field boosts use the "field^2" syntax.
func (q *Query) MultiMatch(text string, fields ...string) *Query {
	q.must = append(q.must, map[string]any{
		"multi_match": map[string]any{
			"query":  text,
			"fields": fields,
		},
	})
	return q
}

// MoreLikeThis adds a more_like_this clause seeded by a stored document.
func (q *Query) MoreLikeThis(index, id string, fields ...string) *Query {
	q.must = append(q.must, map[string]any{
		"more_like_this": map[string]any{
			"fields":          fields,
			"like":            []map[string]any{{"_index": index, "_id": id}},
			"min_term_freq":   1,
			"min_doc_freq":    1,
			"max_query_terms": 25,
		},
	})
	return q
}

// Term adds an exact-value filter clause.
func (q *Query) Term(field string, value any) *Query {
	q.filters = append(q.filters, map[string]any{
		"term": map[string]any{field: value},
	})
	return q
}

// Terms adds an any-of filter clause.
func (q *Query) Terms(field string, values []string) *Query {
	q.filters = append(q.filters, map[string]any{
		"terms": map[string]any{field: values},
	})
	return q
}

// Range adds a range filter clause. Nil bounds are omitted.
func (q *Query) Range(field string, gte, lte any) *Query {
	bounds := map[string]any{}
	if gte != nil {
		bounds["gte"] = gte
	}
	if lte != nil {
		bounds["lte"] = lte
	}
	q.filters = append(q.filters, map[string]any{
		"range": map[string]any{field: bounds},
	})
	return q
}

// Exists adds a field-presence filter clause.
func (q *Query) Exists(field string) *Query {
	q.filters = append(q.filters, map[string]any{
		"exists": map[string]any{"field": field},
	})
	return q
}

// GeoDistance adds a geo_distance filter clause with a radius in meters.
func (q *Query) GeoDistance(field string, lat, lon, meters float64) *Query {
	q.filters = append(q.filters, map[string]any{
		"geo_distance": map[string]any{
			"distance": formatMeters(meters),
			field:      map[string]any{"lat": lat, "lon": lon},
		},
	})
	return q
}

// KNN sets the approximate nearest-neighbor clause. Filters added to the
// query are attached to the knn clause as pre-filters on Build.
func (q *Query) KNN(field string, vector []float32, k, numCandidates int) *Query {
	if numCandidates < k {
		numCandidates = k * 4
	}
	q.knn = map[string]any{
		"field":          field,
		"query_vector":   vector,
		"k":              k,
		"num_candidates": numCandidates,
	}
	return q
}

// Sort appends a field sort. Order is "asc" or "desc".
func (q *Query) Sort(field, order string) *Query {
	q.sorts = append(q.sorts, map[string]any{
		field: map[string]any{"order": order},
	})
	return q
}

// SortGeoDistance appends a geo-distance sort in meters, nearest first.
func (q *Query) SortGeoDistance(field string, lat, lon float64) *Query {
	q.sorts = append(q.sorts, map[string]any{
		"_geo_distance": map[string]any{
			field:   map[string]any{"lat": lat, "lon": lon},
			"order": "asc",
			"unit":  "m",
		},
	})
	return q
}

// From sets the result offset.
func (q *Query) From(n int) *Query {
	q.from = &n
	return q
}

// Size sets the page size.
func (q *Query) Size(n int) *Query {
	q.size = &n
	return q
}

// TrackTotalHits requests an exact total count.
func (q *Query) TrackTotalHits() *Query {
	q.trackTotalHits = true
	return q
}

// Source restricts the returned _source fields.
func (q *Query) Source(fields ...string) *Query {
	q.source = fields
	return q
}

// TermsAgg adds a terms aggregation bucketing by field.
func (q *Query) TermsAgg(name, field string, size int) *Query {
	if q.aggs == nil {
		q.aggs = map[string]any{}
	}
	q.aggs[name] = map[string]any{
		"terms": map[string]any{"field": field, "size": size},
	}
	return q
}

// StatsAgg adds a stats aggregation over a numeric field.
func (q *Query) StatsAgg(name, field string) *Query {
	if q.aggs == nil {
		q.aggs = map[string]any{}
	}
	q.aggs[name] = map[string]any{
		"stats": map[string]any{"field": field},
	}
	return q
}

// Build assembles the search request body. With no must clauses and no
// filters the query falls back to match_all.
func (q *Query) Build() map[string]any {
	body := map[string]any{}

	if q.knn != nil {
		knn := q.knn
		if len(q.filters) > 0 {
			knn["filter"] = q.filters
		}
		body["knn"] = knn
	} else {
		boolQuery := map[string]any{}
		if len(q.must) > 0 {
			boolQuery["must"] = q.must
		}
		if len(q.filters) > 0 {
			boolQuery["filter"] = q.filters
		}
		if len(q.must) == 0 && len(q.filters) == 0 {
			boolQuery["must"] = []map[string]any{
				{"match_all": map[string]any{}},
			}
		}
		body["query"] = map[string]any{"bool": boolQuery}
	}

	if len(q.sorts) > 0 {
		body["sort"] = q.sorts
	}
	if q.from != nil {
		body["from"] = *q.from
	}
	if q.size != nil {
		body["size"] = *q.size
	}
	if q.trackTotalHits {
		body["track_total_hits"] = true
	}
	if len(q.aggs) > 0 {
		body["aggs"] = q.aggs
	}
	if len(q.source) > 0 {
		body["_source"] = q.source
	}

	return body
}

// BuildQueryOnly returns just the query clause, as used by count and
// delete-by-query requests.
func (q *Query) BuildQueryOnly() map[string]any {
	boolQuery := map[string]any{}
	if len(q.must) > 0 {
		boolQuery["must"] = q.must
	}
	if len(q.filters) > 0 {
		boolQuery["filter"] = q.filters
	}
	if len(q.must) == 0 && len(q.filters) == 0 {
		boolQuery["must"] = []map[string]any{
			{"match_all": map[string]any{}},
		}
	}
	return map[string]any{"bool": boolQuery}
}

func formatMeters(m float64) string {
	// Elasticsearch accepts distances as "<number>m".
	return strconv.FormatFloat(m, 'f', -1, 64) + "m"
}
