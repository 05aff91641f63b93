package docdex

import "time"

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64
	Lon float64
}

// Article is a document in the built-in articles index.
// Source, CreatedAt and UpdatedAt are set by the server and ignored on writes.
type Article struct {
	ID       string
	Title    string
	Content  string
	Author   string
	Category string
	Tags     []string
	Views    int
	Rating   float64
	Location *GeoPoint

	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ArticlePatch is a partial article update. Nil fields are unchanged.
type ArticlePatch struct {
	Title    *string
	Content  *string
	Author   *string
	Category *string
	Tags     *[]string
	Views    *int
	Rating   *float64
	Location *GeoPoint
}

// ArticleList is one page of articles with the total count.
type ArticleList struct {
	Articles []Article
	Total    int
}

// User is a document in the users index.
// IsActive, CreatedAt and UpdatedAt are set by the server.
type User struct {
	ID       string
	Username string
	Email    string
	FullName string
	Bio      string

	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserList is one page of users with the total count.
type UserList struct {
	Users []User
	Total int
}

// SearchMode controls the search algorithm.
type SearchMode string

// Search mode constants.
const (
	ModeKeyword  SearchMode = "keyword"
	ModeSemantic SearchMode = "semantic"
	ModeHybrid   SearchMode = "hybrid"
	ModeGeo      SearchMode = "geo"
)

// SortOrder is a sort direction.
type SortOrder string

// Sort direction constants.
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Filter is a single pre-filter clause. Exactly one of Term, Terms,
// the numeric bounds or the date bounds must be set.
type Filter struct {
	Field string
	Term  string
	Terms []string
	GTE   *float64
	LTE   *float64
	From  *time.Time
	To    *time.Time
}

// AggregationKind selects the aggregation type.
type AggregationKind string

// Aggregation kind constants.
const (
	AggTerms AggregationKind = "terms"
	AggStats AggregationKind = "stats"
)

// AggregationRequest asks for a facet over the full result set.
type AggregationRequest struct {
	Name  string
	Kind  AggregationKind
	Field string
	// Size caps the bucket count for terms aggregations. 0 picks the default.
	Size int
}

// Bucket is one terms-aggregation bucket.
type Bucket struct {
	Key   string
	Count int
}

// Stats summarizes a numeric field.
type Stats struct {
	Count int
	Min   float64
	Max   float64
	Avg   float64
	Sum   float64
}

// Aggregation is a computed facet.
type Aggregation struct {
	Kind    AggregationKind
	Buckets []Bucket // terms
	Stats   *Stats   // stats
}

// SearchOptions tunes a search. A nil options value selects the defaults:
// keyword mode, limit 10, score order.
type SearchOptions struct {
	// Mode applies to Query searches only. Defaults to keyword.
	Mode    SearchMode
	Filters []Filter
	Limit   int
	Offset  int
	// SortBy orders results by a numeric or date field (keyword mode only).
	SortBy       string
	SortOrder    SortOrder // default asc
	Aggregations []AggregationRequest
}

// SearchHit is a single search result.
type SearchHit struct {
	Article Article
	Score   float64
	// DistanceMeters is set for geo searches.
	DistanceMeters *float64
}

// SearchPage is one page of search hits.
type SearchPage struct {
	Total        int
	Hits         []SearchHit
	Aggregations map[string]Aggregation
}

// Float returns a pointer to v, for filter and range bounds.
func Float(v float64) *float64 { return &v }
