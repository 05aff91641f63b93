package result

import (
	"github.com/kailas-cloud/docdex/internal/domain/article"
	"github.com/kailas-cloud/docdex/internal/domain/search/aggregation"
)

// Result is a single search hit.
type Result struct {
	article  article.Article
	score    float64
	distance *float64
}

// New creates a search result.
func New(a article.Article, score float64) Result {
	return Result{article: a, score: score}
}

// NewWithDistance creates a geo search result carrying distance from the
// search center.
func NewWithDistance(a article.Article, score float64, meters float64) Result {
	return Result{article: a, score: score, distance: &meters}
}

// Article returns the matched article.
func (r Result) Article() article.Article { return r.article }

// Score returns the relevance score (fused rank score in hybrid mode).
func (r Result) Score() float64 { return r.score }

// DistanceMeters returns the distance from the geo search center, nil
// outside geo mode.
func (r Result) DistanceMeters() *float64 { return r.distance }

// WithScore returns a copy with the score replaced. Hybrid fusion rescores
// hits after merging branches.
func (r Result) WithScore(score float64) Result {
	r.score = score
	return r
}

// Page is one page of search hits with the total match count and any
// requested aggregations.
type Page struct {
	Total        int
	Results      []Result
	Aggregations map[string]aggregation.Result
}
