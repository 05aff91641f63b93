// Package aggregation models terms and stats aggregations over a filtered
// document set.
package aggregation

import (
	"fmt"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/domain/search/filter"
)

// Size limits for terms aggregations.
const (
	DefaultTermsSize = 10
	MaxTermsSize     = 100
)

// Kind distinguishes aggregation types.
type Kind string

// Aggregation kinds.
const (
	KindTerms Kind = "terms"
	KindStats Kind = "stats"
)

// Request is a single named aggregation.
type Request struct {
	name  string
	kind  Kind
	field string
	size  int
}

// NewTerms creates a terms (bucket) aggregation over a keyword field.
// Size defaults to 10, capped at 100.
func NewTerms(name, field string, size int) (Request, error) {
	if name == "" {
		return Request{}, fmt.Errorf("aggregation name is required: %w", domain.ErrInvalidQuery)
	}
	if !filter.IsKeywordField(field) {
		return Request{}, fmt.Errorf("field %q does not support terms aggregation: %w",
			field, domain.ErrInvalidQuery)
	}
	if size <= 0 {
		size = DefaultTermsSize
	}
	if size > MaxTermsSize {
		size = MaxTermsSize
	}
	return Request{name: name, kind: KindTerms, field: field, size: size}, nil
}

// NewStats creates a stats aggregation over a numeric field.
func NewStats(name, field string) (Request, error) {
	if name == "" {
		return Request{}, fmt.Errorf("aggregation name is required: %w", domain.ErrInvalidQuery)
	}
	if !filter.IsNumericField(field) {
		return Request{}, fmt.Errorf("field %q does not support stats aggregation: %w",
			field, domain.ErrInvalidQuery)
	}
	return Request{name: name, kind: KindStats, field: field}, nil
}

// Name returns the aggregation name used in the response.
func (r Request) Name() string { return r.name }

// Kind returns the aggregation type.
func (r Request) Kind() Kind { return r.kind }

// Field returns the aggregated field.
func (r Request) Field() string { return r.field }

// Size returns the bucket count for terms aggregations.
func (r Request) Size() int { return r.size }

// Bucket is a single terms-aggregation bucket.
type Bucket struct {
	Key      string
	DocCount int
}

// Stats holds the stats-aggregation summary of a numeric field.
type Stats struct {
	Count int
	Min   float64
	Max   float64
	Avg   float64
	Sum   float64
}

// Result is the outcome of one named aggregation.
type Result struct {
	Kind    Kind
	Buckets []Bucket
	Stats   *Stats
}
