// Package filter models the pre-filter conditions of a search request.
package filter

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// MaxConditions is the maximum number of conditions per request.
const MaxConditions = 32

// Filterable article fields by mapping type.
var (
	keywordFields = map[string]bool{"author": true, "category": true, "tags": true, "source": true}
	numericFields = map[string]bool{"views": true, "rating": true}
	dateFields    = map[string]bool{"created_at": true, "updated_at": true}
)

// IsKeywordField reports whether a field supports term/terms filters.
func IsKeywordField(name string) bool { return keywordFields[name] }

// IsNumericField reports whether a field supports numeric range filters.
func IsNumericField(name string) bool { return numericFields[name] }

// IsDateField reports whether a field supports date range filters.
func IsDateField(name string) bool { return dateFields[name] }

// IsSortableField reports whether results can be ordered by the field.
func IsSortableField(name string) bool { return numericFields[name] || dateFields[name] }

// Kind distinguishes condition types.
type Kind string

// Condition kinds.
const (
	KindTerm      Kind = "term"
	KindTerms     Kind = "terms"
	KindNumRange  Kind = "num_range"
	KindDateRange Kind = "date_range"
)

// Condition is a single pre-filter clause. All conditions are ANDed.
type Condition struct {
	kind   Kind
	field  string
	value  string
	values []string
	gte    *float64
	lte    *float64
	from   *time.Time
	to     *time.Time
}

// NewTerm creates an exact keyword match condition.
func NewTerm(field, value string) (Condition, error) {
	if !IsKeywordField(field) {
		return Condition{}, fmt.Errorf("field %q is not filterable by term: %w", field, domain.ErrInvalidQuery)
	}
	if value == "" {
		return Condition{}, fmt.Errorf("term value is required for field %q: %w", field, domain.ErrInvalidQuery)
	}
	return Condition{kind: KindTerm, field: field, value: value}, nil
}

// NewTerms creates an any-of keyword match condition.
func NewTerms(field string, values []string) (Condition, error) {
	if !IsKeywordField(field) {
		return Condition{}, fmt.Errorf("field %q is not filterable by terms: %w", field, domain.ErrInvalidQuery)
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("terms values are required for field %q: %w", field, domain.ErrInvalidQuery)
	}
	for _, v := range values {
		if v == "" {
			return Condition{}, fmt.Errorf("empty terms value for field %q: %w", field, domain.ErrInvalidQuery)
		}
	}
	return Condition{kind: KindTerms, field: field, values: values}, nil
}

// NewNumRange creates a numeric range condition. At least one bound is required.
func NewNumRange(field string, gte, lte *float64) (Condition, error) {
	if !IsNumericField(field) {
		return Condition{}, fmt.Errorf("field %q is not filterable by numeric range: %w",
			field, domain.ErrInvalidQuery)
	}
	if gte == nil && lte == nil {
		return Condition{}, fmt.Errorf("at least one range bound is required for field %q: %w",
			field, domain.ErrInvalidQuery)
	}
	if gte != nil && lte != nil && *gte > *lte {
		return Condition{}, fmt.Errorf("range bounds inverted for field %q: %w", field, domain.ErrInvalidQuery)
	}
	return Condition{kind: KindNumRange, field: field, gte: gte, lte: lte}, nil
}

// NewDateRange creates a date range condition. At least one bound is required.
func NewDateRange(field string, from, to *time.Time) (Condition, error) {
	if !IsDateField(field) {
		return Condition{}, fmt.Errorf("field %q is not filterable by date range: %w",
			field, domain.ErrInvalidQuery)
	}
	if from == nil && to == nil {
		return Condition{}, fmt.Errorf("at least one range bound is required for field %q: %w",
			field, domain.ErrInvalidQuery)
	}
	if from != nil && to != nil && from.After(*to) {
		return Condition{}, fmt.Errorf("range bounds inverted for field %q: %w", field, domain.ErrInvalidQuery)
	}
	return Condition{kind: KindDateRange, field: field, from: from, to: to}, nil
}

// Kind returns the condition type.
func (c Condition) Kind() Kind { return c.kind }

// Field returns the filtered field name.
func (c Condition) Field() string { return c.field }

// Value returns the term match value.
func (c Condition) Value() string { return c.value }

// Values returns the terms match values.
func (c Condition) Values() []string { return c.values }

// GTE returns the numeric lower bound.
func (c Condition) GTE() *float64 { return c.gte }

// LTE returns the numeric upper bound.
func (c Condition) LTE() *float64 { return c.lte }

// From returns the date lower bound.
func (c Condition) From() *time.Time { return c.from }

// To returns the date upper bound.
func (c Condition) To() *time.Time { return c.to }

// Expression is the full pre-filter of a request (conditions ANDed).
type Expression struct {
	conditions []Condition
}

// NewExpression validates and creates an Expression.
func NewExpression(conditions []Condition) (Expression, error) {
	if len(conditions) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d): %w",
			MaxConditions, domain.ErrInvalidQuery)
	}
	return Expression{conditions: conditions}, nil
}

// Conditions returns the filter conditions.
func (e Expression) Conditions() []Condition { return e.conditions }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.conditions) == 0 }
