package filter

import (
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/docdex/internal/domain"
)

func f64(v float64) *float64 { return &v }

func TestNewTerm(t *testing.T) {
	c, err := NewTerm("category", "golang")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Kind() != KindTerm || c.Field() != "category" || c.Value() != "golang" {
		t.Errorf("condition = %+v", c)
	}
}

func TestNewTerm_Invalid(t *testing.T) {
	if _, err := NewTerm("title", "x"); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("text field must not be term-filterable, got %v", err)
	}
	if _, err := NewTerm("views", "10"); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("numeric field must not be term-filterable, got %v", err)
	}
	if _, err := NewTerm("category", ""); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("empty value must fail, got %v", err)
	}
}

func TestNewTerms(t *testing.T) {
	c, err := NewTerms("tags", []string{"search", "es"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Kind() != KindTerms || len(c.Values()) != 2 {
		t.Errorf("condition = %+v", c)
	}

	if _, err := NewTerms("tags", nil); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("empty values must fail, got %v", err)
	}
	if _, err := NewTerms("tags", []string{"ok", ""}); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("blank value must fail, got %v", err)
	}
}

func TestNewNumRange(t *testing.T) {
	c, err := NewNumRange("rating", f64(3), f64(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *c.GTE() != 3 || *c.LTE() != 5 {
		t.Errorf("bounds = %v..%v", c.GTE(), c.LTE())
	}

	if _, err := NewNumRange("rating", nil, nil); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("unbounded range must fail, got %v", err)
	}
	if _, err := NewNumRange("rating", f64(5), f64(3)); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("inverted range must fail, got %v", err)
	}
	if _, err := NewNumRange("category", f64(1), nil); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("keyword field must not be range-filterable, got %v", err)
	}
}

func TestNewNumRange_OneBound(t *testing.T) {
	c, err := NewNumRange("views", f64(100), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.GTE() == nil || c.LTE() != nil {
		t.Errorf("bounds = %v..%v", c.GTE(), c.LTE())
	}
}

func TestNewDateRange(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 6, 0)

	c, err := NewDateRange("created_at", &from, &to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Kind() != KindDateRange || !c.From().Equal(from) {
		t.Errorf("condition = %+v", c)
	}

	if _, err := NewDateRange("created_at", &to, &from); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("inverted range must fail, got %v", err)
	}
	if _, err := NewDateRange("views", &from, nil); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("numeric field must not be date-filterable, got %v", err)
	}
}

func TestNewExpression_TooMany(t *testing.T) {
	conds := make([]Condition, MaxConditions+1)
	for i := range conds {
		c, err := NewTerm("category", "x")
		if err != nil {
			t.Fatal(err)
		}
		conds[i] = c
	}
	if _, err := NewExpression(conds); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("oversized expression must fail, got %v", err)
	}
}

func TestExpression_IsEmpty(t *testing.T) {
	e, err := NewExpression(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.IsEmpty() {
		t.Error("nil expression should be empty")
	}
}

func TestFieldSets(t *testing.T) {
	if !IsKeywordField("author") || !IsKeywordField("tags") {
		t.Error("author/tags are keyword fields")
	}
	if !IsNumericField("views") || !IsNumericField("rating") {
		t.Error("views/rating are numeric fields")
	}
	if !IsDateField("created_at") || !IsDateField("updated_at") {
		t.Error("created_at/updated_at are date fields")
	}
	if IsKeywordField("title") || IsNumericField("title") || IsDateField("title") {
		t.Error("title is full-text, not filterable")
	}
	if !IsSortableField("views") || !IsSortableField("created_at") || IsSortableField("category") {
		t.Error("sortable = numeric + date fields")
	}
}
