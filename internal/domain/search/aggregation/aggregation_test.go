package aggregation

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/docdex/internal/domain"
)

func TestNewTerms(t *testing.T) {
	r, err := NewTerms("by_category", "category", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Name() != "by_category" || r.Kind() != KindTerms || r.Size() != 5 {
		t.Errorf("request = %+v", r)
	}
}

func TestNewTerms_SizeDefaults(t *testing.T) {
	r, err := NewTerms("a", "tags", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Size() != DefaultTermsSize {
		t.Errorf("Size() = %d, want %d", r.Size(), DefaultTermsSize)
	}

	r, err = NewTerms("b", "tags", 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Size() != MaxTermsSize {
		t.Errorf("Size() = %d, want cap %d", r.Size(), MaxTermsSize)
	}
}

func TestNewTerms_Invalid(t *testing.T) {
	if _, err := NewTerms("", "category", 0); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("missing name must fail, got %v", err)
	}
	if _, err := NewTerms("a", "views", 0); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("numeric field must not support terms agg, got %v", err)
	}
	if _, err := NewTerms("a", "title", 0); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("text field must not support terms agg, got %v", err)
	}
}

func TestNewStats(t *testing.T) {
	r, err := NewStats("rating_stats", "rating")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Kind() != KindStats || r.Field() != "rating" {
		t.Errorf("request = %+v", r)
	}

	if _, err := NewStats("a", "category"); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("keyword field must not support stats agg, got %v", err)
	}
}
