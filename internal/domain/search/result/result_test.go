package result

import (
	"testing"

	"github.com/kailas-cloud/docdex/internal/domain/article"
)

func makeArticle(t *testing.T, id string) article.Article {
	t.Helper()

	a, err := article.New(id, "Searching at scale", "Full text body.", "ivan", "tech", nil, 0, 0, nil)
	if err != nil {
		t.Fatalf("article.New: %v", err)
	}
	return a.WithID(id)
}

func TestNew(t *testing.T) {
	a := makeArticle(t, "art-1")

	r := New(a, 1.5)

	if got := r.Article().ID(); got != "art-1" {
		t.Errorf("Article().ID() = %q, want %q", got, "art-1")
	}
	if got := r.Score(); got != 1.5 {
		t.Errorf("Score() = %v, want 1.5", got)
	}
	if r.DistanceMeters() != nil {
		t.Errorf("DistanceMeters() = %v, want nil", *r.DistanceMeters())
	}
}

func TestNewWithDistance(t *testing.T) {
	r := NewWithDistance(makeArticle(t, "art-2"), 0, 634_000)

	if r.DistanceMeters() == nil {
		t.Fatal("DistanceMeters() = nil, want value")
	}
	if got := *r.DistanceMeters(); got != 634_000 {
		t.Errorf("DistanceMeters() = %v, want 634000", got)
	}
}

func TestWithScore(t *testing.T) {
	r := New(makeArticle(t, "art-3"), 2.0)

	rescored := r.WithScore(0.032)

	if got := rescored.Score(); got != 0.032 {
		t.Errorf("rescored Score() = %v, want 0.032", got)
	}
	if got := r.Score(); got != 2.0 {
		t.Errorf("original Score() = %v, want 2.0 (copy must not mutate receiver)", got)
	}
}
