package article

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/domain/geo"
)

func TestNew_Valid(t *testing.T) {
	a, err := New("art-1", "Intro to Search", "full text search basics", "jane", "golang",
		[]string{"search", "es"}, 10, 4.5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID() != "art-1" {
		t.Errorf("ID() = %q", a.ID())
	}
	if a.Title() != "Intro to Search" {
		t.Errorf("Title() = %q", a.Title())
	}
	if a.Content() != "full text search basics" {
		t.Errorf("Content() = %q", a.Content())
	}
	if a.Author() != "jane" || a.Category() != "golang" {
		t.Errorf("Author() = %q, Category() = %q", a.Author(), a.Category())
	}
	if len(a.Tags()) != 2 || a.Tags()[0] != "search" {
		t.Errorf("Tags() = %v", a.Tags())
	}
	if a.Views() != 10 || a.Rating() != 4.5 {
		t.Errorf("Views() = %d, Rating() = %v", a.Views(), a.Rating())
	}
	if a.Vector() != nil {
		t.Error("Vector() should be nil for new article")
	}
	if a.Source() != "" {
		t.Errorf("Source() = %q, want empty", a.Source())
	}
	if a.CreatedAt().IsZero() || !a.CreatedAt().Equal(a.UpdatedAt()) {
		t.Errorf("timestamps: created %v updated %v", a.CreatedAt(), a.UpdatedAt())
	}
}

func TestNew_EmptyIDAllowed(t *testing.T) {
	a, err := New("", "title", "content", "", "", nil, 0, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID() != "" {
		t.Errorf("ID() = %q, want empty", a.ID())
	}
}

func TestNew_ClonesTags(t *testing.T) {
	tags := []string{"a", "b"}
	a, _ := New("", "title", "content", "", "", tags, 0, 0, nil)

	tags[0] = "mutated"
	if a.Tags()[0] != "a" {
		t.Error("tags mutation leaked into article")
	}
}

func TestNew_Invalid(t *testing.T) {
	long := strings.Repeat("x", 600)
	tests := []struct {
		name  string
		fn    func() (Article, error)
		wants string
	}{
		{"missing title", func() (Article, error) {
			return New("", "", "content", "", "", nil, 0, 0, nil)
		}, "title is required"},
		{"title too long", func() (Article, error) {
			return New("", long, "content", "", "", nil, 0, 0, nil)
		}, "title too long"},
		{"missing content", func() (Article, error) {
			return New("", "title", "", "", "", nil, 0, 0, nil)
		}, "content is required"},
		{"content too large", func() (Article, error) {
			return New("", "title", strings.Repeat("x", MaxContentSize+1), "", "", nil, 0, 0, nil)
		}, "content too large"},
		{"bad id", func() (Article, error) {
			return New("has spaces", "title", "content", "", "", nil, 0, 0, nil)
		}, "alphanumeric"},
		{"id too long", func() (Article, error) {
			return New(strings.Repeat("a", 257), "title", "content", "", "", nil, 0, 0, nil)
		}, "too long"},
		{"empty tag", func() (Article, error) {
			return New("", "title", "content", "", "", []string{""}, 0, 0, nil)
		}, "empty tag"},
		{"too many tags", func() (Article, error) {
			return New("", "title", "content", "", "", make([]string, MaxTags+1), 0, 0, nil)
		}, "too many tags"},
		{"negative views", func() (Article, error) {
			return New("", "title", "content", "", "", nil, -1, 0, nil)
		}, "views"},
		{"rating above max", func() (Article, error) {
			return New("", "title", "content", "", "", nil, 0, 5.1, nil)
		}, "rating"},
		{"rating below zero", func() (Article, error) {
			return New("", "title", "content", "", "", nil, 0, -0.1, nil)
		}, "rating"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			if !errors.Is(err, domain.ErrInvalidDocument) {
				t.Fatalf("error = %v, want ErrInvalidDocument", err)
			}
			if !strings.Contains(err.Error(), tt.wants) {
				t.Errorf("error = %q, want substring %q", err, tt.wants)
			}
		})
	}
}

func TestNew_WithLocation(t *testing.T) {
	p, err := geo.NewPoint(55.7558, 37.6173)
	if err != nil {
		t.Fatal(err)
	}
	a, err := New("", "title", "content", "", "", nil, 0, 0, &p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Location() == nil || a.Location().Lat() != 55.7558 {
		t.Errorf("Location() = %v", a.Location())
	}
}

func TestReconstruct(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	vec := []float32{0.1, 0.2}

	a := Reconstruct("art-1", "title", "content", "jane", "golang",
		[]string{"t"}, 7, 3.5, "feed", nil, vec, created, updated)

	if a.ID() != "art-1" || a.Source() != "feed" {
		t.Errorf("ID() = %q, Source() = %q", a.ID(), a.Source())
	}
	if !a.CreatedAt().Equal(created) || !a.UpdatedAt().Equal(updated) {
		t.Errorf("timestamps: %v / %v", a.CreatedAt(), a.UpdatedAt())
	}
	if len(a.Vector()) != 2 {
		t.Errorf("Vector() = %v", a.Vector())
	}
}

func TestCopyMethods(t *testing.T) {
	a, _ := New("", "title", "content", "", "", nil, 0, 0, nil)

	withID := a.WithID("gen-1")
	if withID.ID() != "gen-1" || a.ID() != "" {
		t.Error("WithID must not mutate the receiver")
	}

	withVec := a.WithVector([]float32{1})
	if len(withVec.Vector()) != 1 || a.Vector() != nil {
		t.Error("WithVector must not mutate the receiver")
	}

	withSrc := a.WithSource("feed")
	if withSrc.Source() != "feed" || a.Source() != "" {
		t.Error("WithSource must not mutate the receiver")
	}

	pub := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	withCreated := a.WithCreatedAt(pub)
	if !withCreated.CreatedAt().Equal(pub) {
		t.Errorf("WithCreatedAt: %v", withCreated.CreatedAt())
	}
}

// Getters must be callable on unaddressable values: fusion and mapping code
// chains them straight off returned copies, e.g. result.Article().ID().
func TestGettersOnReturnedValue(t *testing.T) {
	id := Reconstruct("art-1", "title", "content", "", "", nil, 0, 0, "", nil, nil,
		time.Time{}, time.Time{}).ID()
	if id != "art-1" {
		t.Errorf("ID() = %q", id)
	}
	if got := mustNew(t).WithID("gen-2").ID(); got != "gen-2" {
		t.Errorf("ID() = %q", got)
	}
}

func mustNew(t *testing.T) Article {
	t.Helper()
	a, err := New("", "title", "content", "", "", nil, 0, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return a
}
