// Package article defines the article aggregate.
package article

import (
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/domain/geo"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Field limits.
const (
	MaxIDLength      = 256
	MaxTitleLength   = 512
	MaxContentSize   = 163840 // 160KB
	MaxKeywordLength = 128
	MaxTagLength     = 64
	MaxTags          = 32
	MaxRating        = 5.0
)

// Article is the article aggregate (immutable value object).
type Article struct {
	id        string
	title     string
	content   string
	author    string
	category  string
	tags      []string
	views     int
	rating    float64
	source    string
	location  *geo.Point
	vector    []float32
	createdAt time.Time
	updatedAt time.Time
}

// New validates and creates an Article. Both timestamps are stamped now (UTC).
// ID may be empty; the service assigns one before storage. A non-empty ID must
// match ^[a-zA-Z0-9_-]+$ so it stays URL-safe.
func New(
	id, title, content, author, category string,
	tags []string,
	views int,
	rating float64,
	location *geo.Point,
) (Article, error) {
	if err := validateID(id); err != nil {
		return Article{}, err
	}
	if title == "" {
		return Article{}, fmt.Errorf("title is required: %w", domain.ErrInvalidDocument)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return Article{}, fmt.Errorf("title too long (max %d chars): %w", MaxTitleLength, domain.ErrInvalidDocument)
	}
	if content == "" {
		return Article{}, fmt.Errorf("content is required: %w", domain.ErrInvalidDocument)
	}
	if len(content) > MaxContentSize {
		return Article{}, fmt.Errorf("content too large (max %d bytes): %w", MaxContentSize, domain.ErrInvalidDocument)
	}
	if utf8.RuneCountInString(author) > MaxKeywordLength {
		return Article{}, fmt.Errorf("author too long (max %d chars): %w", MaxKeywordLength, domain.ErrInvalidDocument)
	}
	if utf8.RuneCountInString(category) > MaxKeywordLength {
		return Article{}, fmt.Errorf("category too long (max %d chars): %w", MaxKeywordLength, domain.ErrInvalidDocument)
	}
	if err := validateTags(tags); err != nil {
		return Article{}, err
	}
	if views < 0 {
		return Article{}, fmt.Errorf("views must not be negative: %w", domain.ErrInvalidDocument)
	}
	if rating < 0 || rating > MaxRating {
		return Article{}, fmt.Errorf("rating must be between 0 and %v: %w", MaxRating, domain.ErrInvalidDocument)
	}

	now := time.Now().UTC()
	return Article{
		id:        id,
		title:     title,
		content:   content,
		author:    author,
		category:  category,
		tags:      cloneTags(tags),
		views:     views,
		rating:    rating,
		location:  location,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct creates an Article without validation (storage hydration).
func Reconstruct(
	id, title, content, author, category string,
	tags []string,
	views int,
	rating float64,
	source string,
	location *geo.Point,
	vector []float32,
	createdAt, updatedAt time.Time,
) Article {
	return Article{
		id: id, title: title, content: content, author: author, category: category,
		tags: tags, views: views, rating: rating, source: source, location: location,
		vector: vector, createdAt: createdAt, updatedAt: updatedAt,
	}
}

func validateID(id string) error {
	if id == "" {
		return nil
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("document ID too long (max %d): %w", MaxIDLength, domain.ErrInvalidDocument)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("document ID must be alphanumeric with underscores and hyphens: %w",
			domain.ErrInvalidDocument)
	}
	return nil
}

func validateTags(tags []string) error {
	if len(tags) > MaxTags {
		return fmt.Errorf("too many tags (max %d): %w", MaxTags, domain.ErrInvalidDocument)
	}
	for _, tag := range tags {
		if tag == "" {
			return fmt.Errorf("empty tag: %w", domain.ErrInvalidDocument)
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return fmt.Errorf("tag %q too long (max %d chars): %w", tag, MaxTagLength, domain.ErrInvalidDocument)
		}
	}
	return nil
}

// ID returns the article identifier.
func (a Article) ID() string { return a.id }

// Title returns the article title.
func (a Article) Title() string { return a.title }

// Content returns the article body text.
func (a Article) Content() string { return a.content }

// Author returns the author name.
func (a Article) Author() string { return a.author }

// Category returns the category keyword.
func (a Article) Category() string { return a.category }

// Tags returns the tag keywords.
func (a Article) Tags() []string { return a.tags }

// Views returns the view counter.
func (a Article) Views() int { return a.views }

// Rating returns the rating in [0, 5].
func (a Article) Rating() float64 { return a.rating }

// Source returns the ingest source stamp, empty for API-created articles.
func (a Article) Source() string { return a.source }

// Location returns the geo coordinates, nil when unset.
func (a Article) Location() *geo.Point { return a.location }

// Vector returns the title embedding vector.
func (a Article) Vector() []float32 { return a.vector }

// CreatedAt returns the creation timestamp.
func (a Article) CreatedAt() time.Time { return a.createdAt }

// UpdatedAt returns the last modification timestamp.
func (a Article) UpdatedAt() time.Time { return a.updatedAt }

// WithID returns a copy with the given identifier set.
func (a Article) WithID(id string) Article {
	a.id = id
	return a
}

// WithVector returns a copy with the given embedding vector set.
func (a Article) WithVector(v []float32) Article {
	a.vector = v
	return a
}

// WithSource returns a copy with the ingest source stamp set.
func (a Article) WithSource(source string) Article {
	a.source = source
	return a
}

// WithCreatedAt returns a copy with an explicit creation timestamp.
// Ingest uses the event publication time instead of the processing time.
func (a Article) WithCreatedAt(t time.Time) Article {
	a.createdAt = t.UTC()
	return a
}

func cloneTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	c := make([]string, len(tags))
	copy(c, tags)
	return c
}
