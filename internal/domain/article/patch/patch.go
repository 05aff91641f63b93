// Package patch models partial article updates.
package patch

import (
	"fmt"
	"unicode/utf8"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/domain/article"
	"github.com/kailas-cloud/docdex/internal/domain/geo"
)

// Patch is a partial article update. Nil fields are unchanged.
type Patch struct {
	title    *string
	content  *string
	author   *string
	category *string
	tags     *[]string
	views    *int
	rating   *float64
	location *geo.Point
}

// New validates and creates a Patch. At least one field must be provided.
func New(
	title, content, author, category *string,
	tags *[]string,
	views *int,
	rating *float64,
	location *geo.Point,
) (Patch, error) {
	if title == nil && content == nil && author == nil && category == nil &&
		tags == nil && views == nil && rating == nil && location == nil {
		return Patch{}, fmt.Errorf("at least one field must be provided: %w", domain.ErrInvalidDocument)
	}
	if title != nil {
		if *title == "" {
			return Patch{}, fmt.Errorf("title must not be empty: %w", domain.ErrInvalidDocument)
		}
		if utf8.RuneCountInString(*title) > article.MaxTitleLength {
			return Patch{}, fmt.Errorf("title too long (max %d chars): %w",
				article.MaxTitleLength, domain.ErrInvalidDocument)
		}
	}
	if content != nil {
		if *content == "" {
			return Patch{}, fmt.Errorf("content must not be empty: %w", domain.ErrInvalidDocument)
		}
		if len(*content) > article.MaxContentSize {
			return Patch{}, fmt.Errorf("content too large (max %d bytes): %w",
				article.MaxContentSize, domain.ErrInvalidDocument)
		}
	}
	if tags != nil {
		if len(*tags) > article.MaxTags {
			return Patch{}, fmt.Errorf("too many tags (max %d): %w", article.MaxTags, domain.ErrInvalidDocument)
		}
		for _, tag := range *tags {
			if tag == "" {
				return Patch{}, fmt.Errorf("empty tag: %w", domain.ErrInvalidDocument)
			}
			if utf8.RuneCountInString(tag) > article.MaxTagLength {
				return Patch{}, fmt.Errorf("tag %q too long (max %d chars): %w",
					tag, article.MaxTagLength, domain.ErrInvalidDocument)
			}
		}
	}
	if views != nil && *views < 0 {
		return Patch{}, fmt.Errorf("views must not be negative: %w", domain.ErrInvalidDocument)
	}
	if rating != nil && (*rating < 0 || *rating > article.MaxRating) {
		return Patch{}, fmt.Errorf("rating must be between 0 and %v: %w",
			article.MaxRating, domain.ErrInvalidDocument)
	}

	return Patch{
		title: title, content: content, author: author, category: category,
		tags: tags, views: views, rating: rating, location: location,
	}, nil
}

// Title returns the new title, or nil if unchanged.
func (p Patch) Title() *string { return p.title }

// Content returns the new content, or nil if unchanged.
func (p Patch) Content() *string { return p.content }

// Author returns the new author, or nil if unchanged.
func (p Patch) Author() *string { return p.author }

// Category returns the new category, or nil if unchanged.
func (p Patch) Category() *string { return p.category }

// Tags returns the replacement tag list, or nil if unchanged.
func (p Patch) Tags() *[]string { return p.tags }

// Views returns the new view counter, or nil if unchanged.
func (p Patch) Views() *int { return p.views }

// Rating returns the new rating, or nil if unchanged.
func (p Patch) Rating() *float64 { return p.rating }

// Location returns the new coordinates, or nil if unchanged.
func (p Patch) Location() *geo.Point { return p.location }

// HasTitle reports whether the patch changes the title. The service re-embeds
// the title vector only in that case.
func (p Patch) HasTitle() bool { return p.title != nil }
