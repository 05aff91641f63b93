package article

import (
	"time"

	domart "github.com/kailas-cloud/docdex/internal/domain/article"
	"github.com/kailas-cloud/docdex/internal/domain/geo"
)

// doc mirrors the stored article document.
type doc struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Author      string    `json:"author,omitempty"`
	Category    string    `json:"category,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Views       int       `json:"views"`
	Rating      float64   `json:"rating"`
	Source      string    `json:"source,omitempty"`
	Location    *geoPoint `json:"location,omitempty"`
	TitleVector []float32 `json:"title_vector,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// geoPoint is the object form of a geo_point field.
type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// toDoc converts a domain article into its stored document.
func toDoc(a *domart.Article) doc {
	d := doc{
		Title:       a.Title(),
		Content:     a.Content(),
		Author:      a.Author(),
		Category:    a.Category(),
		Tags:        a.Tags(),
		Views:       a.Views(),
		Rating:      a.Rating(),
		Source:      a.Source(),
		TitleVector: a.Vector(),
		CreatedAt:   a.CreatedAt(),
		UpdatedAt:   a.UpdatedAt(),
	}
	if loc := a.Location(); loc != nil {
		d.Location = &geoPoint{Lat: loc.Lat(), Lon: loc.Lon()}
	}
	return d
}

// fromDoc hydrates a domain article from a stored document. Coordinates
// that fail range validation are dropped rather than failing the read.
func fromDoc(id string, d doc) domart.Article {
	var loc *geo.Point
	if d.Location != nil {
		if p, err := geo.NewPoint(d.Location.Lat, d.Location.Lon); err == nil {
			loc = &p
		}
	}
	return domart.Reconstruct(
		id, d.Title, d.Content, d.Author, d.Category,
		d.Tags, d.Views, d.Rating, d.Source, loc,
		d.TitleVector, d.CreatedAt, d.UpdatedAt,
	)
}
