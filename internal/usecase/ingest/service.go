// Package ingest turns article feed events into stored documents.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kailas-cloud/docdex/internal/domain"
	domart "github.com/kailas-cloud/docdex/internal/domain/article"
	domingest "github.com/kailas-cloud/docdex/internal/domain/ingest"
	"github.com/kailas-cloud/docdex/internal/metrics"
)

// Dedupe defaults applied when the config leaves them unset.
const (
	DefaultDedupeSize   = 4096
	DefaultDedupeWindow = time.Hour

	// DefaultSource is stamped on ingested articles when the event carries
	// no source of its own. Retention later prunes by this stamp.
	DefaultSource = "feed"
)

// Event is the wire format of an article ingest message.
type Event struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Author      string   `json:"author,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	PublishedAt string   `json:"published_at,omitempty"` // RFC3339
	Source      string   `json:"source,omitempty"`
}

// Creator is the article service surface used by ingest.
type Creator interface {
	Create(ctx context.Context, a domart.Article) (domart.Article, error)
}

// Service processes feed events: decode, dedupe, upsert.
type Service struct {
	articles Creator
	seen     *expirable.LRU[string, struct{}]
	source   string
}

// New creates an ingest service with a bounded dedupe window.
func New(articles Creator, dedupeSize int, dedupeWindow time.Duration) *Service {
	if dedupeSize <= 0 {
		dedupeSize = DefaultDedupeSize
	}
	if dedupeWindow <= 0 {
		dedupeWindow = DefaultDedupeWindow
	}
	return &Service{
		articles: articles,
		seen:     expirable.NewLRU[string, struct{}](dedupeSize, nil, dedupeWindow),
		source:   DefaultSource,
	}
}

// Process handles one raw event payload. A failed outcome carries the
// error; the caller routes the payload to the DLQ.
func (s *Service) Process(ctx context.Context, payload []byte) domingest.Outcome {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return s.fail("", fmt.Errorf("decode event: %w", err))
	}

	key := dedupeKey(ev)
	if _, dup := s.seen.Get(key); dup {
		out := domingest.NewSkipped(key)
		metrics.IngestEventsTotal.WithLabelValues(string(out.Status())).Inc()
		return out
	}

	a, err := s.buildArticle(ev)
	if err != nil {
		return s.fail(ev.ID, err)
	}

	created, err := s.articles.Create(ctx, a)
	if err != nil {
		return s.fail(ev.ID, fmt.Errorf("store article: %w", err))
	}

	// Mark only after a successful store so a failed event stays retryable.
	s.seen.Add(key, struct{}{})
	out := domingest.NewOK(created.ID())
	metrics.IngestEventsTotal.WithLabelValues(string(out.Status())).Inc()
	return out
}

func (s *Service) fail(id string, err error) domingest.Outcome {
	out := domingest.NewFailed(id, err)
	metrics.IngestEventsTotal.WithLabelValues(string(out.Status())).Inc()
	return out
}

// buildArticle validates the event and stamps ingest metadata.
func (s *Service) buildArticle(ev Event) (domart.Article, error) {
	a, err := domart.New(ev.ID, ev.Title, ev.Content, ev.Author, ev.Category, ev.Tags, 0, 0, nil)
	if err != nil {
		return domart.Article{}, fmt.Errorf("invalid event: %w", err)
	}

	source := ev.Source
	if source == "" {
		source = s.source
	}
	a = a.WithSource(source)

	if ev.PublishedAt != "" {
		ts, parseErr := time.Parse(time.RFC3339, ev.PublishedAt)
		if parseErr != nil {
			return domart.Article{}, fmt.Errorf("invalid published_at %q: %w",
				ev.PublishedAt, domain.ErrInvalidDocument)
		}
		a = a.WithCreatedAt(ts)
	}
	return a, nil
}

// dedupeKey identifies an event by its ID, falling back to a content hash
// for ID-less feeds.
func dedupeKey(ev Event) string {
	if ev.ID != "" {
		return ev.ID
	}
	sum := sha256.Sum256([]byte(ev.Title + "\x00" + ev.Content))
	return hex.EncodeToString(sum[:])
}
