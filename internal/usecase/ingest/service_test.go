package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/docdex/internal/domain"
	domart "github.com/kailas-cloud/docdex/internal/domain/article"
	domingest "github.com/kailas-cloud/docdex/internal/domain/ingest"
)

// --- Mocks ---

type mockCreator struct {
	created []domart.Article
	err     error
}

func (m *mockCreator) Create(_ context.Context, a domart.Article) (domart.Article, error) {
	if m.err != nil {
		return domart.Article{}, m.err
	}
	m.created = append(m.created, a)
	return a, nil
}

func payload(t *testing.T, ev Event) []byte {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return data
}

// --- Tests ---

func TestProcess_ValidEvent(t *testing.T) {
	creator := &mockCreator{}
	svc := New(creator, 16, time.Minute)

	out := svc.Process(context.Background(), payload(t, Event{
		ID:      "ev-1",
		Title:   "Breaking news",
		Content: "Something happened.",
		Tags:    []string{"news"},
	}))
	if out.Status() != domingest.StatusOK {
		t.Errorf("expected ok, got %s (err %v)", out.Status(), out.Err())
	}
	if out.ID() != "ev-1" {
		t.Errorf("outcome id = %q, want ev-1", out.ID())
	}
	if len(creator.created) != 1 {
		t.Fatalf("expected 1 stored article, got %d", len(creator.created))
	}
	if creator.created[0].ID() != "ev-1" {
		t.Errorf("expected event ID kept, got %q", creator.created[0].ID())
	}
}

func TestProcess_DuplicateSkipped(t *testing.T) {
	creator := &mockCreator{}
	svc := New(creator, 16, time.Minute)

	data := payload(t, Event{ID: "ev-1", Title: "Title", Content: "Body"})

	if out := svc.Process(context.Background(), data); out.Status() != domingest.StatusOK {
		t.Fatalf("first pass: outcome=%s err=%v", out.Status(), out.Err())
	}
	out := svc.Process(context.Background(), data)
	if out.Status() != domingest.StatusSkipped {
		t.Errorf("expected skipped for duplicate, got %s", out.Status())
	}
	if out.Failed() {
		t.Error("skipped outcome must not be failed")
	}
	if len(creator.created) != 1 {
		t.Errorf("duplicate must not be stored again, got %d creates", len(creator.created))
	}
}

func TestProcess_DedupeByContentHash(t *testing.T) {
	creator := &mockCreator{}
	svc := New(creator, 16, time.Minute)

	first := payload(t, Event{Title: "Same", Content: "Body"})
	second := payload(t, Event{Title: "Same", Content: "Body"})

	if out := svc.Process(context.Background(), first); out.Status() != domingest.StatusOK {
		t.Fatalf("first pass: %s", out.Status())
	}
	if out := svc.Process(context.Background(), second); out.Status() != domingest.StatusSkipped {
		t.Errorf("expected content-hash duplicate skipped, got %s", out.Status())
	}
}

func TestProcess_MalformedJSON(t *testing.T) {
	creator := &mockCreator{}
	svc := New(creator, 16, time.Minute)

	out := svc.Process(context.Background(), []byte("{not json"))
	if !out.Failed() {
		t.Fatalf("expected failed, got %s", out.Status())
	}
	if out.Err() == nil {
		t.Error("failed outcome must carry an error")
	}
}

func TestProcess_MissingTitle(t *testing.T) {
	creator := &mockCreator{}
	svc := New(creator, 16, time.Minute)

	out := svc.Process(context.Background(), payload(t, Event{Content: "Body"}))
	if !out.Failed() {
		t.Fatalf("expected failed, got %s", out.Status())
	}
	if !errors.Is(out.Err(), domain.ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", out.Err())
	}
}

func TestProcess_InvalidPublishedAt(t *testing.T) {
	creator := &mockCreator{}
	svc := New(creator, 16, time.Minute)

	out := svc.Process(context.Background(), payload(t, Event{
		Title: "T", Content: "C", PublishedAt: "yesterday",
	}))
	if !out.Failed() {
		t.Fatalf("expected failed, got %s", out.Status())
	}
	if !errors.Is(out.Err(), domain.ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", out.Err())
	}
}

func TestProcess_PublishedAtBecomesCreatedAt(t *testing.T) {
	creator := &mockCreator{}
	svc := New(creator, 16, time.Minute)

	published := time.Date(2025, 11, 3, 12, 30, 0, 0, time.UTC)
	out := svc.Process(context.Background(), payload(t, Event{
		Title: "T", Content: "C", PublishedAt: published.Format(time.RFC3339),
	}))
	if out.Status() != domingest.StatusOK {
		t.Fatalf("outcome=%s err=%v", out.Status(), out.Err())
	}
	if got := creator.created[0].CreatedAt(); !got.Equal(published) {
		t.Errorf("expected created_at %v, got %v", published, got)
	}
}

func TestProcess_SourceStamp(t *testing.T) {
	creator := &mockCreator{}
	svc := New(creator, 16, time.Minute)

	if out := svc.Process(context.Background(), payload(t, Event{
		Title: "A", Content: "B",
	})); out.Failed() {
		t.Fatalf("unexpected error: %v", out.Err())
	}
	if src := creator.created[0].Source(); src != DefaultSource {
		t.Errorf("expected default source %q, got %q", DefaultSource, src)
	}

	if out := svc.Process(context.Background(), payload(t, Event{
		Title: "C", Content: "D", Source: "rss",
	})); out.Failed() {
		t.Fatalf("unexpected error: %v", out.Err())
	}
	if src := creator.created[1].Source(); src != "rss" {
		t.Errorf("expected event source kept, got %q", src)
	}
}

func TestProcess_StoreErrorStaysRetryable(t *testing.T) {
	creator := &mockCreator{err: domain.ErrStoreUnavailable}
	svc := New(creator, 16, time.Minute)

	data := payload(t, Event{ID: "ev-1", Title: "T", Content: "C"})

	out := svc.Process(context.Background(), data)
	if !out.Failed() {
		t.Fatalf("expected failed, got %s", out.Status())
	}
	if !errors.Is(out.Err(), domain.ErrStoreUnavailable) {
		t.Fatalf("expected store error, got %v", out.Err())
	}

	// The event was not marked seen, so a retry reaches the store again.
	creator.err = nil
	out = svc.Process(context.Background(), data)
	if out.Status() != domingest.StatusOK {
		t.Fatalf("retry: outcome=%s err=%v", out.Status(), out.Err())
	}
}
