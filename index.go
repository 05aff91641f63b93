package docdex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/docdex/internal/db"
)

// vectorField is the dense vector field maintained on typed indices.
const vectorField = "vector"

// Index is a generic, schema-first index backed by a docdex Client.
// Schema is inferred from T's struct tags at construction time.
type Index[T any] struct {
	name   string
	client *Client
	meta   *schemaMeta
}

// NewIndex creates a typed index handle. T must be a struct with docdex
// tags. Schema is parsed once and cached; the physical index name carries
// the client's prefix.
func NewIndex[T any](client *Client, name string) (*Index[T], error) {
	if !db.IsValidIdentifier(name) {
		return nil, fmt.Errorf("new index: invalid name %q", name)
	}
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("new index %q: %w", name, err)
	}
	return &Index[T]{name: name, client: client, meta: meta}, nil
}

func (idx *Index[T]) fullName() string {
	return idx.client.indexPrefix + "_" + idx.name
}

// Ensure creates the index if it does not exist (idempotent).
func (idx *Index[T]) Ensure(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { idx.client.obs.observe("index.ensure", start, err) }()

	m, err := idx.meta.mapping(idx.client.vectorDims, idx.client.embedder != nil)
	if err != nil {
		return fmt.Errorf("ensure %q: %w", idx.name, err)
	}
	if err = idx.client.store.EnsureIndex(ctx, idx.fullName(), m); err != nil {
		return fmt.Errorf("ensure %q: %w", idx.name, translateStoreErr(err))
	}
	return nil
}

// Put stores an item under its ID (upsert). When the client has an
// embedder and the schema has text fields, the first text field is
// vectorized for semantic search.
func (idx *Index[T]) Put(ctx context.Context, item T) (err error) {
	start := time.Now()
	defer func() { idx.client.obs.observe("index.put", start, err) }()

	id, body, err := idx.renderDoc(ctx, item)
	if err != nil {
		return err
	}
	if err = idx.client.store.Put(ctx, idx.fullName(), id, body); err != nil {
		return fmt.Errorf("put %q: %w", id, translateStoreErr(err))
	}
	return nil
}

// PutBatch stores items in one bulk request.
func (idx *Index[T]) PutBatch(ctx context.Context, items []T) (err error) {
	start := time.Now()
	defer func() { idx.client.obs.observe("index.put_batch", start, err) }()

	docs := make([]db.BulkDoc, 0, len(items))
	for i, item := range items {
		id, body, derr := idx.renderDoc(ctx, item)
		if derr != nil {
			return fmt.Errorf("item %d: %w", i, derr)
		}
		docs = append(docs, db.BulkDoc{ID: id, Body: body})
	}
	if err = idx.client.store.BulkPut(ctx, idx.fullName(), docs); err != nil {
		return fmt.Errorf("bulk put: %w", translateStoreErr(err))
	}
	return nil
}

// renderDoc serializes an item and attaches the embedding vector when the
// client is configured for it.
func (idx *Index[T]) renderDoc(ctx context.Context, item T) (string, []byte, error) {
	id, doc, embedText := idx.meta.toDoc(item)
	if id == "" {
		return "", nil, fmt.Errorf("document ID is required: %w", ErrInvalidDocument)
	}
	if idx.client.embedder != nil && embedText != "" {
		res, err := idx.client.embedder.Embed(ctx, embedText)
		if err != nil {
			return "", nil, fmt.Errorf("embed %q: %w", id, err)
		}
		doc[vectorField] = res.Embedding
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", nil, fmt.Errorf("encode %q: %w", id, err)
	}
	return id, body, nil
}

// Get retrieves a typed item by ID.
func (idx *Index[T]) Get(ctx context.Context, id string) (item T, err error) {
	start := time.Now()
	defer func() { idx.client.obs.observe("index.get", start, err) }()

	raw, err := idx.client.store.Get(ctx, idx.fullName(), id)
	if err != nil {
		return item, fmt.Errorf("get %q: %w", id, translateStoreErr(err))
	}
	var doc map[string]any
	if err = json.Unmarshal(raw, &doc); err != nil {
		return item, fmt.Errorf("get %q: %w", id, err)
	}
	out, err := idx.meta.fromDoc(id, doc)
	if err != nil {
		return item, fmt.Errorf("get %q: %w", id, err)
	}
	typed, ok := out.(T)
	if !ok {
		return item, fmt.Errorf("get %q: type assertion failed", id)
	}
	return typed, nil
}

// Delete removes an item by ID.
func (idx *Index[T]) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { idx.client.obs.observe("index.delete", start, err) }()

	if err = idx.client.store.Delete(ctx, idx.fullName(), id); err != nil {
		return fmt.Errorf("delete %q: %w", id, translateStoreErr(err))
	}
	return nil
}

// Count returns the number of items in the index.
func (idx *Index[T]) Count(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { idx.client.obs.observe("index.count", start, err) }()

	body := map[string]any{"query": db.NewQuery().BuildQueryOnly()}
	n, err = idx.client.store.Count(ctx, idx.fullName(), body)
	if err != nil {
		return 0, fmt.Errorf("count: %w", translateStoreErr(err))
	}
	return n, nil
}

// Search returns a fluent search builder for this index.
func (idx *Index[T]) Search() *Builder[T] {
	return &Builder[T]{idx: idx}
}

// translateStoreErr maps driver sentinels onto public ones, keeping the chain.
func translateStoreErr(err error) error {
	switch {
	case errors.Is(err, db.ErrDocNotFound), errors.Is(err, db.ErrIndexNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, db.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	default:
		return err
	}
}
