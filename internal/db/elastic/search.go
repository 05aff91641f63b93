package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/docdex/internal/db"
)

// Search executes a query body against an index and returns parsed hits.
func (s *Store) Search(ctx context.Context, index string, body map[string]any) (*db.SearchResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("marshal search body: %w", err)}
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(index),
		s.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("search %s: %s", index, readError(res))}
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string          `json:"_id"`
				Score  *float64        `json:"_score"`
				Source json.RawMessage `json:"_source"`
				Sort   []any           `json:"sort"`
			} `json:"hits"`
		} `json:"hits"`
		Aggregations map[string]json.RawMessage `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("decode search response: %w", err)}
	}

	out := &db.SearchResult{
		Total:        parsed.Hits.Total.Value,
		Hits:         make([]db.Hit, 0, len(parsed.Hits.Hits)),
		Aggregations: parsed.Aggregations,
	}
	for _, h := range parsed.Hits.Hits {
		var score float64
		if h.Score != nil {
			score = *h.Score
		}
		out.Hits = append(out.Hits, db.Hit{
			ID:     h.ID,
			Score:  score,
			Source: h.Source,
			Sort:   h.Sort,
		})
	}
	return out, nil
}

// Count returns the number of documents matching a query body.
func (s *Store) Count(ctx context.Context, index string, body map[string]any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: fmt.Errorf("marshal count body: %w", err)}
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.es.Count(
		s.es.Count.WithContext(ctx),
		s.es.Count.WithIndex(index),
		s.es.Count.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, &db.Error{Op: db.OpCount, Err: fmt.Errorf("count %s: %s", index, readError(res))}
	}

	var parsed struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: fmt.Errorf("decode count response: %w", err)}
	}
	return parsed.Count, nil
}

// defaultDeleteBatch bounds a delete-by-query sweep when the caller
// passes no batch size. A zero batch would never satisfy the drain
// loop's stop condition.
const defaultDeleteBatch = 1000

// DeleteByQuery removes all documents matching a query, in batches of
// batchSize, and returns the total number deleted. Version conflicts are
// skipped so concurrent writers do not abort the sweep.
func (s *Store) DeleteByQuery(ctx context.Context, index string, query map[string]any, batchSize int) (int64, error) {
	payload, err := json.Marshal(query)
	if err != nil {
		return 0, &db.Error{Op: db.OpDeleteByQuery, Err: fmt.Errorf("marshal delete query: %w", err)}
	}

	if batchSize <= 0 {
		batchSize = defaultDeleteBatch
	}

	var total int64
	for {
		deleted, err := s.deleteBatch(ctx, index, payload, batchSize)
		if err != nil {
			return total, err
		}
		total += deleted
		if deleted < int64(batchSize) {
			return total, nil
		}
	}
}

func (s *Store) deleteBatch(ctx context.Context, index string, payload []byte, batchSize int) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.es.DeleteByQuery(
		[]string{index},
		bytes.NewReader(payload),
		s.es.DeleteByQuery.WithContext(ctx),
		s.es.DeleteByQuery.WithConflicts("proceed"),
		s.es.DeleteByQuery.WithMaxDocs(batchSize),
	)
	if err != nil {
		return 0, &db.Error{Op: db.OpDeleteByQuery, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, &db.Error{Op: db.OpDeleteByQuery, Err: fmt.Errorf("delete by query %s: %s", index, readError(res))}
	}

	var parsed struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, &db.Error{Op: db.OpDeleteByQuery, Err: fmt.Errorf("decode delete response: %w", err)}
	}
	return parsed.Deleted, nil
}
