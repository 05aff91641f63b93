package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/docdex/internal/db"
)

// Put stores a document under the given ID, replacing any existing one.
func (s *Store) Put(ctx context.Context, index, id string, doc []byte) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(doc),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, s.es)
	if err != nil {
		return &db.Error{Op: db.OpIndex, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	defer res.Body.Close()

	if res.IsError() {
		return &db.Error{Op: db.OpIndex, Err: fmt.Errorf("index %s/%s: %s", index, id, readError(res))}
	}
	return nil
}

// Get returns the raw _source of a document.
func (s *Store) Get(ctx context.Context, index, id string) ([]byte, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	req := esapi.GetRequest{Index: index, DocumentID: id}

	res, err := req.Do(ctx, s.es)
	if err != nil {
		return nil, &db.Error{Op: db.OpGetDoc, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, db.ErrDocNotFound
	}
	if res.IsError() {
		return nil, &db.Error{Op: db.OpGetDoc, Err: fmt.Errorf("get %s/%s: %s", index, id, readError(res))}
	}

	var parsed struct {
		Source json.RawMessage `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, &db.Error{Op: db.OpGetDoc, Err: fmt.Errorf("decode get response: %w", err)}
	}
	return parsed.Source, nil
}

// Update merges the given partial document into the stored one.
func (s *Store) Update(ctx context.Context, index, id string, partial []byte) error {
	body, err := json.Marshal(map[string]json.RawMessage{"doc": partial})
	if err != nil {
		return &db.Error{Op: db.OpUpdate, Err: fmt.Errorf("marshal update body: %w", err)}
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	req := esapi.UpdateRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, s.es)
	if err != nil {
		return &db.Error{Op: db.OpUpdate, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return db.ErrDocNotFound
	case res.StatusCode == http.StatusConflict:
		return db.ErrConflict
	case res.IsError():
		return &db.Error{Op: db.OpUpdate, Err: fmt.Errorf("update %s/%s: %s", index, id, readError(res))}
	}
	return nil
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, index, id string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	req := esapi.DeleteRequest{Index: index, DocumentID: id}

	res, err := req.Do(ctx, s.es)
	if err != nil {
		return &db.Error{Op: db.OpDelete, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return db.ErrDocNotFound
	}
	if res.IsError() {
		return &db.Error{Op: db.OpDelete, Err: fmt.Errorf("delete %s/%s: %s", index, id, readError(res))}
	}
	return nil
}

// BulkPut writes a batch of documents in a single bulk request.
func (s *Store) BulkPut(ctx context.Context, index string, docs []db.BulkDoc) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, d := range docs {
		action, err := json.Marshal(map[string]any{
			"index": map[string]any{"_index": index, "_id": d.ID},
		})
		if err != nil {
			return &db.Error{Op: db.OpBulk, Err: fmt.Errorf("marshal bulk action: %w", err)}
		}
		buf.Write(action)
		buf.WriteByte('\n')
		buf.Write(d.Body)
		buf.WriteByte('\n')
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.es.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.es.Bulk.WithContext(ctx),
	)
	if err != nil {
		return &db.Error{Op: db.OpBulk, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	defer res.Body.Close()

	if res.IsError() {
		return &db.Error{Op: db.OpBulk, Err: fmt.Errorf("bulk %s: %s", index, readError(res))}
	}

	var parsed struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return &db.Error{Op: db.OpBulk, Err: fmt.Errorf("decode bulk response: %w", err)}
	}

	if parsed.Errors {
		for _, item := range parsed.Items {
			for _, op := range item {
				if op.Error != nil {
					return &db.Error{Op: db.OpBulk, Err: fmt.Errorf(
						"bulk item %s: %s: %s", op.ID, op.Error.Type, op.Error.Reason,
					)}
				}
			}
		}
		return &db.Error{Op: db.OpBulk, Err: fmt.Errorf("bulk %s: partial failure", index)}
	}
	return nil
}
