package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/kailas-cloud/docdex/internal/db"
)

// EnsureIndex creates the index with the given mapping if it does not exist.
func (s *Store) EnsureIndex(ctx context.Context, name string, m *db.Mapping) error {
	exists, err := s.IndexExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	payload, err := json.Marshal(m.Body())
	if err != nil {
		return &db.Error{Op: db.OpIndicesCreate, Err: fmt.Errorf("marshal mapping: %w", err)}
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.es.Indices.Create(
		name,
		s.es.Indices.Create.WithContext(ctx),
		s.es.Indices.Create.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return &db.Error{Op: db.OpIndicesCreate, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	defer res.Body.Close()

	if res.IsError() {
		msg := readError(res)
		// Concurrent creators race between the exists check and create.
		if strings.Contains(msg, "resource_already_exists_exception") {
			return nil
		}
		return &db.Error{Op: db.OpIndicesCreate, Err: fmt.Errorf("create index %s: %s", name, msg)}
	}
	return nil
}

// DeleteIndex removes an index.
func (s *Store) DeleteIndex(ctx context.Context, name string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.es.Indices.Delete(
		[]string{name},
		s.es.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return &db.Error{Op: db.OpIndicesDelete, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return db.ErrIndexNotFound
	}
	if res.IsError() {
		return &db.Error{Op: db.OpIndicesDelete, Err: fmt.Errorf("delete index %s: %s", name, readError(res))}
	}
	return nil
}

// IndexExists reports whether an index exists.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.es.Indices.Exists(
		[]string{name},
		s.es.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, &db.Error{Op: db.OpIndicesExists, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, &db.Error{Op: db.OpIndicesExists, Err: fmt.Errorf("index exists %s: %s", name, res.Status())}
	}
}
