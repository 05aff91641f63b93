package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain"
	domuser "github.com/kailas-cloud/docdex/internal/domain/user"
)

// store is the consumer interface for users (ISP).
type store interface {
	Put(ctx context.Context, index, id string, doc []byte) error
	Get(ctx context.Context, index, id string) ([]byte, error)
	Search(ctx context.Context, index string, body map[string]any) (*db.SearchResult, error)
	EnsureIndex(ctx context.Context, name string, m *db.Mapping) error
}

// Repo implements usecase/user.Repository.
type Repo struct {
	store    store
	index    string
	shards   int
	replicas int
}

// New creates a user repository over the index {prefix}_users.
func New(s store, prefix string, shards, replicas int) *Repo {
	if prefix == "" {
		prefix = "docdex"
	}
	if shards <= 0 {
		shards = 1
	}
	return &Repo{store: s, index: prefix + "_users", shards: shards, replicas: replicas}
}

// EnsureIndex creates the users index if it does not exist.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	m := &db.Mapping{
		Shards:   r.shards,
		Replicas: r.replicas,
		Fields: []db.MappingField{
			{Name: "username", Type: db.FieldKeyword},
			{Name: "email", Type: db.FieldKeyword},
			{Name: "full_name", Type: db.FieldText},
			{Name: "bio", Type: db.FieldText},
			{Name: "is_active", Type: db.FieldBoolean},
			{Name: "created_at", Type: db.FieldDate},
			{Name: "updated_at", Type: db.FieldDate},
		},
	}
	if err := r.store.EnsureIndex(ctx, r.index, m); err != nil {
		return translate("ensure index "+r.index, err)
	}
	return nil
}

// Put stores a user under its ID.
func (r *Repo) Put(ctx context.Context, u *domuser.User) error {
	data, err := json.Marshal(toDoc(u))
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := r.store.Put(ctx, r.index, u.ID(), data); err != nil {
		return translate("put user "+u.ID(), err)
	}
	return nil
}

// Get returns a user by ID.
func (r *Repo) Get(ctx context.Context, id string) (domuser.User, error) {
	raw, err := r.store.Get(ctx, r.index, id)
	if err != nil {
		return domuser.User{}, translate("get user "+id, err)
	}

	var d doc
	if err := json.Unmarshal(raw, &d); err != nil {
		return domuser.User{}, fmt.Errorf("decode user %s: %w", id, err)
	}
	return fromDoc(id, d), nil
}

// List returns a page of users, newest first, with the total count.
func (r *Repo) List(ctx context.Context, limit, offset int) ([]domuser.User, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	body := db.NewQuery().
		Sort("created_at", "desc").
		From(offset).
		Size(limit).
		TrackTotalHits().
		Build()

	sr, err := r.store.Search(ctx, r.index, body)
	if err != nil {
		return nil, 0, translate("list users", err)
	}

	users := make([]domuser.User, 0, len(sr.Hits))
	for _, h := range sr.Hits {
		var d doc
		if err := json.Unmarshal(h.Source, &d); err != nil {
			return nil, 0, fmt.Errorf("decode user %s: %w", h.ID, err)
		}
		users = append(users, fromDoc(h.ID, d))
	}
	return users, sr.Total, nil
}

// translate maps driver sentinels onto domain ones, keeping the chain.
func translate(op string, err error) error {
	switch {
	case errors.Is(err, db.ErrDocNotFound):
		return domain.ErrUserNotFound
	case errors.Is(err, db.ErrUnavailable):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
