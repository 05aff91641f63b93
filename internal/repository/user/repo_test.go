package user

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kailas-cloud/docdex/internal/db"
	"github.com/kailas-cloud/docdex/internal/domain"
)

func TestPut_SendsDocument(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotIndex, gotID string
	var gotDoc []byte
	ms.putFn = func(_ context.Context, index, id string, doc []byte) error {
		gotIndex, gotID, gotDoc = index, id, doc
		return nil
	}

	u := testUser(t)
	if err := repo.Put(context.Background(), &u); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if gotIndex != "docdex_users" {
		t.Errorf("index = %q, want docdex_users", gotIndex)
	}
	if gotID != "usr-1" {
		t.Errorf("id = %q, want usr-1", gotID)
	}

	var d doc
	if err := json.Unmarshal(gotDoc, &d); err != nil {
		t.Fatalf("unmarshal sent doc: %v", err)
	}
	if d.Username != "ivan" || d.Email != "ivan@example.com" {
		t.Errorf("doc = %+v", d)
	}
	if !d.IsActive {
		t.Error("is_active = false, want true")
	}
}

func TestGet_Success(t *testing.T) {
	repo, ms := newTestRepo(t)

	stored := testUser(t)
	data, err := json.Marshal(toDoc(&stored))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ms.getFn = func(_ context.Context, index, id string) ([]byte, error) {
		if index != "docdex_users" || id != "usr-1" {
			t.Errorf("Get(%q, %q)", index, id)
		}
		return data, nil
	}

	u, err := repo.Get(context.Background(), "usr-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if u.ID() != "usr-1" || u.Username() != "ivan" || u.FullName() != "Ivan Petrov" {
		t.Errorf("user = %+v", u)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.getFn = func(_ context.Context, _, _ string) ([]byte, error) {
		return nil, &db.Error{Op: db.OpGetDoc, Err: db.ErrDocNotFound}
	}

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("Get() error = %v, want ErrUserNotFound", err)
	}
}

func TestList_ParsesHits(t *testing.T) {
	repo, ms := newTestRepo(t)

	stored := testUser(t)
	data, err := json.Marshal(toDoc(&stored))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ms.searchFn = func(_ context.Context, _ string, body map[string]any) (*db.SearchResult, error) {
		if body["size"] != 10 {
			t.Errorf("size = %v, want default 10", body["size"])
		}
		return &db.SearchResult{
			Total: 3,
			Hits:  []db.Hit{{ID: "usr-1", Source: data}},
		}, nil
	}

	users, total, err := repo.List(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(users) != 1 {
		t.Errorf("total = %d, users = %d", total, len(users))
	}
	if users[0].Email() != "ivan@example.com" {
		t.Errorf("email = %q", users[0].Email())
	}
}

func TestEnsureIndex_Mapping(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotName string
	var gotMapping *db.Mapping
	ms.ensureIndexFn = func(_ context.Context, name string, m *db.Mapping) error {
		gotName, gotMapping = name, m
		return nil
	}

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex() error = %v", err)
	}
	if gotName != "docdex_users" {
		t.Errorf("index = %q", gotName)
	}

	types := map[string]db.FieldType{}
	for _, f := range gotMapping.Fields {
		types[f.Name] = f.Type
	}
	if types["username"] != db.FieldKeyword {
		t.Errorf("username type = %q", types["username"])
	}
	if types["is_active"] != db.FieldBoolean {
		t.Errorf("is_active type = %q", types["is_active"])
	}
	if types["full_name"] != db.FieldText {
		t.Errorf("full_name type = %q", types["full_name"])
	}
}
