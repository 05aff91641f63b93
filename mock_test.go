package docdex

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/docdex/internal/db"
	domart "github.com/kailas-cloud/docdex/internal/domain/article"
	"github.com/kailas-cloud/docdex/internal/domain/article/patch"
	"github.com/kailas-cloud/docdex/internal/domain/search/request"
	"github.com/kailas-cloud/docdex/internal/domain/search/result"
	domusage "github.com/kailas-cloud/docdex/internal/domain/usage"
	domuser "github.com/kailas-cloud/docdex/internal/domain/user"
	healthuc "github.com/kailas-cloud/docdex/internal/usecase/health"
)

// --- articleUseCase mock ---

type mockArticleUC struct {
	createFn func(ctx context.Context, a domart.Article) (domart.Article, error)
	getFn    func(ctx context.Context, id string) (domart.Article, error)
	updateFn func(ctx context.Context, id string, p patch.Patch) (domart.Article, error)
	deleteFn func(ctx context.Context, id string) error
	listFn   func(ctx context.Context, limit, offset int) ([]domart.Article, int, error)
}

func (m *mockArticleUC) Create(ctx context.Context, a domart.Article) (domart.Article, error) {
	return m.createFn(ctx, a)
}

func (m *mockArticleUC) Get(ctx context.Context, id string) (domart.Article, error) {
	return m.getFn(ctx, id)
}

func (m *mockArticleUC) Update(ctx context.Context, id string, p patch.Patch) (domart.Article, error) {
	return m.updateFn(ctx, id, p)
}

func (m *mockArticleUC) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockArticleUC) List(ctx context.Context, limit, offset int) ([]domart.Article, int, error) {
	return m.listFn(ctx, limit, offset)
}

// --- userUseCase mock ---

type mockUserUC struct {
	createFn func(ctx context.Context, u domuser.User) (domuser.User, error)
	getFn    func(ctx context.Context, id string) (domuser.User, error)
	listFn   func(ctx context.Context, limit, offset int) ([]domuser.User, int, error)
}

func (m *mockUserUC) Create(ctx context.Context, u domuser.User) (domuser.User, error) {
	return m.createFn(ctx, u)
}

func (m *mockUserUC) Get(ctx context.Context, id string) (domuser.User, error) {
	return m.getFn(ctx, id)
}

func (m *mockUserUC) List(ctx context.Context, limit, offset int) ([]domuser.User, int, error) {
	return m.listFn(ctx, limit, offset)
}

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, req *request.Request) (*result.Page, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req *request.Request) (*result.Page, error) {
	return m.searchFn(ctx, req)
}

// --- usageUseCase mock ---

type mockUsageUC struct {
	reportFn func(ctx context.Context, period domusage.Period) domusage.Report
}

func (m *mockUsageUC) GetReport(ctx context.Context, period domusage.Period) domusage.Report {
	return m.reportFn(ctx, period)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	checkFn func(ctx context.Context) healthuc.Report
}

func (m *mockHealthUC) Check(ctx context.Context) healthuc.Report {
	return m.checkFn(ctx)
}

// --- Embedder mock ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// --- db.Store fake for typed index tests ---

// fakeStore implements db.Store in memory and records search bodies.
type fakeStore struct {
	mu sync.Mutex

	ensured map[string]*db.Mapping
	docs    map[string]map[string][]byte

	searchFn func(index string, body map[string]any) (*db.SearchResult, error)
	searches []map[string]any

	putErr error
	getErr error
}

var _ db.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		ensured: make(map[string]*db.Mapping),
		docs:    make(map[string]map[string][]byte),
	}
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) Health(context.Context) (string, error) { return "green", nil }

func (f *fakeStore) EnsureIndex(_ context.Context, name string, m *db.Mapping) error {
	f.ensured[name] = m
	return nil
}

func (f *fakeStore) DeleteIndex(context.Context, string) error { return nil }

func (f *fakeStore) IndexExists(_ context.Context, name string) (bool, error) {
	_, ok := f.ensured[name]
	return ok, nil
}

func (f *fakeStore) Put(_ context.Context, index, id string, doc []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	if f.docs[index] == nil {
		f.docs[index] = make(map[string][]byte)
	}
	f.docs[index][id] = doc
	return nil
}

func (f *fakeStore) Get(_ context.Context, index, id string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[index][id]
	if !ok {
		return nil, &db.Error{Op: db.OpGetDoc, Err: db.ErrDocNotFound}
	}
	return doc, nil
}

func (f *fakeStore) Update(context.Context, string, string, []byte) error { return nil }

func (f *fakeStore) Delete(_ context.Context, index, id string) error {
	if _, ok := f.docs[index][id]; !ok {
		return &db.Error{Op: db.OpDelete, Err: db.ErrDocNotFound}
	}
	delete(f.docs[index], id)
	return nil
}

func (f *fakeStore) BulkPut(_ context.Context, index string, docs []db.BulkDoc) error {
	if f.docs[index] == nil {
		f.docs[index] = make(map[string][]byte)
	}
	for _, d := range docs {
		f.docs[index][d.ID] = d.Body
	}
	return nil
}

func (f *fakeStore) Search(_ context.Context, index string, body map[string]any) (*db.SearchResult, error) {
	f.mu.Lock()
	f.searches = append(f.searches, body)
	f.mu.Unlock()
	if f.searchFn != nil {
		return f.searchFn(index, body)
	}
	return &db.SearchResult{}, nil
}

func (f *fakeStore) Count(_ context.Context, index string, _ map[string]any) (int, error) {
	return len(f.docs[index]), nil
}

func (f *fakeStore) DeleteByQuery(context.Context, string, map[string]any, int) (int64, error) {
	return 0, nil
}

func (f *fakeStore) Close() {}

func (f *fakeStore) WaitForReady(context.Context, time.Duration) error { return nil }

// newTestClient wires a Client over a fake store, skipping New's
// connection ceremony.
func newTestClient(store db.Store, embedder Embedder) *Client {
	c := &Client{
		store:       store,
		indexPrefix: "test",
		vectorDims:  3,
	}
	if embedder != nil {
		c.embedder = &embedderAdapter{inner: embedder}
	}
	return c
}
