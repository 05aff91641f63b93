package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	domart "github.com/kailas-cloud/docdex/internal/domain/article"
	"github.com/kailas-cloud/docdex/internal/domain/search/filter"
	"github.com/kailas-cloud/docdex/internal/domain/search/mode"
	"github.com/kailas-cloud/docdex/internal/domain/search/request"
	domusage "github.com/kailas-cloud/docdex/internal/domain/usage"
	articleuc "github.com/kailas-cloud/docdex/internal/usecase/article"
	healthuc "github.com/kailas-cloud/docdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/docdex/internal/usecase/search"
	usageuc "github.com/kailas-cloud/docdex/internal/usecase/usage"
	useruc "github.com/kailas-cloud/docdex/internal/usecase/user"
	"github.com/kailas-cloud/docdex/internal/version"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server hosts the HTTP API handlers.
type Server struct {
	articles      *articleuc.Service
	users         *useruc.Service
	search        *searchuc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	articles *articleuc.Service,
	users *useruc.Service,
	search *searchuc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		articles: articles,
		users:    users,
		search:   search,
		usage:    usage,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrUserNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, codeAlreadyExists),
		sentinelHandler(domain.ErrInvalidDocument, http.StatusBadRequest, codeInvalidArgument),
		sentinelHandler(domain.ErrGeoQueryInvalid, http.StatusBadRequest, codeInvalidQuery),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeInvalidQuery),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusTooManyRequests, codeQuotaExceeded),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingFailed),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
	return s
}

// Routes mounts every API endpoint on a fresh router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.handleBanner)
	r.Get("/health", s.handleHealth)
	r.Get("/health/elasticsearch", s.handleHealthElasticsearch)
	r.Get("/metrics", s.handleMetrics)
	r.Get("/usage", s.handleUsage)

	r.Route("/documents", func(r chi.Router) {
		r.Route("/articles", func(r chi.Router) {
			r.Post("/", s.handleCreateArticle)
			r.Get("/", s.handleListArticles)
			r.Post("/search", s.handleSearchArticles)
			r.Get("/{id}", s.handleGetArticle)
			r.Put("/{id}", s.handleUpdateArticle)
			r.Delete("/{id}", s.handleDeleteArticle)
		})
		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.handleCreateUser)
			r.Get("/", s.handleListUsers)
			r.Get("/{id}", s.handleGetUser)
		})
	})

	return r
}

// handleBanner handles GET /.
func (s *Server) handleBanner(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": version.Service,
		"version": version.Version,
		"status":  "running",
	})
}

// handleCreateArticle handles POST /documents/articles.
func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	var p articlePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, "Invalid request body: "+err.Error())
		return
	}

	a, err := articleFromPayload(p)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	created, err := s.articles.Create(ctx, a)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	w.Header().Set("Location", "/documents/articles/"+created.ID())
	writeJSON(w, http.StatusCreated, articleToResponse(&created))
}

// handleListArticles handles GET /documents/articles. Without q, category,
// tag or sort parameters it is a plain listing; otherwise it becomes a
// keyword search over the query text and filters.
func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	qp := r.URL.Query()
	query := strings.TrimSpace(qp.Get("q"))
	category := strings.TrimSpace(qp.Get("category"))
	tags := qp["tag"]
	limit := parseIntParam(qp.Get("limit"), 0)
	offset := parseIntParam(qp.Get("offset"), 0)
	sortRaw := strings.TrimSpace(qp.Get("sort"))

	if query == "" && category == "" && len(tags) == 0 && sortRaw == "" {
		s.listArticles(w, r, limit, offset)
		return
	}

	conds := make([]filter.Condition, 0, 2)
	if category != "" {
		cond, err := filter.NewTerm("category", category)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
			return
		}
		conds = append(conds, cond)
	}
	if len(tags) > 0 {
		cond, err := filter.NewTerms("tags", tags)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
			return
		}
		conds = append(conds, cond)
	}
	expr, err := filter.NewExpression(conds)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return
	}

	var sort *request.Sort
	if sortRaw != "" {
		sort, err = parseSortParam(sortRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
			return
		}
	}

	req, err := request.New(query, mode.Keyword, expr, nil, limit, offset, sort, nil, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return
	}

	page, err := s.search.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchPageToResponse(page, req.Limit(), req.Offset()))
}

func (s *Server) listArticles(w http.ResponseWriter, r *http.Request, limit, offset int) {
	limit, offset = clampPage(limit, offset)

	articles, total, err := s.articles.List(r.Context(), limit, offset)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]articleResponse, len(articles))
	for i := range articles {
		items[i] = articleToResponse(&articles[i])
	}
	writeJSON(w, http.StatusOK, articleListResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// handleGetArticle handles GET /documents/articles/{id} with ETag revalidation.
func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	a, err := s.articles.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	tag := articleETag(&a)
	w.Header().Set("ETag", tag)
	if r.Header.Get("If-None-Match") == tag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeJSON(w, http.StatusOK, articleToResponse(&a))
}

// handleUpdateArticle handles PUT /documents/articles/{id}. Fields absent
// from the body stay unchanged.
func (s *Server) handleUpdateArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var p articlePatchPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, "Invalid request body: "+err.Error())
		return
	}

	pt, err := patchFromPayload(p)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	updated, err := s.articles.Update(ctx, id, pt)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, articleToResponse(&updated))
}

// handleDeleteArticle handles DELETE /documents/articles/{id}.
func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	if err := s.articles.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleSearchArticles handles POST /documents/articles/search.
func (s *Server) handleSearchArticles(w http.ResponseWriter, r *http.Request) {
	var p searchPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, "Invalid request body: "+err.Error())
		return
	}

	req, err := searchRequestFromPayload(p)
	if err != nil {
		writeError(w, http.StatusBadRequest, searchErrorCode(err), err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	page, err := s.search.Search(ctx, &req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchPageToResponse(page, req.Limit(), req.Offset()))
}

// handleCreateUser handles POST /documents/users.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var p userPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, "Invalid request body: "+err.Error())
		return
	}

	u, err := userFromPayload(p)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, err.Error())
		return
	}

	created, err := s.users.Create(r.Context(), u)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/documents/users/"+created.ID())
	writeJSON(w, http.StatusCreated, userToResponse(&created))
}

// handleListUsers handles GET /documents/users.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	qp := r.URL.Query()
	limit, offset := clampPage(parseIntParam(qp.Get("limit"), 0), parseIntParam(qp.Get("offset"), 0))

	users, total, err := s.users.List(r.Context(), limit, offset)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]userResponse, len(users))
	for i := range users {
		items[i] = userToResponse(&users[i])
	}
	writeJSON(w, http.StatusOK, userListResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// handleGetUser handles GET /documents/users/{id}.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userToResponse(&u))
}

// handleUsage handles GET /usage.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	period := domusage.PeriodMonth
	if raw := r.URL.Query().Get("period"); raw != "" {
		switch domusage.Period(raw) {
		case domusage.PeriodDay, domusage.PeriodMonth, domusage.PeriodTotal:
			period = domusage.Period(raw)
		default:
			writeError(w, http.StatusBadRequest, codeInvalidArgument, "period must be day, month or total")
			return
		}
	}

	report := s.usage.GetReport(r.Context(), period)

	resp := usageResponse{
		Period: string(report.Period()),
		Usage: usageMetricsResponse{
			EmbeddingRequests: report.Metrics().EmbeddingRequests(),
			Tokens:            report.Metrics().Tokens(),
		},
		Budget: budgetStatusResponse{
			TokensLimit:     report.Budget().TokensLimit(),
			TokensRemaining: report.Budget().TokensRemaining(),
			IsExhausted:     report.Budget().IsExhausted(),
		},
	}

	if report.PeriodStart() > 0 {
		start := unixMilliUTC(report.PeriodStart())
		end := unixMilliUTC(report.PeriodEnd())
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}
	if report.Budget().ResetsAt() > 0 {
		resetsAt := unixMilliUTC(report.Budget().ResetsAt())
		resp.Budget.ResetsAt = &resetsAt
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleHealth handles GET /health. A degraded report still answers 200;
// only a failing search backend turns it into 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	writeJSON(w, status, healthResponse{
		Status:            string(report.Status),
		Checks:            checks,
		ClusterStatus:     report.ClusterStatus,
		EmbeddingsEnabled: report.EmbeddingsEnabled,
	})
}

// handleHealthElasticsearch handles GET /health/elasticsearch.
func (s *Server) handleHealthElasticsearch(w http.ResponseWriter, r *http.Request) {
	detail := s.health.Elasticsearch(r.Context())

	status := http.StatusOK
	if !detail.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, clusterHealthResponse{
		Status:  detail.Status,
		Healthy: detail.Healthy,
	})
}

// handleMetrics handles GET /metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.Tokens()))
	}
}

// articleETag derives the entity tag from the last modification time.
func articleETag(a *domart.Article) string {
	return strconv.Quote(strconv.FormatInt(a.UpdatedAt().UTC().UnixMilli(), 10))
}

// parseSortParam parses "field:asc", "field:desc" or a bare field name.
func parseSortParam(raw string) (*request.Sort, error) {
	field, order, found := strings.Cut(raw, ":")
	ord := request.OrderAsc
	if found {
		ord = request.Order(order)
	}
	s, err := request.NewSort(field, ord)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// clampPage normalizes limit and offset so the response echoes the
// effective page.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = request.DefaultLimit
	}
	if limit > request.MaxLimit {
		limit = request.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func unixMilliUTC(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// searchErrorCode picks the envelope code for a request-building failure.
func searchErrorCode(err error) errorCode {
	if errors.Is(err, domain.ErrGeoQueryInvalid) || errors.Is(err, domain.ErrInvalidQuery) {
		return codeInvalidQuery
	}
	return codeInvalidArgument
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrUserNotFound,
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrInvalidDocument,
		domain.ErrGeoQueryInvalid,
		domain.ErrInvalidQuery,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}
