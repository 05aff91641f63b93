package chi

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/docdex/internal/domain"
	domart "github.com/kailas-cloud/docdex/internal/domain/article"
	"github.com/kailas-cloud/docdex/internal/domain/article/patch"
	"github.com/kailas-cloud/docdex/internal/domain/geo"
	"github.com/kailas-cloud/docdex/internal/domain/search/aggregation"
	"github.com/kailas-cloud/docdex/internal/domain/search/filter"
	"github.com/kailas-cloud/docdex/internal/domain/search/mode"
	"github.com/kailas-cloud/docdex/internal/domain/search/request"
	"github.com/kailas-cloud/docdex/internal/domain/search/result"
	domuser "github.com/kailas-cloud/docdex/internal/domain/user"
)

// errorCode is the machine-readable error class in the error envelope.
type errorCode string

const (
	codeNotFound         errorCode = "not_found"
	codeAlreadyExists    errorCode = "already_exists"
	codeInvalidArgument  errorCode = "invalid_argument"
	codeInvalidQuery     errorCode = "invalid_query"
	codeRateLimited      errorCode = "rate_limited"
	codeQuotaExceeded    errorCode = "quota_exceeded"
	codeEmbeddingFailed  errorCode = "embedding_failed"
	codeUnauthorized     errorCode = "unauthorized"
	codeStoreUnavailable errorCode = "store_unavailable"
	codeInternal         errorCode = "internal"
)

type errorBody struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorResponse is the error envelope returned by every failing endpoint.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type locationPayload struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type articlePayload struct {
	ID       string           `json:"id,omitempty"`
	Title    string           `json:"title"`
	Content  string           `json:"content"`
	Author   string           `json:"author,omitempty"`
	Category string           `json:"category,omitempty"`
	Tags     []string         `json:"tags,omitempty"`
	Views    int              `json:"views,omitempty"`
	Rating   float64          `json:"rating,omitempty"`
	Location *locationPayload `json:"location,omitempty"`
}

// articlePatchPayload distinguishes absent fields (nil, unchanged) from
// explicitly set ones.
type articlePatchPayload struct {
	Title    *string          `json:"title"`
	Content  *string          `json:"content"`
	Author   *string          `json:"author"`
	Category *string          `json:"category"`
	Tags     *[]string        `json:"tags"`
	Views    *int             `json:"views"`
	Rating   *float64         `json:"rating"`
	Location *locationPayload `json:"location"`
}

type articleResponse struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	Author    string           `json:"author"`
	Category  string           `json:"category"`
	Tags      []string         `json:"tags"`
	Views     int              `json:"views"`
	Rating    float64          `json:"rating"`
	Source    string           `json:"source,omitempty"`
	Location  *locationPayload `json:"location,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type articleListResponse struct {
	Items  []articleResponse `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

type userPayload struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Bio       string    `json:"bio"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type userListResponse struct {
	Items  []userResponse `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// filterPayload is one pre-filter condition. Exactly one of term, terms or
// a range (gte/lte for numeric fields, from/to for date fields) must be set.
type filterPayload struct {
	Field string   `json:"field"`
	Term  string   `json:"term,omitempty"`
	Terms []string `json:"terms,omitempty"`
	GTE   *float64 `json:"gte,omitempty"`
	LTE   *float64 `json:"lte,omitempty"`
	From  *string  `json:"from,omitempty"`
	To    *string  `json:"to,omitempty"`
}

type geoPayload struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	RadiusMeters float64 `json:"radius_meters"`
}

type sortPayload struct {
	Field string `json:"field"`
	Order string `json:"order,omitempty"`
}

type aggregationPayload struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Field string `json:"field"`
	Size  int    `json:"size,omitempty"`
}

type searchPayload struct {
	Query        string               `json:"query,omitempty"`
	Mode         string               `json:"mode,omitempty"`
	Filters      []filterPayload      `json:"filters,omitempty"`
	Geo          *geoPayload          `json:"geo,omitempty"`
	Limit        int                  `json:"limit,omitempty"`
	Offset       int                  `json:"offset,omitempty"`
	Sort         *sortPayload         `json:"sort,omitempty"`
	Aggregations []aggregationPayload `json:"aggregations,omitempty"`
	SimilarTo    string               `json:"similar_to,omitempty"`
}

// searchHitResponse flattens the matched article with its relevance score.
type searchHitResponse struct {
	articleResponse
	Score          float64  `json:"score"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
}

type aggregationBucket struct {
	Key      string `json:"key"`
	DocCount int    `json:"doc_count"`
}

type aggregationStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Sum   float64 `json:"sum"`
}

type aggregationResult struct {
	Kind    string              `json:"kind"`
	Buckets []aggregationBucket `json:"buckets,omitempty"`
	Stats   *aggregationStats   `json:"stats,omitempty"`
}

type searchResponse struct {
	Items        []searchHitResponse          `json:"items"`
	Total        int                          `json:"total"`
	Limit        int                          `json:"limit"`
	Offset       int                          `json:"offset"`
	Aggregations map[string]aggregationResult `json:"aggregations,omitempty"`
}

type healthResponse struct {
	Status            string            `json:"status"`
	Checks            map[string]string `json:"checks"`
	ClusterStatus     string            `json:"cluster_status,omitempty"`
	EmbeddingsEnabled bool              `json:"embeddings_enabled"`
}

type clusterHealthResponse struct {
	Status  string `json:"status"`
	Healthy bool   `json:"healthy"`
}

type usageMetricsResponse struct {
	EmbeddingRequests int `json:"embedding_requests"`
	Tokens            int `json:"tokens"`
}

type budgetStatusResponse struct {
	TokensLimit     int        `json:"tokens_limit"`
	TokensRemaining int        `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

type usageResponse struct {
	Period        string               `json:"period"`
	PeriodStartAt *time.Time           `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time           `json:"period_end_at,omitempty"`
	Usage         usageMetricsResponse `json:"usage"`
	Budget        budgetStatusResponse `json:"budget"`
}

func locationFromPayload(p *locationPayload) (*geo.Point, error) {
	if p == nil {
		return nil, nil
	}
	pt, err := geo.NewPoint(p.Lat, p.Lon)
	if err != nil {
		return nil, fmt.Errorf("location: %w", err)
	}
	return &pt, nil
}

func articleFromPayload(p articlePayload) (domart.Article, error) {
	loc, err := locationFromPayload(p.Location)
	if err != nil {
		return domart.Article{}, err
	}
	a, err := domart.New(p.ID, p.Title, p.Content, p.Author, p.Category, p.Tags, p.Views, p.Rating, loc)
	if err != nil {
		return domart.Article{}, fmt.Errorf("build article: %w", err)
	}
	return a, nil
}

func patchFromPayload(p articlePatchPayload) (patch.Patch, error) {
	loc, err := locationFromPayload(p.Location)
	if err != nil {
		return patch.Patch{}, err
	}
	pt, err := patch.New(p.Title, p.Content, p.Author, p.Category, p.Tags, p.Views, p.Rating, loc)
	if err != nil {
		return patch.Patch{}, fmt.Errorf("build patch: %w", err)
	}
	return pt, nil
}

func articleToResponse(a *domart.Article) articleResponse {
	tags := a.Tags()
	if tags == nil {
		tags = []string{}
	}

	var loc *locationPayload
	if p := a.Location(); p != nil {
		loc = &locationPayload{Lat: p.Lat(), Lon: p.Lon()}
	}

	return articleResponse{
		ID:        a.ID(),
		Title:     a.Title(),
		Content:   a.Content(),
		Author:    a.Author(),
		Category:  a.Category(),
		Tags:      tags,
		Views:     a.Views(),
		Rating:    a.Rating(),
		Source:    a.Source(),
		Location:  loc,
		CreatedAt: a.CreatedAt().UTC(),
		UpdatedAt: a.UpdatedAt().UTC(),
	}
}

func userFromPayload(p userPayload) (domuser.User, error) {
	u, err := domuser.New(p.ID, p.Username, p.Email, p.FullName, p.Bio)
	if err != nil {
		return domuser.User{}, fmt.Errorf("build user: %w", err)
	}
	return u, nil
}

func userToResponse(u *domuser.User) userResponse {
	return userResponse{
		ID:        u.ID(),
		Username:  u.Username(),
		Email:     u.Email(),
		FullName:  u.FullName(),
		Bio:       u.Bio(),
		IsActive:  u.IsActive(),
		CreatedAt: u.CreatedAt().UTC(),
		UpdatedAt: u.UpdatedAt().UTC(),
	}
}

func searchRequestFromPayload(p searchPayload) (request.Request, error) {
	filters, err := filtersFromPayload(p.Filters)
	if err != nil {
		return request.Request{}, err
	}

	var geoQuery *request.GeoQuery
	if p.Geo != nil {
		geoQuery = &request.GeoQuery{Lat: p.Geo.Lat, Lon: p.Geo.Lon, RadiusMeters: p.Geo.RadiusMeters}
	}

	var sort *request.Sort
	if p.Sort != nil {
		s, sortErr := sortFromPayload(*p.Sort)
		if sortErr != nil {
			return request.Request{}, sortErr
		}
		sort = &s
	}

	aggs, err := aggregationsFromPayload(p.Aggregations)
	if err != nil {
		return request.Request{}, err
	}

	req, err := request.New(
		p.Query, mode.Mode(p.Mode), filters, geoQuery,
		p.Limit, p.Offset, sort, aggs, p.SimilarTo,
	)
	if err != nil {
		return request.Request{}, fmt.Errorf("build search request: %w", err)
	}
	return req, nil
}

func filtersFromPayload(ps []filterPayload) (filter.Expression, error) {
	if len(ps) == 0 {
		return filter.Expression{}, nil
	}

	conds := make([]filter.Condition, 0, len(ps))
	for _, p := range ps {
		cond, err := conditionFromPayload(p)
		if err != nil {
			return filter.Expression{}, err
		}
		conds = append(conds, cond)
	}

	expr, err := filter.NewExpression(conds)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("build filters: %w", err)
	}
	return expr, nil
}

func conditionFromPayload(p filterPayload) (filter.Condition, error) {
	switch {
	case p.Term != "":
		cond, err := filter.NewTerm(p.Field, p.Term)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("term filter: %w", err)
		}
		return cond, nil
	case len(p.Terms) > 0:
		cond, err := filter.NewTerms(p.Field, p.Terms)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("terms filter: %w", err)
		}
		return cond, nil
	case p.From != nil || p.To != nil:
		from, err := parseFilterTime(p.From)
		if err != nil {
			return filter.Condition{}, err
		}
		to, err := parseFilterTime(p.To)
		if err != nil {
			return filter.Condition{}, err
		}
		cond, err := filter.NewDateRange(p.Field, from, to)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("date range filter: %w", err)
		}
		return cond, nil
	case p.GTE != nil || p.LTE != nil:
		cond, err := filter.NewNumRange(p.Field, p.GTE, p.LTE)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("numeric range filter: %w", err)
		}
		return cond, nil
	default:
		return filter.Condition{}, fmt.Errorf(
			"filter for field %q needs term, terms or a range bound: %w", p.Field, domain.ErrInvalidQuery)
	}
}

func parseFilterTime(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, fmt.Errorf("date bound %q must be RFC3339: %w", *raw, domain.ErrInvalidQuery)
	}
	return &t, nil
}

func sortFromPayload(p sortPayload) (request.Sort, error) {
	order := request.OrderAsc
	if p.Order != "" {
		order = request.Order(p.Order)
	}
	s, err := request.NewSort(p.Field, order)
	if err != nil {
		return request.Sort{}, fmt.Errorf("sort: %w", err)
	}
	return s, nil
}

func aggregationsFromPayload(ps []aggregationPayload) ([]aggregation.Request, error) {
	if len(ps) == 0 {
		return nil, nil
	}

	aggs := make([]aggregation.Request, 0, len(ps))
	for _, p := range ps {
		var (
			agg aggregation.Request
			err error
		)
		switch aggregation.Kind(p.Kind) {
		case aggregation.KindTerms:
			agg, err = aggregation.NewTerms(p.Name, p.Field, p.Size)
		case aggregation.KindStats:
			agg, err = aggregation.NewStats(p.Name, p.Field)
		default:
			return nil, fmt.Errorf("aggregation %q has unknown kind %q: %w",
				p.Name, p.Kind, domain.ErrInvalidQuery)
		}
		if err != nil {
			return nil, fmt.Errorf("aggregation %q: %w", p.Name, err)
		}
		aggs = append(aggs, agg)
	}
	return aggs, nil
}

func searchPageToResponse(page *result.Page, limit, offset int) searchResponse {
	items := make([]searchHitResponse, len(page.Results))
	for i := range page.Results {
		r := &page.Results[i]
		a := r.Article()
		items[i] = searchHitResponse{
			articleResponse: articleToResponse(&a),
			Score:           r.Score(),
			DistanceMeters:  r.DistanceMeters(),
		}
	}

	resp := searchResponse{
		Items:  items,
		Total:  page.Total,
		Limit:  limit,
		Offset: offset,
	}
	if len(page.Aggregations) > 0 {
		resp.Aggregations = aggregationsToResponse(page.Aggregations)
	}
	return resp
}

func aggregationsToResponse(aggs map[string]aggregation.Result) map[string]aggregationResult {
	out := make(map[string]aggregationResult, len(aggs))
	for name, res := range aggs {
		r := aggregationResult{Kind: string(res.Kind)}
		if res.Buckets != nil {
			r.Buckets = make([]aggregationBucket, len(res.Buckets))
			for i, b := range res.Buckets {
				r.Buckets[i] = aggregationBucket{Key: b.Key, DocCount: b.DocCount}
			}
		}
		if res.Stats != nil {
			r.Stats = &aggregationStats{
				Count: res.Stats.Count,
				Min:   res.Stats.Min,
				Max:   res.Stats.Max,
				Avg:   res.Stats.Avg,
				Sum:   res.Stats.Sum,
			}
		}
		out[name] = r
	}
	return out
}
