// Package elastic implements the db.Store facade on Elasticsearch 8.
package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/docdex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters for an Elasticsearch store.
type Config struct {
	Addrs    []string
	Username string
	Password string

	// RequestTimeout caps each store operation. Zero disables the cap.
	RequestTimeout time.Duration
	// MaxRetries for transient failures (default 10, matching retry_on_timeout
	// deployments this store replaces).
	MaxRetries int

	// Transport overrides the HTTP transport; tests inject a stub here.
	Transport http.RoundTripper
}

// Store implements db.Store via the official go-elasticsearch client.
type Store struct {
	es      *elasticsearch.Client
	timeout time.Duration
}

// NewStore creates an Elasticsearch store.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 10
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     cfg.Addrs,
		Username:      cfg.Username,
		Password:      cfg.Password,
		MaxRetries:    maxRetries,
		RetryOnStatus: []int{429, 502, 503, 504},
		Transport:     cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{es: es, timeout: cfg.RequestTimeout}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.es.Ping(s.es.Ping.WithContext(ctx))
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	defer res.Body.Close()

	if res.IsError() {
		return &db.Error{Op: db.OpPing, Err: fmt.Errorf("%w: %s", db.ErrUnavailable, res.Status())}
	}
	return nil
}

// Health returns the cluster status: green, yellow or red.
func (s *Store) Health(ctx context.Context) (string, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.es.Cluster.Health(s.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return "", &db.Error{Op: db.OpClusterHealth, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	defer res.Body.Close()

	if res.IsError() {
		return "", &db.Error{Op: db.OpClusterHealth, Err: fmt.Errorf("cluster health: %s", readError(res))}
	}

	var parsed struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", &db.Error{Op: db.OpClusterHealth, Err: fmt.Errorf("decode health response: %w", err)}
	}
	return parsed.Status, nil
}

// Close releases client resources. The underlying HTTP client needs no
// explicit shutdown; Close exists to satisfy db.Store.
func (s *Store) Close() {}

// WaitForReady polls Ping until the cluster responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for elasticsearch: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// opCtx applies the per-operation timeout cap when configured.
func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// readError extracts a short error string from an esapi response body.
func readError(res *esapi.Response) string {
	data, _ := io.ReadAll(res.Body)
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		return res.Status()
	}
	return msg
}
