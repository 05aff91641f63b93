// Package db defines the storage facade docdex runs on.
//
// The primary driver is Elasticsearch (db/elastic); a slim Redis driver
// (db/redis) backs the shared embedding cache and token budget counters.
package db

import (
	"context"
	"encoding/json"
	"time"
)

// Store is the main document store facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	IndexAdmin
	DocStore
	BulkWriter
	Searcher
	Expirer
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks cluster connectivity and health.
type Pinger interface {
	Ping(ctx context.Context) error
	// Health returns the cluster status: "green", "yellow" or "red".
	Health(ctx context.Context) (string, error)
}

// IndexAdmin provides index lifecycle operations.
type IndexAdmin interface {
	// EnsureIndex creates the index with the given mapping if it does not exist.
	EnsureIndex(ctx context.Context, name string, m *Mapping) error
	DeleteIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// DocStore provides single-document operations. Documents are raw JSON.
type DocStore interface {
	Put(ctx context.Context, index, id string, doc []byte) error
	Get(ctx context.Context, index, id string) ([]byte, error)
	// Update merges the given partial document into the stored one.
	Update(ctx context.Context, index, id string, partial []byte) error
	Delete(ctx context.Context, index, id string) error
}

// BulkDoc is a single document in a bulk write.
type BulkDoc struct {
	ID   string
	Body []byte
}

// BulkWriter writes batches of documents in one round-trip.
type BulkWriter interface {
	BulkPut(ctx context.Context, index string, docs []BulkDoc) error
}

// Searcher executes search request bodies built by Query.
type Searcher interface {
	Search(ctx context.Context, index string, body map[string]any) (*SearchResult, error)
	Count(ctx context.Context, index string, body map[string]any) (int, error)
}

// Expirer removes documents matching a query in batches.
type Expirer interface {
	DeleteByQuery(ctx context.Context, index string, body map[string]any, batchSize int) (int64, error)
}

// Cache is the key-value facade backing the shared embedding cache and the
// token budget counters. Values are raw bytes; counters use IncrBy + Expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) error
	// Expire sets TTL on a key. When nx is true the TTL is set only if the
	// key has no expiry yet.
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	Ping(ctx context.Context) error
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total        int
	Hits         []Hit
	Aggregations map[string]json.RawMessage
}

// Hit is a single document hit from a search.
type Hit struct {
	ID     string
	Score  float64
	Source json.RawMessage
	// Sort carries the sort values of the hit; for geo-distance sorts the
	// first element is the distance in meters.
	Sort []any
}
