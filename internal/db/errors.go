package db

import "errors"

// Sentinel errors for store operations.
var (
	ErrDocNotFound   = errors.New("db: document not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
	ErrConflict      = errors.New("db: version conflict")
	ErrUnavailable   = errors.New("db: store unavailable")
	ErrKeyNotFound   = errors.New("db: key not found")
)

// Op constants map to Elasticsearch API endpoints (and Redis commands for
// the cache store) for error context.
const (
	OpPing          = "ping"
	OpClusterHealth = "cluster.health"
	OpIndicesCreate = "indices.create"
	OpIndicesDelete = "indices.delete"
	OpIndicesExists = "indices.exists"
	OpIndex         = "index"
	OpGetDoc        = "get"
	OpUpdate        = "update"
	OpDelete        = "delete"
	OpSearch        = "search"
	OpCount         = "count"
	OpBulk          = "bulk"
	OpDeleteByQuery = "delete_by_query"

	OpGet    = "GET"
	OpSet    = "SET"
	OpIncrBy = "INCRBY"
	OpExpire = "EXPIRE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
