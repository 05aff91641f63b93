package docdex

import "github.com/kailas-cloud/docdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrDocumentNotFound       = domain.ErrDocumentNotFound
	ErrUserNotFound           = domain.ErrUserNotFound
	ErrAlreadyExists          = domain.ErrAlreadyExists
	ErrInvalidDocument        = domain.ErrInvalidDocument
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrGeoQueryInvalid        = domain.ErrGeoQueryInvalid
	ErrStoreUnavailable       = domain.ErrStoreUnavailable
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)
