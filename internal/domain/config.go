package domain

// KeyPrefix prefixes every Redis key (embedding cache, budget counters).
const KeyPrefix = "docdex:"

// DefaultVectorDims is the embedding dimension of text-embedding-3-small.
const DefaultVectorDims = 1536

// DefaultEmbeddingModel is the provider model used when none is configured.
const DefaultEmbeddingModel = "text-embedding-3-small"
