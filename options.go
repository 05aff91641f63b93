package docdex

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs      []string
	username   string
	password   string
	timeout    time.Duration
	maxRetries int

	indexPrefix string
	vectorDims  int

	openaiBaseURL string
	openaiKey     string
	openaiModel   string

	cacheAddrs    []string
	cachePassword string

	embedder Embedder

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithAddresses sets the Elasticsearch node addresses. Required.
func WithAddresses(addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = addrs
	})
}

// WithBasicAuth sets Elasticsearch basic-auth credentials.
func WithBasicAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.password = password
	})
}

// WithIndexPrefix sets the prefix for all docdex indices.
// Defaults to "docdex" (indices docdex_articles, docdex_users).
func WithIndexPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexPrefix = prefix
	})
}

// WithTimeout caps each store operation. Zero (default) disables the cap.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithMaxRetries sets the retry count for transient Elasticsearch failures.
func WithMaxRetries(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxRetries = n
	})
}

// WithEmbeddingOpenAI configures an OpenAI-compatible embedding provider.
// baseURL may point at any compatible endpoint; empty means api.openai.com.
// Empty model selects text-embedding-3-small; dims <= 0 selects 1536.
func WithEmbeddingOpenAI(baseURL, key, model string, dims int) Option {
	return optionFunc(func(c *clientConfig) {
		c.openaiBaseURL = baseURL
		c.openaiKey = key
		c.openaiModel = model
		if dims > 0 {
			c.vectorDims = dims
		}
	})
}

// WithEmbeddingCache attaches a shared Redis cache in front of the
// embedding provider. Only effective when an embedder is configured.
func WithEmbeddingCache(addrs []string, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddrs = addrs
		c.cachePassword = password
	})
}

// WithEmbedder sets a custom text embedding provider. Takes precedence
// over WithEmbeddingOpenAI. Required for semantic and hybrid search;
// keyword and geo search work without it.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithVectorDimensions sets the dense vector dimension for indices the
// client creates. Defaults to 1536 (text-embedding-3-small).
func WithVectorDimensions(dims int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDims = dims
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithMetrics registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithMetrics(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
