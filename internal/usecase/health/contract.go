package health

import "context"

// ClusterHealth reports the search backend cluster status.
type ClusterHealth interface {
	// Health returns the cluster status: "green", "yellow" or "red".
	Health(ctx context.Context) (string, error)
}

// CachePinger checks the optional cache backend.
type CachePinger interface {
	Ping(ctx context.Context) error
}
