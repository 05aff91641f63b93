package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure of optional components.
	Degraded Status = "degraded"
	// Unhealthy indicates the search backend is down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	// ClusterStatus is the raw Elasticsearch cluster status
	// ("green", "yellow", "red"); empty when the cluster is unreachable.
	ClusterStatus string
	// EmbeddingsEnabled reports whether semantic search is configured.
	EmbeddingsEnabled bool
}

// ClusterReport is the Elasticsearch detail check.
type ClusterReport struct {
	Status  string
	Healthy bool
}

// Service coordinates health checks.
type Service struct {
	es         ClusterHealth
	cache      CachePinger
	embeddings bool
}

// New creates a Service. cache can be nil (shared cache disabled).
func New(es ClusterHealth, cache CachePinger, embeddingsEnabled bool) *Service {
	return &Service{es: es, cache: cache, embeddings: embeddingsEnabled}
}

// Check runs health checks against all components.
// A red or unreachable cluster makes the whole report Unhealthy; a failing
// cache only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	cluster := s.Elasticsearch(ctx)
	if cluster.Healthy {
		checks["elasticsearch"] = CheckOK
	} else {
		checks["elasticsearch"] = CheckError
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks["cache"] = CheckError
		} else {
			checks["cache"] = CheckOK
		}
	}

	status := Healthy
	switch {
	case checks["elasticsearch"] == CheckError:
		status = Unhealthy
	case checks["cache"] == CheckError:
		status = Degraded
	}

	return Report{
		Status:            status,
		Checks:            checks,
		ClusterStatus:     cluster.Status,
		EmbeddingsEnabled: s.embeddings,
	}
}

// Elasticsearch checks only the search backend.
// Green and yellow clusters are healthy; red or unreachable are not.
func (s *Service) Elasticsearch(ctx context.Context) ClusterReport {
	status, err := s.es.Health(ctx)
	if err != nil {
		return ClusterReport{}
	}
	return ClusterReport{
		Status:  status,
		Healthy: status == "green" || status == "yellow",
	}
}
