package docdex

import (
	"context"
	"time"

	healthuc "github.com/kailas-cloud/docdex/internal/usecase/health"
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component -> "ok"/"error"
	// ClusterStatus is the raw Elasticsearch cluster status ("green",
	// "yellow", "red"); empty when the cluster is unreachable.
	ClusterStatus     string
	EmbeddingsEnabled bool
}

// Health checks the health of all system components.
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	defer func() { c.obs.observe("health", start, nil) }()

	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status:            string(report.Status),
		Checks:            checks,
		ClusterStatus:     report.ClusterStatus,
		EmbeddingsEnabled: report.EmbeddingsEnabled,
	}
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
