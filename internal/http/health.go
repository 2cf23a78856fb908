package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthProbeTimeout = 2 * time.Second

// Overall health states. A failing critical probe makes the service
// unhealthy (503); a failing optional one only degrades it.
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusDegraded  = "degraded"
	HealthStatusUnhealthy = "unhealthy"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthCheck is one named probe reported by /health.
type HealthCheck struct {
	Name     string
	Probe    Pinger
	Critical bool
}

type HealthController struct {
	checks  []HealthCheck
	version string
	started time.Time
}

func NewHealthController(version string, checks ...HealthCheck) *HealthController {
	return &HealthController{
		checks:  checks,
		version: version,
		started: time.Now(),
	}
}

// Status handles GET /health. Probes run one after another, each with its
// own timeout.
func (h *HealthController) Status(c *gin.Context) {
	results := make(map[string]string, len(h.checks))
	status := HealthStatusHealthy

	for _, check := range h.checks {
		if check.Probe == nil {
			results[check.Name] = "not configured"
			continue
		}
		if err := probe(c.Request.Context(), check.Probe); err != nil {
			results[check.Name] = "error: " + err.Error()
			if check.Critical {
				status = HealthStatusUnhealthy
			} else if status == HealthStatusHealthy {
				status = HealthStatusDegraded
			}
			continue
		}
		results[check.Name] = "ok"
	}

	statusCode := http.StatusOK
	if status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, HealthResponse{
		Status:  status,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Version: h.version,
		Checks:  results,
	})
}

func probe(parent context.Context, p Pinger) error {
	ctx, cancel := context.WithTimeout(parent, healthProbeTimeout)
	defer cancel()
	return p.Ping(ctx)
}
