package health

import (
	"context"
	"time"

	"github.com/clipvault/clipvault_server/internal/response"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const (
	readyTimeout = 5 * time.Second
	checkFailed  = "failed"
)

// Check is a named readiness probe, e.g. a database ping.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

type HealthEndpoints struct {
	version string
	checks  []Check
}

func NewEndpoints(version string, checks ...Check) *HealthEndpoints {
	return &HealthEndpoints{
		version: version,
		checks:  checks,
	}
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Health handles GET /health
func (h *HealthEndpoints) Health(ctx *fasthttp.RequestCtx) {
	response.JSON(ctx, fasthttp.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready handles GET /ready
func (h *HealthEndpoints) Ready(ctx *fasthttp.RequestCtx) {
	checkCtx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()

	result := HealthResponse{
		Status:  "ok",
		Version: h.version,
		Checks:  make(map[string]string, len(h.checks)),
	}
	status := fasthttp.StatusOK

	for _, check := range h.checks {
		if err := check.Run(checkCtx); err != nil {
			log.Warn().Err(err).Str("check", check.Name).Msg("Readiness check failed")
			result.Checks[check.Name] = checkFailed
			result.Status = "unavailable"
			status = fasthttp.StatusServiceUnavailable
			continue
		}
		result.Checks[check.Name] = "ok"
	}

	response.JSON(ctx, status, result)
}
