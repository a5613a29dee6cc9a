package health

import (
	"context"
	"net/http"
	"time"

	"careops/backend/internal/db"

	"github.com/gin-gonic/gin"
)

// HealthResponse is the body returned by the health endpoint
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HealthChecker reports process and database liveness
type HealthChecker struct {
	database *db.Database
	timeout  time.Duration
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(database *db.Database, timeout time.Duration) *HealthChecker {
	return &HealthChecker{database: database, timeout: timeout}
}

// Handler serves the health endpoint. A failing database ping degrades the
// status to 503 so load balancers stop routing here.
func (h *HealthChecker) Handler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Database: "ok"}
	statusCode := http.StatusOK

	if err := h.database.HealthCheck(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, resp)
}
