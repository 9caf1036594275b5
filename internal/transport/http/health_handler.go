package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// HealthHandler serves the liveness endpoint. The service is stateless,
// so health is simply "the process is up".
type HealthHandler struct {
	version   string
	startedAt time.Time
}

// NewHealthHandler creates a health handler stamped with the build version
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version, startedAt: time.Now()}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	UptimeSec float64   `json:"uptime_seconds"`
	Timestamp time.Time `json:"timestamp"`
}

// Get handles GET /api/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, healthResponse{
		Status:    "healthy",
		Version:   h.version,
		UptimeSec: time.Since(h.startedAt).Seconds(),
		Timestamp: time.Now().UTC(),
	})
}
