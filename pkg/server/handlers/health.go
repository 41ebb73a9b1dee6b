package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	reranker "github.com/soundprediction/go-reranker"
	"github.com/soundprediction/go-reranker/pkg/server/dto"
)

// HealthHandler handles health and service-info requests.
type HealthHandler struct {
	svc *reranker.Service
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(svc *reranker.Service) *HealthHandler {
	return &HealthHandler{svc: svc}
}

// HealthCheck handles GET /health. It returns 503 until the readiness
// monitor reports the backend ready.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	health := h.svc.Health()
	if !health.Ready {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "backend_unavailable",
			Message: "scoring backend not ready",
		})
		return
	}

	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:         "healthy",
		ModelLoaded:    true,
		ModelName:      health.ModelName,
		Backend:        h.svc.BackendName(),
		Version:        reranker.Version,
		DegradedParses: h.svc.DegradedParses(),
	})
}

// Root handles GET / with service information.
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "reranker",
		"backend": h.svc.BackendName(),
		"version": reranker.Version,
		"endpoints": gin.H{
			"/":              "Service information",
			"/health":        "Health check endpoint",
			"/rerank":        "Single text pair reranking",
			"/rerank/batch":  "Batch text pairs reranking",
			"/rerank/query":  "Query-based passage reranking (sorted by relevance)",
		},
	})
}
