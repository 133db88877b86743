package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/calories/services"
	"github.com/cppla/calories/utils"
)

// HealthController reports liveness of the API and its store.
type HealthController struct {
	svc *services.FoodService
}

// NewHealthController creates a new HealthController instance.
func NewHealthController(svc *services.FoodService) *HealthController {
	return &HealthController{svc: svc}
}

// Health returns {status, timestamp}; 503 when the store is unreachable.
func (h *HealthController) Health(ctx *gin.Context) {
	status, err := h.svc.Health(ctx.Request.Context())
	if err != nil {
		utils.Respond(ctx, http.StatusServiceUnavailable, 50300, "store unavailable", status)
		return
	}
	utils.Success(ctx, status)
}
