package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/survey-pulse-api/internal/service"
	appErrors "github.com/noah-isme/survey-pulse-api/pkg/errors"
	"github.com/noah-isme/survey-pulse-api/pkg/response"
)

// LifecycleHandler exposes the manual sweep trigger used by operators
// and integration tests.
type LifecycleHandler struct {
	lifecycle *service.LifecycleService
}

// NewLifecycleHandler creates a new handler.
func NewLifecycleHandler(lifecycle *service.LifecycleService) *LifecycleHandler {
	return &LifecycleHandler{lifecycle: lifecycle}
}

// Sweep godoc
// @Summary Run a lifecycle sweep
// @Description Execute one sweep pass immediately instead of waiting for the ticker
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/sweep [post]
func (h *LifecycleHandler) Sweep(c *gin.Context) {
	if claims := claimsFromContext(c); claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.lifecycle.Sweep(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "swept"}, nil)
}
