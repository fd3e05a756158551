package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/survey-pulse-api/internal/service"
	appErrors "github.com/noah-isme/survey-pulse-api/pkg/errors"
	"github.com/noah-isme/survey-pulse-api/pkg/response"
)

// ResponseHandler exposes owner-facing response administration plus
// statistics and exports.
type ResponseHandler struct {
	surveys    *service.SurveyService
	statistics *service.StatisticsService
}

// NewResponseHandler creates a new handler.
func NewResponseHandler(surveys *service.SurveyService, statistics *service.StatisticsService) *ResponseHandler {
	return &ResponseHandler{surveys: surveys, statistics: statistics}
}

// List godoc
// @Summary List survey responses
// @Description Every response with answers rendered per question type, newest first
// @Tags Responses
// @Produce json
// @Param id path string true "Survey ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /surveys/{id}/responses [get]
func (h *ResponseHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	responses, err := h.surveys.ListResponses(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, responses, nil)
}

// Get godoc
// @Summary Get one response
// @Description One formatted response scoped to its survey
// @Tags Responses
// @Produce json
// @Param id path string true "Survey ID"
// @Param responseId path string true "Response ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /surveys/{id}/responses/{responseId} [get]
func (h *ResponseHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.surveys.GetResponse(c.Request.Context(), claims.UserID, c.Param("id"), c.Param("responseId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete one response
// @Description Remove a response and invalidate cached statistics
// @Tags Responses
// @Param id path string true "Survey ID"
// @Param responseId path string true "Response ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /surveys/{id}/responses/{responseId} [delete]
func (h *ResponseHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.surveys.DeleteResponse(c.Request.Context(), claims.UserID, c.Param("id"), c.Param("responseId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Statistics godoc
// @Summary Get survey statistics
// @Description Aggregated per-question counts and percentages
// @Tags Responses
// @Produce json
// @Param id path string true "Survey ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /surveys/{id}/statistics [get]
func (h *ResponseHandler) Statistics(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	surveyID := c.Param("id")
	if _, err := h.surveys.Get(c.Request.Context(), claims.UserID, surveyID); err != nil {
		response.Error(c, err)
		return
	}

	stats, err := h.statistics.GetStatistics(c.Request.Context(), surveyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export survey responses
// @Description Download all responses as CSV or PDF
// @Tags Responses
// @Produce octet-stream
// @Param id path string true "Survey ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /surveys/{id}/export [get]
func (h *ResponseHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	data, filename, contentType, err := h.surveys.ExportResponses(
		c.Request.Context(), claims.UserID, c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}
