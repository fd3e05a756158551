package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/survey-pulse-api/internal/service"
	appErrors "github.com/noah-isme/survey-pulse-api/pkg/errors"
	"github.com/noah-isme/survey-pulse-api/pkg/response"
)

// PublicHandler serves the respondent-facing endpoints: viewing a
// published survey and submitting a response. No authentication is
// required; a bearer token, when present, attributes the response.
type PublicHandler struct {
	submissions *service.SubmissionService
}

// NewPublicHandler creates a new handler.
func NewPublicHandler(submissions *service.SubmissionService) *PublicHandler {
	return &PublicHandler{submissions: submissions}
}

// GetSurvey godoc
// @Summary Get published survey
// @Description Respondent view of a published survey; pending and closed surveys read as not found
// @Tags Public
// @Produce json
// @Param id path string true "Survey ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/surveys/{id} [get]
func (h *PublicHandler) GetSurvey(c *gin.Context) {
	detail, err := h.submissions.PublicSurvey(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Submit godoc
// @Summary Submit survey response
// @Description Run the admission pipeline for one response
// @Tags Public
// @Accept json
// @Produce json
// @Param id path string true "Survey ID"
// @Param payload body service.SubmitRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /public/surveys/{id}/responses [post]
func (h *PublicHandler) Submit(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}

	ip := c.ClientIP()
	agent := c.GetHeader("User-Agent")
	req.IPAddress = &ip
	if agent != "" {
		req.UserAgent = &agent
	}
	if claims := claimsFromContext(c); claims != nil {
		req.UserID = &claims.UserID
	}

	result, err := h.submissions.Submit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}
