package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/survey-pulse-api/internal/models"
	"github.com/noah-isme/survey-pulse-api/internal/service"
	appErrors "github.com/noah-isme/survey-pulse-api/pkg/errors"
	"github.com/noah-isme/survey-pulse-api/pkg/response"
)

// SurveyHandler wires HTTP endpoints to the survey service.
type SurveyHandler struct {
	service *service.SurveyService
}

// NewSurveyHandler creates a new handler.
func NewSurveyHandler(svc *service.SurveyService) *SurveyHandler {
	return &SurveyHandler{service: svc}
}

// Create godoc
// @Summary Create survey
// @Description Create a pending survey with its question graph
// @Tags Surveys
// @Accept json
// @Produce json
// @Param payload body service.SurveyInput true "Survey payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /surveys [post]
func (h *SurveyHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var input service.SurveyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid survey payload"))
		return
	}

	detail, err := h.service.Create(c.Request.Context(), claims.UserID, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, detail)
}

// List godoc
// @Summary List surveys
// @Description Page through the authenticated user's surveys
// @Tags Surveys
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param template query bool false "List templates instead of surveys"
// @Success 200 {object} response.Envelope
// @Router /surveys [get]
func (h *SurveyHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "9"))
	template := c.Query("template") == "true"

	surveys, pagination, err := h.service.List(c.Request.Context(), models.SurveyFilter{
		UserID:   claims.UserID,
		Template: template,
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, surveys, pagination)
}

// Templates godoc
// @Summary List survey templates
// @Description System templates plus the user's own
// @Tags Surveys
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /surveys/templates [get]
func (h *SurveyHandler) Templates(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	templates, err := h.service.ListTemplates(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, templates, nil)
}

// CreateTemplate godoc
// @Summary Create survey template
// @Description Create a reusable template owned by the user
// @Tags Surveys
// @Accept json
// @Produce json
// @Param payload body service.SurveyInput true "Template payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /surveys/templates [post]
func (h *SurveyHandler) CreateTemplate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var input service.SurveyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid template payload"))
		return
	}
	input.IsTemplate = true

	detail, err := h.service.Create(c.Request.Context(), claims.UserID, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, detail)
}

// Get godoc
// @Summary Get survey
// @Description Load one survey with settings and questions
// @Tags Surveys
// @Produce json
// @Param id path string true "Survey ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /surveys/{id} [get]
func (h *SurveyHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.service.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Update survey
// @Description Replace content and settings of a pending survey
// @Tags Surveys
// @Accept json
// @Produce json
// @Param id path string true "Survey ID"
// @Param payload body service.SurveyInput true "Survey payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /surveys/{id} [put]
func (h *SurveyHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var input service.SurveyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid survey payload"))
		return
	}

	detail, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete survey
// @Description Remove a survey with all responses and media
// @Tags Surveys
// @Param id path string true "Survey ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /surveys/{id} [delete]
func (h *SurveyHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Clone godoc
// @Summary Clone survey
// @Description Duplicate a survey or template into a fresh pending survey
// @Tags Surveys
// @Produce json
// @Param id path string true "Source survey ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /surveys/{id}/clone [post]
func (h *SurveyHandler) Clone(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	clone, err := h.service.Clone(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, clone)
}

// ToggleStatus godoc
// @Summary Toggle survey status
// @Description Publish a pending survey or close a published one
// @Tags Surveys
// @Accept json
// @Produce json
// @Param id path string true "Survey ID"
// @Param payload body handler.toggleRequest false "Announcement options"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /surveys/{id}/status [patch]
func (h *SurveyHandler) ToggleStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req toggleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid toggle payload"))
			return
		}
	}

	result, err := h.service.ToggleStatus(c.Request.Context(), claims.UserID, c.Param("id"), req.Channels, req.CustomMessage)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// UpdateSettings godoc
// @Summary Update survey settings
// @Description Adjust admission and lifecycle settings while the survey is open or pending
// @Tags Surveys
// @Accept json
// @Produce json
// @Param id path string true "Survey ID"
// @Param payload body service.SettingsInput true "Settings payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /surveys/{id}/settings [put]
func (h *SurveyHandler) UpdateSettings(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var input service.SettingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}

	settings, err := h.service.UpdateSettings(c.Request.Context(), claims.UserID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, settings, nil)
}

type toggleRequest struct {
	Channels      []string `json:"channels,omitempty"`
	CustomMessage string   `json:"custom_message,omitempty"`
}
