package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/material-question-service/internal/models"
	"github.com/SAP-F-2025/material-question-service/internal/services"
	"github.com/SAP-F-2025/material-question-service/internal/utils"
	"github.com/SAP-F-2025/material-question-service/internal/validator"
)

type GenerationHandler struct {
	BaseHandler
	service services.GenerationService
}

func NewGenerationHandler(service services.GenerationService, logger utils.Logger) *GenerationHandler {
	return &GenerationHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// GenerateQuestions turns a material into questions
// @Summary Generate questions from a material
// @Description Imports the material as a question bank when it already is one, otherwise asks the AI providers
// @Tags materials
// @Accept json
// @Produce json
// @Param id path int true "Material ID"
// @Param request body models.GenerateQuestionsRequest false "Generation options"
// @Success 200 {object} models.GenerationResult
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 404 {object} ErrorResponse "Material not found"
// @Failure 409 {object} ErrorResponse "Every question already exists"
// @Failure 429 {object} ErrorResponse "Daily limit reached"
// @Failure 503 {object} ErrorResponse "AI generation disabled"
// @Router /materials/{id}/generate [post]
func (h *GenerationHandler) GenerateQuestions(c *gin.Context) {
	materialID, ok := h.parseID(c, "Invalid material ID")
	if !ok {
		return
	}

	var req models.GenerateQuestionsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request payload",
				Details: err.Error(),
			})
			return
		}
	}

	caller, ok := h.caller(c)
	if !ok {
		return
	}

	result, err := h.service.Generate(c.Request.Context(), materialID, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ImportQuestions stores reviewed question bank entries
// @Summary Import reviewed questions
// @Description Stores answered questions for a material, skipping ones that already exist
// @Tags materials
// @Accept json
// @Produce json
// @Param id path int true "Material ID"
// @Param request body models.ImportQuestionsRequest true "Questions to import"
// @Success 201 {object} models.GenerationResult
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 404 {object} ErrorResponse "Material not found"
// @Failure 409 {object} ErrorResponse "Every question already exists"
// @Router /materials/{id}/import [post]
func (h *GenerationHandler) ImportQuestions(c *gin.Context) {
	materialID, ok := h.parseID(c, "Invalid material ID")
	if !ok {
		return
	}

	var req models.ImportQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	caller, ok := h.caller(c)
	if !ok {
		return
	}

	result, err := h.service.ImportQuestions(c.Request.Context(), materialID, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ListGenerationLogs lists the generation audit trail of a material
// @Summary List generation logs
// @Tags materials
// @Produce json
// @Param id path int true "Material ID"
// @Param status query string false "pending, success or failed"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.PaginatedResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 404 {object} ErrorResponse "Material not found"
// @Router /materials/{id}/generation-logs [get]
func (h *GenerationHandler) ListGenerationLogs(c *gin.Context) {
	materialID, ok := h.parseID(c, "Invalid material ID")
	if !ok {
		return
	}

	var filters models.GenerationLogFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}

	caller, ok := h.caller(c)
	if !ok {
		return
	}

	response, err := h.service.ListLogs(c.Request.Context(), materialID, filters, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetGenerationLog returns one generation log
// @Summary Get a generation log
// @Tags generation-logs
// @Produce json
// @Param id path int true "Generation log ID"
// @Success 200 {object} models.GenerationLog
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /generation-logs/{id} [get]
func (h *GenerationHandler) GetGenerationLog(c *gin.Context) {
	id, ok := h.parseID(c, "Invalid generation log ID")
	if !ok {
		return
	}

	caller, ok := h.caller(c)
	if !ok {
		return
	}

	log, err := h.service.GetLog(c.Request.Context(), id, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, log)
}

// ===== HELPERS =====

func (h *GenerationHandler) parseID(c *gin.Context, message string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: message,
		})
		return 0, false
	}
	return uint(id), true
}

func (h *GenerationHandler) caller(c *gin.Context) (models.Caller, bool) {
	caller, err := GetCallerFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return models.Caller{}, false
	}
	return caller, true
}

func (h *GenerationHandler) handleServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrServiceDisabled):
		status = http.StatusServiceUnavailable
	case errors.Is(err, services.ErrRateLimited), errors.Is(err, services.ErrProviderRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, services.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, services.ErrProviderProtocolViolation), errors.Is(err, services.ErrExhausted):
		status = http.StatusBadGateway
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.LogError(c, err, "Unexpected service error")
		c.JSON(status, ErrorResponse{
			Message: "Internal server error",
			Code:    services.ErrorClass(err),
		})
		return
	}

	response := ErrorResponse{
		Message: err.Error(),
		Code:    services.ErrorClass(err),
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		response.Details = validationErrs
	}
	c.JSON(status, response)
}
