package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/material-question-service/internal/utils"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogError logs err with the request scoped logger.
func (h *BaseHandler) LogError(c *gin.Context, err error, msg string) {
	utils.GetLogger(c, h.logger).Error(msg,
		"error", err,
		"method", c.Request.Method,
		"path", c.FullPath(),
		"user_id", c.GetString("user_id"))
}
