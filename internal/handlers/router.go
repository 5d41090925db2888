package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/material-question-service/internal/models"
	"github.com/SAP-F-2025/material-question-service/internal/services"
	"github.com/SAP-F-2025/material-question-service/internal/utils"
)

const healthCheckTimeout = 3 * time.Second

type HandlerManager struct {
	serviceManager    services.ServiceManager
	generationHandler *GenerationHandler
	authMiddleware    *CasdoorAuthMiddleware
	logger            utils.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	authMiddleware *CasdoorAuthMiddleware,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		serviceManager:    serviceManager,
		generationHandler: NewGenerationHandler(serviceManager.Generation(), logger),
		authMiddleware:    authMiddleware,
		logger:            logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Generation and import write questions - Teachers and Admins only
		materials := v1.Group("/materials")
		materials.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin))
		{
			materials.POST("/:id/generate", hm.generationHandler.GenerateQuestions)
			materials.POST("/:id/import", hm.generationHandler.ImportQuestions)
			materials.GET("/:id/generation-logs", hm.generationHandler.ListGenerationLogs)
		}

		logs := v1.Group("/generation-logs")
		logs.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin))
		{
			logs.GET("/:id", hm.generationHandler.GetGenerationLog)
		}
	}

	router.GET("/health", hm.HealthCheck)
}

// HealthCheck reports whether the database and cache answer
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		utils.GetLogger(c, hm.logger).Warn("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "material-question-service",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "material-question-service",
	})
}
