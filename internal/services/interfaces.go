package services

import (
	"context"

	"github.com/SAP-F-2025/material-question-service/internal/models"
)

// GenerationService turns a material's text into pending multiple-choice
// questions, either by importing a formatted question bank or by asking the
// configured generation providers.
type GenerationService interface {
	// Generate runs the full pipeline for a material. Failures are returned
	// as *PipelineError and recorded on the material before returning.
	// Materials of another organization are reported as not found.
	Generate(ctx context.Context, materialID uint, req *models.GenerateQuestionsRequest, caller models.Caller) (*models.GenerationResult, error)

	// ImportQuestions persists reviewed bank questions supplied by the caller,
	// typically after Generate reported missing answers.
	ImportQuestions(ctx context.Context, materialID uint, req *models.ImportQuestionsRequest, caller models.Caller) (*models.GenerationResult, error)

	ListLogs(ctx context.Context, materialID uint, filters models.GenerationLogFilters, caller models.Caller) (*models.PaginatedResponse, error)
	GetLog(ctx context.Context, id uint, caller models.Caller) (*models.GenerationLog, error)
}

// ServiceManager owns service construction and lifecycle.
type ServiceManager interface {
	Generation() GenerationService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
