package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/material-question-service/internal/models"
	"gorm.io/gorm"
)

// MaterialProcessingUpdate is applied together with a status transition.
type MaterialProcessingUpdate struct {
	Status      models.ProcessingStatus
	Error       *string
	QuestionIDs []uint
}

type MaterialRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.SourceMaterial, error)
	SaveExtractedText(ctx context.Context, tx *gorm.DB, id uint, text string) error
	// UpdateProcessing applies the update only when the stored status may
	// legally move to update.Status; otherwise ErrInvalidTransition.
	UpdateProcessing(ctx context.Context, tx *gorm.DB, id uint, update MaterialProcessingUpdate) error
}

type QuestionRepository interface {
	// ListTextsByScope returns stems of pending and active questions. A nil
	// topic scopes to the whole course.
	ListTextsByScope(ctx context.Context, tx *gorm.DB, organizationID string, courseID uint, topicID *uint) ([]string, error)
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error
	// GetByIDs returns the questions found, in the order of ids.
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error)
}

type GenerationLogRepository interface {
	Create(ctx context.Context, tx *gorm.DB, log *models.GenerationLog) error
	Update(ctx context.Context, tx *gorm.DB, log *models.GenerationLog) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.GenerationLog, error)
	// FindRecentSuccess returns the newest successful log created at or after
	// since, or nil when there is none.
	FindRecentSuccess(ctx context.Context, tx *gorm.DB, materialID uint, difficulty models.DifficultyLevel, since time.Time) (*models.GenerationLog, error)
	CountSince(ctx context.Context, tx *gorm.DB, organizationID string, since time.Time) (int64, error)
	ListByMaterial(ctx context.Context, tx *gorm.DB, materialID uint, filters models.GenerationLogFilters) ([]*models.GenerationLog, int64, error)
}

// DirectoryRepository reads courses and topics owned by the resource service.
type DirectoryRepository interface {
	GetCourse(ctx context.Context, id uint) (*models.Course, error)
	GetTopic(ctx context.Context, id uint) (*models.Topic, error)
}

// UserRepository resolves caller identities (read only).
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}
