package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/material-question-service/internal/models"
	"github.com/SAP-F-2025/material-question-service/internal/repositories"
	"gorm.io/gorm"
)

type MaterialPostgreSQL struct {
	db *gorm.DB
}

func NewMaterialPostgreSQL(db *gorm.DB) repositories.MaterialRepository {
	return &MaterialPostgreSQL{db: db}
}

func (m *MaterialPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.SourceMaterial, error) {
	var material models.SourceMaterial
	if err := getDB(m.db, tx).WithContext(ctx).First(&material, id).Error; err != nil {
		return nil, notFoundOr(err, "get material %d", id)
	}
	return &material, nil
}

func (m *MaterialPostgreSQL) SaveExtractedText(ctx context.Context, tx *gorm.DB, id uint, text string) error {
	result := getDB(m.db, tx).WithContext(ctx).
		Model(&models.SourceMaterial{}).
		Where("id = ?", id).
		Update("extracted_text", text)
	if result.Error != nil {
		return fmt.Errorf("failed to save extracted text: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("material %d: %w", id, repositories.ErrNotFound)
	}
	return nil
}

func (m *MaterialPostgreSQL) UpdateProcessing(ctx context.Context, tx *gorm.DB, id uint, update repositories.MaterialProcessingUpdate) error {
	fields := map[string]interface{}{
		"processing_status": update.Status,
		"processing_error":  update.Error,
	}

	switch update.Status {
	case models.ProcessingCompleted:
		now := time.Now()
		fields["processed_at"] = &now
		fields["processing_error"] = nil
		fields["question_ids"] = models.EncodeIDs(update.QuestionIDs)
		fields["question_count"] = len(update.QuestionIDs)
	case models.ProcessingFailed:
		now := time.Now()
		fields["processed_at"] = &now
	case models.ProcessingInProgress:
		fields["processing_error"] = nil
	}

	result := getDB(m.db, tx).WithContext(ctx).
		Model(&models.SourceMaterial{}).
		Where("id = ? AND processing_status IN ?", id, update.Status.Predecessors()).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update material processing: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := m.GetByID(ctx, tx, id); err != nil {
			return err
		}
		return fmt.Errorf("material %d to %s: %w", id, update.Status, repositories.ErrInvalidTransition)
	}
	return nil
}
