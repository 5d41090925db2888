package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/material-question-service/internal/models"
	"github.com/SAP-F-2025/material-question-service/internal/repositories"
	"gorm.io/gorm"
)

type GenerationLogPostgreSQL struct {
	db *gorm.DB
}

func NewGenerationLogPostgreSQL(db *gorm.DB) repositories.GenerationLogRepository {
	return &GenerationLogPostgreSQL{db: db}
}

func (g *GenerationLogPostgreSQL) Create(ctx context.Context, tx *gorm.DB, log *models.GenerationLog) error {
	if err := getDB(g.db, tx).WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create generation log: %w", err)
	}
	return nil
}

func (g *GenerationLogPostgreSQL) Update(ctx context.Context, tx *gorm.DB, log *models.GenerationLog) error {
	if err := getDB(g.db, tx).WithContext(ctx).Save(log).Error; err != nil {
		return fmt.Errorf("failed to update generation log: %w", err)
	}
	return nil
}

func (g *GenerationLogPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.GenerationLog, error) {
	var log models.GenerationLog
	if err := getDB(g.db, tx).WithContext(ctx).First(&log, id).Error; err != nil {
		return nil, notFoundOr(err, "get generation log %d", id)
	}
	return &log, nil
}

func (g *GenerationLogPostgreSQL) FindRecentSuccess(ctx context.Context, tx *gorm.DB, materialID uint, difficulty models.DifficultyLevel, since time.Time) (*models.GenerationLog, error) {
	var log models.GenerationLog
	err := getDB(g.db, tx).WithContext(ctx).
		Where("material_id = ? AND difficulty = ? AND status = ? AND created_at >= ?",
			materialID, difficulty, models.GenerationSuccess, since).
		Order("created_at DESC").
		First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find cached generation: %w", err)
	}
	return &log, nil
}

func (g *GenerationLogPostgreSQL) CountSince(ctx context.Context, tx *gorm.DB, organizationID string, since time.Time) (int64, error) {
	var count int64
	err := getDB(g.db, tx).WithContext(ctx).
		Model(&models.GenerationLog{}).
		Where("organization_id = ? AND created_at >= ?", organizationID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count generation logs: %w", err)
	}
	return count, nil
}

func (g *GenerationLogPostgreSQL) ListByMaterial(ctx context.Context, tx *gorm.DB, materialID uint, filters models.GenerationLogFilters) ([]*models.GenerationLog, int64, error) {
	query := applyLogFilters(
		getDB(g.db, tx).WithContext(ctx).Model(&models.GenerationLog{}).Where("material_id = ?", materialID),
		filters,
	)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count generation logs: %w", err)
	}

	var logs []*models.GenerationLog
	if err := applyPagination(query, filters.Limit, filters.Offset).
		Order("created_at DESC, id DESC").
		Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list generation logs: %w", err)
	}
	return logs, total, nil
}
