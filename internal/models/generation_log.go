package models

import (
	"time"

	"gorm.io/datatypes"
)

type GenerationStatus string

const (
	GenerationPending GenerationStatus = "pending"
	GenerationSuccess GenerationStatus = "success"
	GenerationFailed  GenerationStatus = "failed"
)

// GenerationLog is the audit row of one AI generation attempt. Recent
// successful rows also serve as the generation cache.
type GenerationLog struct {
	ID             uint             `json:"id" gorm:"primaryKey"`
	MaterialID     uint             `json:"material_id" gorm:"not null;index:idx_generation_cache"`
	OrganizationID string           `json:"organization_id" gorm:"not null;size:255;index:idx_generation_org_day"`
	InitiatedBy    string           `json:"initiated_by" gorm:"not null;size:255"`
	Difficulty     DifficultyLevel  `json:"difficulty" gorm:"not null;size:20;index:idx_generation_cache"`
	Status         GenerationStatus `json:"status" gorm:"not null;size:20;default:pending;index"`

	QuestionIDs    datatypes.JSON `json:"question_ids" gorm:"type:jsonb"` // []uint
	RequestedCount int            `json:"requested_count"`
	GeneratedCount int            `json:"generated_count"`
	Provider       string         `json:"provider" gorm:"size:50"`
	Attempts       int            `json:"attempts"`
	DurationMs     int64          `json:"duration_ms"`
	ErrorMessage   *string        `json:"error_message" gorm:"type:text"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index:idx_generation_org_day"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (GenerationLog) TableName() string {
	return "generation_logs"
}
