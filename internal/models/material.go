package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type ProcessingStatus string

const (
	ProcessingUploaded   ProcessingStatus = "uploaded"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
)

// CanTransitionTo enforces uploaded -> processing -> completed|failed.
// Runs are not locked: any material may (re)enter processing, and a run may
// finish after an overlapping run already did, so terminal states may be
// entered from either terminal state as well. The last run to finish wins.
func (s ProcessingStatus) CanTransitionTo(next ProcessingStatus) bool {
	switch next {
	case ProcessingInProgress:
		return s == "" || s == ProcessingUploaded || s == ProcessingInProgress || s.IsTerminal()
	case ProcessingCompleted, ProcessingFailed:
		return s == ProcessingInProgress || s.IsTerminal()
	}
	return false
}

// Predecessors lists the stored statuses from which s may be entered.
func (s ProcessingStatus) Predecessors() []ProcessingStatus {
	var from []ProcessingStatus
	for _, prev := range []ProcessingStatus{ProcessingUploaded, ProcessingInProgress, ProcessingCompleted, ProcessingFailed} {
		if prev.CanTransitionTo(s) {
			from = append(from, prev)
		}
	}
	return from
}

func (s ProcessingStatus) IsTerminal() bool {
	return s == ProcessingCompleted || s == ProcessingFailed
}

type SourceMaterial struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	OrganizationID string `json:"organization_id" gorm:"not null;size:255;index"`
	CourseID       uint   `json:"course_id" gorm:"not null;index"`
	TopicID        *uint  `json:"topic_id" gorm:"index"`
	Title          string `json:"title" gorm:"not null;size:255"`

	// Storage info
	FileType    string `json:"file_type" gorm:"not null;size:50"`
	StoragePath string `json:"storage_path" gorm:"not null;size:500"`

	ExtractedText    *string          `json:"-" gorm:"type:text"`
	ProcessingStatus ProcessingStatus `json:"processing_status" gorm:"not null;size:20;default:uploaded;index"`
	ProcessingError  *string          `json:"processing_error" gorm:"type:text"`
	QuestionIDs      datatypes.JSON   `json:"question_ids" gorm:"type:jsonb"` // []uint
	QuestionCount    int              `json:"question_count" gorm:"default:0"`

	UploadedBy  string     `json:"uploaded_by" gorm:"not null;index;size:255"`
	ProcessedAt *time.Time `json:"processed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (SourceMaterial) TableName() string {
	return "source_materials"
}

func (m *SourceMaterial) HasText() bool {
	return m.ExtractedText != nil && *m.ExtractedText != ""
}

func (m *SourceMaterial) Text() string {
	if m.ExtractedText == nil {
		return ""
	}
	return *m.ExtractedText
}

// EncodeIDs stores question ids in the JSONB column format.
func EncodeIDs(ids []uint) datatypes.JSON {
	if ids == nil {
		ids = []uint{}
	}
	raw, _ := json.Marshal(ids)
	return datatypes.JSON(raw)
}

func DecodeIDs(raw datatypes.JSON) []uint {
	var ids []uint
	if len(raw) == 0 {
		return ids
	}
	_ = json.Unmarshal(raw, &ids)
	return ids
}
