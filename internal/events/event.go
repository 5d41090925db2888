package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "question-generation-service"
	EventVersion = "1.0"

	TypeQuestionsImported  = "material.questions_imported"
	TypeQuestionsGenerated = "material.questions_generated"
	TypeGenerationFailed   = "material.generation_failed"
)

type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// QuestionsProducedEvent is published when a material run persisted questions.
type QuestionsProducedEvent struct {
	MaterialID     uint   `json:"material_id"`
	OrganizationID string `json:"organization_id"`
	CourseID       uint   `json:"course_id"`
	Mode           string `json:"mode"`
	QuestionIDs    []uint `json:"question_ids"`
	LogID          *uint  `json:"log_id,omitempty"`
	Provider       string `json:"provider,omitempty"`
	Cached         bool   `json:"cached,omitempty"`
	InitiatedBy    string `json:"initiated_by"`
}

type GenerationFailedEvent struct {
	MaterialID     uint   `json:"material_id"`
	OrganizationID string `json:"organization_id"`
	// Empty when the run failed before choosing a path
	Mode           string `json:"mode,omitempty"`
	ErrorClass     string `json:"error_class"`
	Message        string `json:"message"`
	LogID          *uint  `json:"log_id,omitempty"`
	InitiatedBy    string `json:"initiated_by"`
}
