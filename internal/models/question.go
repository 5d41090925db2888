package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

func (d DifficultyLevel) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// QuestionSource records who authored a question.
type QuestionSource string

const (
	SourceHuman QuestionSource = "human"
	SourceAI    QuestionSource = "ai"
)

type QuestionStatus string

const (
	QuestionPending  QuestionStatus = "pending"
	QuestionActive   QuestionStatus = "active"
	QuestionRejected QuestionStatus = "rejected"
)

// Live reports whether the question still counts toward the corpus
// and can satisfy a cached generation.
func (s QuestionStatus) Live() bool {
	return s == QuestionPending || s == QuestionActive
}

type Question struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	OrganizationID string       `json:"organization_id" gorm:"not null;size:255;index:idx_question_scope"`
	CourseID       uint         `json:"course_id" gorm:"not null;index:idx_question_scope"`
	TopicID        *uint        `json:"topic_id" gorm:"index:idx_question_scope"`
	MaterialID     *uint        `json:"material_id" gorm:"index"`
	Type           QuestionType `json:"type" gorm:"not null;default:multiple_choice"`
	Text           string       `json:"text" gorm:"type:text;not null" validate:"required"`

	// Options and correct answers as JSONB
	Content datatypes.JSON `json:"content" gorm:"type:jsonb"`

	Difficulty  DifficultyLevel `json:"difficulty" gorm:"default:medium;index"`
	Explanation *string         `json:"explanation" gorm:"type:text"`
	Source      QuestionSource  `json:"source" gorm:"not null;size:20;index"`
	Status      QuestionStatus  `json:"status" gorm:"not null;size:20;default:pending;index"`

	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

// ===== QUESTION CONTENT SCHEMAS =====

type MultipleChoiceContent struct {
	Options        []MCOption `json:"options" validate:"len=4,dive"`
	CorrectAnswers []string   `json:"correct_answers" validate:"min=1"`
}

type MCOption struct {
	ID    string `json:"id"`
	Text  string `json:"text" validate:"required"`
	Order int    `json:"order"`
}

// NewMultipleChoiceContent lays the labeled options out in A..D order.
func NewMultipleChoiceContent(options map[string]string, answer string) MultipleChoiceContent {
	content := MultipleChoiceContent{Options: make([]MCOption, 0, len(OptionLabels))}
	for i, label := range OptionLabels {
		content.Options = append(content.Options, MCOption{ID: label, Text: options[label], Order: i})
	}
	if answer != "" {
		content.CorrectAnswers = []string{answer}
	}
	return content
}

// QuestionFromCandidate builds a pending question scoped to the material.
func QuestionFromCandidate(c CandidateQuestion, material *SourceMaterial, source QuestionSource, difficulty DifficultyLevel, createdBy string) (*Question, error) {
	content, err := json.Marshal(NewMultipleChoiceContent(c.Options, c.Answer))
	if err != nil {
		return nil, fmt.Errorf("failed to encode question content: %w", err)
	}

	if c.Difficulty != "" {
		difficulty = c.Difficulty
	}
	if !difficulty.IsValid() {
		difficulty = DifficultyMedium
	}

	materialID := material.ID
	return &Question{
		OrganizationID: material.OrganizationID,
		CourseID:       material.CourseID,
		TopicID:        material.TopicID,
		MaterialID:     &materialID,
		Type:           MultipleChoice,
		Text:           c.Text,
		Content:        datatypes.JSON(content),
		Difficulty:     difficulty,
		Explanation:    c.Explanation,
		Source:         source,
		Status:         QuestionPending,
		CreatedBy:      createdBy,
	}, nil
}
