package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SAP-F-2025/material-question-service/internal/events"
	"github.com/SAP-F-2025/material-question-service/internal/models"
	"github.com/SAP-F-2025/material-question-service/internal/repositories"
)

const (
	defaultLogPageSize = 20

	// Upper bound on stems listed in a prompt as "do not repeat"
	maxExcludedTexts = 200
)

// ===== MATERIAL STATE =====

// loadMaterial hides materials of other organizations behind NotFound.
func (s *generationService) loadMaterial(ctx context.Context, id uint, caller models.Caller) (*models.SourceMaterial, error) {
	material, err := s.repo.Material().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewPipelineError(ErrNotFound, fmt.Sprintf("material %d not found", id), err)
		}
		return nil, NewPipelineError(ErrInternal, "failed to load material", err)
	}
	if !caller.CanAccess(material.OrganizationID) {
		s.logger.Warn("Material access denied", "material_id", id, "user_id", caller.UserID, "organization_id", caller.OrganizationID)
		return nil, NewPipelineError(ErrNotFound, fmt.Sprintf("material %d not found", id), nil)
	}
	return material, nil
}

func (s *generationService) markProcessing(ctx context.Context, material *models.SourceMaterial) error {
	update := repositories.MaterialProcessingUpdate{Status: models.ProcessingInProgress}
	if err := s.repo.Material().UpdateProcessing(ctx, nil, material.ID, update); err != nil {
		if repositories.IsNotFoundError(err) {
			return NewPipelineError(ErrNotFound, fmt.Sprintf("material %d not found", material.ID), err)
		}
		return NewPipelineError(ErrInternal, "failed to mark material processing", err)
	}
	material.ProcessingStatus = models.ProcessingInProgress
	material.ProcessingError = nil
	return nil
}

// ensureText returns the stored text or extracts it once and stores it.
func (s *generationService) ensureText(ctx context.Context, material *models.SourceMaterial) (string, error) {
	if material.HasText() {
		if text := material.Text(); strings.TrimSpace(text) != "" {
			return text, nil
		}
		return "", NewPipelineError(ErrInvalidInput, "material has no content", nil)
	}

	if s.extractor == nil {
		return "", NewPipelineError(ErrInvalidInput, "material has no extracted text", nil)
	}

	text, err := s.extractor.Extract(ctx, material)
	if err != nil {
		return "", NewPipelineError(ErrInvalidInput, "material content could not be extracted", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", NewPipelineError(ErrInvalidInput, "material has no content", nil)
	}

	if err := s.repo.Material().SaveExtractedText(ctx, nil, material.ID, text); err != nil {
		return "", NewPipelineError(ErrInternal, "failed to store extracted text", err)
	}
	material.ExtractedText = &text

	s.logger.Info("Material text extracted", "material_id", material.ID, "file_type", material.FileType, "chars", len(text))
	return text, nil
}

func (s *generationService) resolveLabels(ctx context.Context, material *models.SourceMaterial) (string, string, error) {
	course, err := s.repo.Directory().GetCourse(ctx, material.CourseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return "", "", NewPipelineError(ErrNotFound, fmt.Sprintf("course %d not found", material.CourseID), err)
		}
		return "", "", NewPipelineError(ErrInternal, "failed to load course", err)
	}

	if material.TopicID == nil {
		return course.Label(), "", nil
	}

	topic, err := s.repo.Directory().GetTopic(ctx, *material.TopicID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return "", "", NewPipelineError(ErrNotFound, fmt.Sprintf("topic %d not found", *material.TopicID), err)
		}
		return "", "", NewPipelineError(ErrInternal, "failed to load topic", err)
	}
	return course.Label(), topic.Title, nil
}

// ===== PERSISTENCE =====

// persistQuestions stores the questions, completes the material and, when
// given, marks the log successful in one transaction.
func (s *generationService) persistQuestions(
	ctx context.Context,
	material *models.SourceMaterial,
	candidates []models.CandidateQuestion,
	source models.QuestionSource,
	difficulty models.DifficultyLevel,
	initiatorID string,
	log *models.GenerationLog,
) ([]models.Question, error) {
	built := make([]*models.Question, 0, len(candidates))
	for _, c := range candidates {
		question, err := models.QuestionFromCandidate(c, material, source, difficulty, initiatorID)
		if err != nil {
			return nil, NewPipelineError(ErrInternal, "failed to build question", err)
		}
		built = append(built, question)
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Question().CreateBatch(ctx, nil, built); err != nil {
			return err
		}

		ids := make([]uint, 0, len(built))
		for _, q := range built {
			ids = append(ids, q.ID)
		}

		if log != nil {
			completedAt := s.now()
			log.Status = models.GenerationSuccess
			log.QuestionIDs = models.EncodeIDs(ids)
			log.GeneratedCount = len(ids)
			log.CompletedAt = &completedAt
			log.DurationMs = completedAt.Sub(log.StartedAt).Milliseconds()
			log.ErrorMessage = nil
			if err := tx.GenerationLog().Update(ctx, nil, log); err != nil {
				return err
			}
		}

		return tx.Material().UpdateProcessing(ctx, nil, material.ID, repositories.MaterialProcessingUpdate{
			Status:      models.ProcessingCompleted,
			QuestionIDs: ids,
		})
	})
	if err != nil {
		return nil, NewPipelineError(ErrInternal, "failed to save questions", err)
	}

	questions := make([]models.Question, 0, len(built))
	for _, q := range built {
		questions = append(questions, *q)
	}
	return questions, nil
}

// fail records a terminal failure on the material and log, publishes it and
// returns it as a *PipelineError. Recording survives caller cancellation.
func (s *generationService) fail(ctx context.Context, material *models.SourceMaterial, log *models.GenerationLog, mode models.GenerationMode, initiatorID string, err error) error {
	var pe *PipelineError
	if !errors.As(err, &pe) {
		pe = NewPipelineError(ErrInternal, "unexpected pipeline failure", err)
	}

	ctx = context.WithoutCancel(ctx)
	message := pe.Error()

	var logID *uint
	if log != nil {
		completedAt := s.now()
		log.Status = models.GenerationFailed
		log.ErrorMessage = &message
		log.QuestionIDs = models.EncodeIDs(nil)
		log.GeneratedCount = 0
		log.CompletedAt = &completedAt
		log.DurationMs = completedAt.Sub(log.StartedAt).Milliseconds()
		if updateErr := s.repo.GenerationLog().Update(ctx, nil, log); updateErr != nil {
			s.logger.Error("Failed to record generation log failure", "log_id", log.ID, "error", updateErr)
		}
		id := log.ID
		logID = &id
	}

	update := repositories.MaterialProcessingUpdate{Status: models.ProcessingFailed, Error: &message}
	if updateErr := s.repo.Material().UpdateProcessing(ctx, nil, material.ID, update); updateErr != nil {
		s.logger.Error("Failed to record material failure", "material_id", material.ID, "error", updateErr)
	}

	s.logger.Warn("Question generation failed",
		"material_id", material.ID,
		"mode", mode,
		"class", ErrorClass(pe),
		"error", pe.Error(),
		"cause", pe.Err)

	s.publish(ctx, events.TypeGenerationFailed, events.GenerationFailedEvent{
		MaterialID:     material.ID,
		OrganizationID: material.OrganizationID,
		Mode:           string(mode),
		ErrorClass:     ErrorClass(pe),
		Message:        message,
		LogID:          logID,
		InitiatedBy:    initiatorID,
	})

	return pe
}

func (s *generationService) publish(ctx context.Context, eventType string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		s.logger.Error("Failed to publish event", "event_type", eventType, "error", err)
	}
}

// ===== SMALL HELPERS =====

func (s *generationService) hasAvailableProvider() bool {
	for _, p := range s.providers {
		if p.Available() {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// excludedTexts lists the newest corpus stems followed by the stems
// accepted so far in this run.
func excludedTexts(corpus []string, accepted []models.CandidateQuestion) []string {
	acceptedTexts := models.CandidateTexts(accepted)

	room := maxExcludedTexts - len(acceptedTexts)
	if room < 0 {
		room = 0
	}
	if room > len(corpus) {
		room = len(corpus)
	}

	out := make([]string, 0, room+len(acceptedTexts))
	out = append(out, corpus[len(corpus)-room:]...)
	return append(out, acceptedTexts...)
}

func questionIDs(questions []models.Question) []uint {
	ids := make([]uint, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	return ids
}
