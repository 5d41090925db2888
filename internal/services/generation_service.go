package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/SAP-F-2025/material-question-service/internal/config"
	"github.com/SAP-F-2025/material-question-service/internal/dedup"
	"github.com/SAP-F-2025/material-question-service/internal/events"
	"github.com/SAP-F-2025/material-question-service/internal/extraction"
	"github.com/SAP-F-2025/material-question-service/internal/models"
	"github.com/SAP-F-2025/material-question-service/internal/parser"
	"github.com/SAP-F-2025/material-question-service/internal/providers"
	"github.com/SAP-F-2025/material-question-service/internal/repositories"
	"github.com/SAP-F-2025/material-question-service/internal/validator"
)

type generationService struct {
	repo      repositories.Repository
	extractor extraction.Extractor
	providers []providers.Provider
	publisher events.EventPublisher
	config    config.GenerationConfig
	logger    *slog.Logger
	validator *validator.Validator

	now func() time.Time
}

func NewGenerationService(
	repo repositories.Repository,
	extractor extraction.Extractor,
	providerList []providers.Provider,
	publisher events.EventPublisher,
	cfg config.GenerationConfig,
	logger *slog.Logger,
	validator *validator.Validator,
) GenerationService {
	return &generationService{
		repo:      repo,
		extractor: extractor,
		providers: providerList,
		publisher: publisher,
		config:    cfg,
		logger:    logger,
		validator: validator,
		now:       time.Now,
	}
}

// ===== PIPELINE ENTRY POINTS =====

func (s *generationService) Generate(ctx context.Context, materialID uint, req *models.GenerateQuestionsRequest, caller models.Caller) (*models.GenerationResult, error) {
	if req == nil {
		req = &models.GenerateQuestionsRequest{}
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, NewPipelineError(ErrInvalidInput, "invalid generation request", err)
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}

	initiatorID := caller.UserID
	s.logger.Info("Starting question generation", "material_id", materialID, "difficulty", difficulty, "initiator", initiatorID)

	material, err := s.loadMaterial(ctx, materialID, caller)
	if err != nil {
		return nil, err
	}
	if err := s.markProcessing(ctx, material); err != nil {
		return nil, err
	}

	text, err := s.ensureText(ctx, material)
	if err != nil {
		// No path has been chosen yet
		return nil, s.fail(ctx, material, nil, "", initiatorID, err)
	}

	parsed := parser.Parse(text)
	if parsed.IsQuestionBank {
		s.logger.Info("Material recognized as question bank",
			"material_id", material.ID,
			"questions", len(parsed.Questions),
			"missing_answers", parsed.MissingAnswers)
		return s.runImportPath(ctx, material, parsed, difficulty, initiatorID)
	}

	return s.runGeneratePath(ctx, material, text, difficulty, initiatorID)
}

func (s *generationService) ImportQuestions(ctx context.Context, materialID uint, req *models.ImportQuestionsRequest, caller models.Caller) (*models.GenerationResult, error) {
	if req == nil {
		return nil, NewPipelineError(ErrInvalidInput, "questions are required", nil)
	}
	if errs := s.validator.GetBusinessValidator().ValidateImportRequest(req); len(errs) > 0 {
		return nil, NewPipelineError(ErrInvalidInput, "invalid questions", errs)
	}

	initiatorID := caller.UserID
	s.logger.Info("Importing reviewed questions", "material_id", materialID, "count", len(req.Questions), "initiator", initiatorID)

	material, err := s.loadMaterial(ctx, materialID, caller)
	if err != nil {
		return nil, err
	}
	if err := s.markProcessing(ctx, material); err != nil {
		return nil, err
	}

	candidates := make([]models.CandidateQuestion, 0, len(req.Questions))
	for _, item := range req.Questions {
		candidates = append(candidates, item.Candidate())
	}

	return s.importCandidates(ctx, material, candidates, models.DifficultyMedium, initiatorID)
}

func (s *generationService) ListLogs(ctx context.Context, materialID uint, filters models.GenerationLogFilters, caller models.Caller) (*models.PaginatedResponse, error) {
	if err := s.validator.ValidateStruct(&filters); err != nil {
		return nil, NewPipelineError(ErrInvalidInput, "invalid filters", err)
	}
	if _, err := s.loadMaterial(ctx, materialID, caller); err != nil {
		return nil, err
	}

	logs, total, err := s.repo.GenerationLog().ListByMaterial(ctx, nil, materialID, filters)
	if err != nil {
		return nil, NewPipelineError(ErrInternal, "failed to list generation logs", err)
	}

	size := filters.Limit
	if size <= 0 {
		size = defaultLogPageSize
	}
	return &models.PaginatedResponse{
		Content:       logs,
		TotalElements: total,
		Size:          size,
		Offset:        filters.Offset,
	}, nil
}

func (s *generationService) GetLog(ctx context.Context, id uint, caller models.Caller) (*models.GenerationLog, error) {
	log, err := s.repo.GenerationLog().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewPipelineError(ErrNotFound, fmt.Sprintf("generation log %d not found", id), err)
		}
		return nil, NewPipelineError(ErrInternal, "failed to get generation log", err)
	}
	if !caller.CanAccess(log.OrganizationID) {
		s.logger.Warn("Generation log access denied", "log_id", id, "user_id", caller.UserID, "organization_id", caller.OrganizationID)
		return nil, NewPipelineError(ErrNotFound, fmt.Sprintf("generation log %d not found", id), nil)
	}
	return log, nil
}

// ===== IMPORT PATH =====

func (s *generationService) runImportPath(ctx context.Context, material *models.SourceMaterial, parsed parser.Result, difficulty models.DifficultyLevel, initiatorID string) (*models.GenerationResult, error) {
	if parsed.MissingAnswers == 0 {
		return s.importCandidates(ctx, material, parsed.Questions, difficulty, initiatorID)
	}

	// Unanswered blocks are handed back for manual completion, never guessed
	update := repositories.MaterialProcessingUpdate{Status: models.ProcessingCompleted, QuestionIDs: []uint{}}
	if err := s.repo.Material().UpdateProcessing(ctx, nil, material.ID, update); err != nil {
		return nil, s.fail(ctx, material, nil, models.ModeQuestionBank, initiatorID,
			NewPipelineError(ErrInternal, "failed to complete material", err))
	}

	s.logger.Info("Question bank needs answers before import",
		"material_id", material.ID,
		"missing_answers", parsed.MissingAnswers)

	return &models.GenerationResult{
		Mode:               models.ModeQuestionBank,
		MissingAnswers:     parsed.MissingAnswers,
		ExtractedQuestions: parsed.Questions,
		Questions:          []models.Question{},
	}, nil
}

func (s *generationService) importCandidates(ctx context.Context, material *models.SourceMaterial, candidates []models.CandidateQuestion, difficulty models.DifficultyLevel, initiatorID string) (*models.GenerationResult, error) {
	mode := models.ModeQuestionBank

	corpus, err := s.repo.Question().ListTextsByScope(ctx, nil, material.OrganizationID, material.CourseID, material.TopicID)
	if err != nil {
		return nil, s.fail(ctx, material, nil, mode, initiatorID,
			NewPipelineError(ErrInternal, "failed to load existing questions", err))
	}

	survivors := dedup.Filter(candidates, dedup.NewSeenSet(corpus...))
	if len(survivors) == 0 {
		return nil, s.fail(ctx, material, nil, mode, initiatorID,
			NewPipelineError(ErrConflict, fmt.Sprintf("all %d questions already exist for this course", len(candidates)), nil))
	}

	questions, err := s.persistQuestions(ctx, material, survivors, models.SourceHuman, difficulty, initiatorID, nil)
	if err != nil {
		return nil, s.fail(ctx, material, nil, mode, initiatorID, err)
	}

	s.logger.Info("Question bank imported",
		"material_id", material.ID,
		"imported", len(questions),
		"duplicates", len(candidates)-len(survivors))

	s.publish(ctx, events.TypeQuestionsImported, events.QuestionsProducedEvent{
		MaterialID:     material.ID,
		OrganizationID: material.OrganizationID,
		CourseID:       material.CourseID,
		Mode:           string(mode),
		QuestionIDs:    questionIDs(questions),
		InitiatedBy:    initiatorID,
	})

	return &models.GenerationResult{
		Mode:      mode,
		Questions: questions,
	}, nil
}

// ===== GENERATE PATH =====

func (s *generationService) runGeneratePath(ctx context.Context, material *models.SourceMaterial, text string, difficulty models.DifficultyLevel, initiatorID string) (*models.GenerationResult, error) {
	mode := models.ModeAI

	if !s.config.Enabled {
		return nil, s.fail(ctx, material, nil, mode, initiatorID,
			NewPipelineError(ErrServiceDisabled, "AI question generation is disabled", nil))
	}
	if !s.hasAvailableProvider() {
		return nil, s.fail(ctx, material, nil, mode, initiatorID,
			NewPipelineError(ErrServiceDisabled, "no generation provider is configured", nil))
	}

	if result, err := s.cachedResult(ctx, material, difficulty, initiatorID); err != nil || result != nil {
		return result, err
	}

	if err := s.checkRateLimit(ctx, material); err != nil {
		return nil, s.fail(ctx, material, nil, mode, initiatorID, err)
	}

	courseLabel, topicLabel, err := s.resolveLabels(ctx, material)
	if err != nil {
		return nil, s.fail(ctx, material, nil, mode, initiatorID, err)
	}

	corpus, err := s.repo.Question().ListTextsByScope(ctx, nil, material.OrganizationID, material.CourseID, material.TopicID)
	if err != nil {
		return nil, s.fail(ctx, material, nil, mode, initiatorID,
			NewPipelineError(ErrInternal, "failed to load existing questions", err))
	}

	startedAt := s.now()
	log := &models.GenerationLog{
		MaterialID:     material.ID,
		OrganizationID: material.OrganizationID,
		InitiatedBy:    initiatorID,
		Difficulty:     difficulty,
		Status:         models.GenerationPending,
		QuestionIDs:    models.EncodeIDs(nil),
		RequestedCount: s.config.TargetCount,
		StartedAt:      startedAt,
	}
	if err := s.repo.GenerationLog().Create(ctx, nil, log); err != nil {
		return nil, s.fail(ctx, material, nil, mode, initiatorID,
			NewPipelineError(ErrInternal, "failed to create generation log", err))
	}

	run := s.generate(ctx, providers.Request{
		Text:        text,
		CourseLabel: courseLabel,
		TopicLabel:  topicLabel,
		Difficulty:  difficulty,
	}, corpus, startedAt)

	log.Attempts = run.attempts
	log.Provider = strings.Join(run.providers, ",")

	if len(run.accepted) == 0 {
		return nil, s.fail(ctx, material, log, mode, initiatorID, run.failure())
	}

	questions, err := s.persistQuestions(ctx, material, run.accepted, models.SourceAI, difficulty, initiatorID, log)
	if err != nil {
		return nil, s.fail(ctx, material, log, mode, initiatorID, err)
	}

	s.logger.Info("Questions generated",
		"material_id", material.ID,
		"log_id", log.ID,
		"generated", len(questions),
		"target", s.config.TargetCount,
		"attempts", run.attempts,
		"provider", log.Provider,
		"duration_ms", log.DurationMs)

	logID := log.ID
	s.publish(ctx, events.TypeQuestionsGenerated, events.QuestionsProducedEvent{
		MaterialID:     material.ID,
		OrganizationID: material.OrganizationID,
		CourseID:       material.CourseID,
		Mode:           string(mode),
		QuestionIDs:    questionIDs(questions),
		LogID:          &logID,
		Provider:       log.Provider,
		InitiatedBy:    initiatorID,
	})

	return &models.GenerationResult{
		Mode:      mode,
		Log:       log,
		Questions: questions,
	}, nil
}

// cachedResult returns a recent successful generation whose questions are
// all still live, or nil when there is none.
func (s *generationService) cachedResult(ctx context.Context, material *models.SourceMaterial, difficulty models.DifficultyLevel, initiatorID string) (*models.GenerationResult, error) {
	if s.config.CacheFreshness <= 0 {
		return nil, nil
	}

	since := s.now().Add(-s.config.CacheFreshness)
	log, err := s.repo.GenerationLog().FindRecentSuccess(ctx, nil, material.ID, difficulty, since)
	if err != nil {
		s.logger.Warn("Generation cache lookup failed", "material_id", material.ID, "error", err)
		return nil, nil
	}
	if log == nil {
		return nil, nil
	}

	ids := models.DecodeIDs(log.QuestionIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := s.repo.Question().GetByIDs(ctx, nil, ids)
	if err != nil {
		s.logger.Warn("Generation cache resolve failed", "material_id", material.ID, "log_id", log.ID, "error", err)
		return nil, nil
	}
	if len(found) != len(ids) {
		return nil, nil
	}
	questions := make([]models.Question, 0, len(found))
	for _, q := range found {
		if !q.Status.Live() {
			return nil, nil
		}
		questions = append(questions, *q)
	}

	update := repositories.MaterialProcessingUpdate{Status: models.ProcessingCompleted, QuestionIDs: ids}
	if err := s.repo.Material().UpdateProcessing(ctx, nil, material.ID, update); err != nil {
		return nil, s.fail(ctx, material, nil, models.ModeAI, initiatorID,
			NewPipelineError(ErrInternal, "failed to complete material", err))
	}

	s.logger.Info("Serving cached generation", "material_id", material.ID, "log_id", log.ID, "questions", len(questions))

	logID := log.ID
	s.publish(ctx, events.TypeQuestionsGenerated, events.QuestionsProducedEvent{
		MaterialID:     material.ID,
		OrganizationID: material.OrganizationID,
		CourseID:       material.CourseID,
		Mode:           string(models.ModeAI),
		QuestionIDs:    ids,
		LogID:          &logID,
		Provider:       log.Provider,
		Cached:         true,
		InitiatedBy:    initiatorID,
	})

	return &models.GenerationResult{
		Mode:      models.ModeAI,
		Log:       log,
		Questions: questions,
		Cached:    true,
	}, nil
}

// checkRateLimit counts every generation attempt of the organization since
// local midnight. A limit of zero disables the check.
func (s *generationService) checkRateLimit(ctx context.Context, material *models.SourceMaterial) error {
	limit := s.config.DailyLimitPerOrg
	if limit <= 0 {
		return nil
	}

	count, err := s.repo.GenerationLog().CountSince(ctx, nil, material.OrganizationID, startOfDay(s.now()))
	if err != nil {
		return NewPipelineError(ErrInternal, "failed to check generation limit", err)
	}
	if count >= int64(limit) {
		s.logger.Warn("Daily generation limit reached",
			"organization_id", material.OrganizationID,
			"count", count,
			"limit", limit)
		return NewPipelineError(ErrRateLimited, fmt.Sprintf("organization reached its daily limit of %d generations", limit), nil)
	}
	return nil
}

// ===== RETRY LOOP =====

type generationRun struct {
	accepted  []models.CandidateQuestion
	attempts  int
	providers []string
	answered  bool
	timedOut  bool
	lastErr   error
}

// generate asks providers for the shortfall until the target is met, the
// attempts run out or the total budget is spent.
func (s *generationService) generate(ctx context.Context, base providers.Request, corpus []string, startedAt time.Time) *generationRun {
	run := &generationRun{}
	target := s.config.TargetCount
	deadline := startedAt.Add(s.config.TotalTimeout)
	seen := dedup.NewSeenSet(corpus...)

	for attempt := 1; attempt <= s.config.MaxAttempts && len(run.accepted) < target; attempt++ {
		if !s.now().Before(deadline) {
			run.timedOut = true
			break
		}
		run.attempts = attempt

		req := base
		req.Count = target - len(run.accepted)
		req.ExcludedTexts = excludedTexts(corpus, run.accepted)

		batch, name, err := s.attemptProviders(ctx, req, deadline)
		run.lastErr = err
		if err != nil {
			s.logger.Warn("Generation attempt failed", "attempt", attempt, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		run.answered = true
		fresh := dedup.Filter(batch, seen)
		s.logger.Info("Generation attempt succeeded",
			"attempt", attempt,
			"provider", name,
			"returned", len(batch),
			"unique", len(fresh))
		if len(fresh) == 0 {
			continue
		}

		run.accepted = append(run.accepted, fresh...)
		if !slices.Contains(run.providers, name) {
			run.providers = append(run.providers, name)
		}
	}

	if len(run.accepted) > target {
		run.accepted = run.accepted[:target]
	}
	return run
}

// attemptProviders tries providers in order; the first success wins.
func (s *generationService) attemptProviders(ctx context.Context, req providers.Request, deadline time.Time) ([]models.CandidateQuestion, string, error) {
	var lastErr error
	for _, p := range s.providers {
		if !p.Available() {
			continue
		}

		remaining := deadline.Sub(s.now())
		if remaining <= 0 {
			return nil, "", providers.ErrTimeout
		}

		batch, err := providers.CallWithTimeout(ctx, p, req, min(s.config.AttemptTimeout, remaining))
		if err == nil {
			return batch, p.Name(), nil
		}

		s.logger.Warn("Provider call failed", "provider", p.Name(), "count", req.Count, "error", err)
		lastErr = fmt.Errorf("%s: %w", p.Name(), err)
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
	}

	if lastErr == nil {
		lastErr = providers.ErrUnavailable
	}
	return nil, "", lastErr
}

// failure classifies a run that produced no unique question by the outcome
// of its last attempt.
func (r *generationRun) failure() error {
	switch {
	case r.timedOut:
		return NewPipelineError(ErrTimeout, "generation time budget exhausted", r.lastErr)
	case r.lastErr != nil:
		return classifyProviderError(r.lastErr)
	case r.answered:
		return NewPipelineError(ErrConflict, "every generated question duplicates existing content", nil)
	default:
		return NewPipelineError(ErrExhausted, "no generation attempt could be made", nil)
	}
}

func classifyProviderError(err error) error {
	switch {
	case errors.Is(err, providers.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return NewPipelineError(ErrTimeout, "generation provider timed out", err)
	case errors.Is(err, providers.ErrRateLimited):
		return NewPipelineError(ErrProviderRateLimited, "generation provider is rate limiting requests", err)
	case errors.Is(err, providers.ErrProtocolViolation):
		return NewPipelineError(ErrProviderProtocolViolation, "generation provider returned an invalid response", err)
	case errors.Is(err, context.Canceled):
		return NewPipelineError(ErrInternal, "generation was cancelled", err)
	default:
		return NewPipelineError(ErrExhausted, "all generation attempts failed", err)
	}
}
