package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/material-question-service/internal/config"
	"github.com/SAP-F-2025/material-question-service/internal/events"
	"github.com/SAP-F-2025/material-question-service/internal/models"
	"github.com/SAP-F-2025/material-question-service/internal/providers"
	"github.com/SAP-F-2025/material-question-service/internal/repositories"
	"github.com/SAP-F-2025/material-question-service/internal/validator"
)

// ===== CLOCK =====

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 14, 15, 0, 0, 0, time.Local)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ===== IN-MEMORY STORE =====

type memStore struct {
	mu        sync.Mutex
	clock     *testClock
	materials map[uint]*models.SourceMaterial
	questions map[uint]*models.Question
	logs      map[uint]*models.GenerationLog
	courses   map[uint]*models.Course
	topics    map[uint]*models.Topic

	nextQuestionID uint
	nextLogID      uint

	createBatchErr error
}

func newMemStore(clock *testClock) *memStore {
	return &memStore{
		clock:     clock,
		materials: make(map[uint]*models.SourceMaterial),
		questions: make(map[uint]*models.Question),
		logs:      make(map[uint]*models.GenerationLog),
		courses:   map[uint]*models.Course{7: {ID: 7, OrganizationID: "org-1", Code: "BIO101", Title: "Biology"}},
		topics:    map[uint]*models.Topic{3: {ID: 3, CourseID: 7, Title: "Cells"}},
	}
}

func (m *memStore) addMaterial(id uint, text *string) *models.SourceMaterial {
	m.mu.Lock()
	defer m.mu.Unlock()
	topic := uint(3)
	material := &models.SourceMaterial{
		ID:               id,
		OrganizationID:   "org-1",
		CourseID:         7,
		TopicID:          &topic,
		Title:            "Cell biology notes",
		FileType:         "txt",
		StoragePath:      "org-1/notes.txt",
		ExtractedText:    text,
		ProcessingStatus: models.ProcessingUploaded,
		UploadedBy:       "teacher-1",
	}
	m.materials[id] = material
	return material
}

func (m *memStore) addQuestion(text string, status models.QuestionStatus) *models.Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextQuestionID++
	topic := uint(3)
	q := &models.Question{
		ID:             m.nextQuestionID,
		OrganizationID: "org-1",
		CourseID:       7,
		TopicID:        &topic,
		Type:           models.MultipleChoice,
		Text:           text,
		Source:         models.SourceHuman,
		Status:         status,
		CreatedBy:      "teacher-1",
	}
	m.questions[q.ID] = q
	return q
}

func (m *memStore) addLog(log *models.GenerationLog) *models.GenerationLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextLogID++
	log.ID = m.nextLogID
	stored := *log
	m.logs[log.ID] = &stored
	return log
}

func (m *memStore) material(id uint) models.SourceMaterial {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.materials[id]
}

func (m *memStore) logList() []models.GenerationLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.GenerationLog, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) questionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.questions)
}

// memRepository adapts memStore to repositories.Repository.
type memRepository struct {
	store *memStore
}

func (r *memRepository) Material() repositories.MaterialRepository           { return (*memMaterials)(r.store) }
func (r *memRepository) Question() repositories.QuestionRepository           { return (*memQuestions)(r.store) }
func (r *memRepository) GenerationLog() repositories.GenerationLogRepository { return (*memLogs)(r.store) }
func (r *memRepository) Directory() repositories.DirectoryRepository         { return (*memDirectory)(r.store) }
func (r *memRepository) User() repositories.UserRepository                   { return nil }
func (r *memRepository) Ping(ctx context.Context) error                      { return nil }
func (r *memRepository) Close() error                                        { return nil }

func (r *memRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

type memMaterials memStore

func (m *memMaterials) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.SourceMaterial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	material, ok := m.materials[id]
	if !ok {
		return nil, fmt.Errorf("material %d: %w", id, repositories.ErrNotFound)
	}
	out := *material
	return &out, nil
}

func (m *memMaterials) SaveExtractedText(ctx context.Context, tx *gorm.DB, id uint, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	material, ok := m.materials[id]
	if !ok {
		return repositories.ErrNotFound
	}
	material.ExtractedText = &text
	return nil
}

func (m *memMaterials) UpdateProcessing(ctx context.Context, tx *gorm.DB, id uint, update repositories.MaterialProcessingUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	material, ok := m.materials[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if !material.ProcessingStatus.CanTransitionTo(update.Status) {
		return repositories.ErrInvalidTransition
	}
	material.ProcessingStatus = update.Status
	material.ProcessingError = update.Error
	if update.Status == models.ProcessingCompleted {
		material.QuestionIDs = models.EncodeIDs(update.QuestionIDs)
		material.QuestionCount = len(update.QuestionIDs)
	}
	return nil
}

type memQuestions memStore

func (m *memQuestions) ListTextsByScope(ctx context.Context, tx *gorm.DB, organizationID string, courseID uint, topicID *uint) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uint, 0, len(m.questions))
	for id := range m.questions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var texts []string
	for _, id := range ids {
		q := m.questions[id]
		if q.OrganizationID != organizationID || q.CourseID != courseID || !q.Status.Live() {
			continue
		}
		if topicID != nil && (q.TopicID == nil || *q.TopicID != *topicID) {
			continue
		}
		texts = append(texts, q.Text)
	}
	return texts, nil
}

func (m *memQuestions) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createBatchErr != nil {
		return m.createBatchErr
	}
	for _, q := range questions {
		m.nextQuestionID++
		q.ID = m.nextQuestionID
		stored := *q
		m.questions[q.ID] = &stored
	}
	return nil
}

func (m *memQuestions) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Question
	for _, id := range ids {
		if q, ok := m.questions[id]; ok {
			copied := *q
			out = append(out, &copied)
		}
	}
	return out, nil
}

type memLogs memStore

func (m *memLogs) Create(ctx context.Context, tx *gorm.DB, log *models.GenerationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextLogID++
	log.ID = m.nextLogID
	if log.CreatedAt.IsZero() {
		log.CreatedAt = m.clock.Now()
	}
	stored := *log
	m.logs[log.ID] = &stored
	return nil
}

func (m *memLogs) Update(ctx context.Context, tx *gorm.DB, log *models.GenerationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *log
	m.logs[log.ID] = &stored
	return nil
}

func (m *memLogs) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.GenerationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	log, ok := m.logs[id]
	if !ok {
		return nil, fmt.Errorf("generation log %d: %w", id, repositories.ErrNotFound)
	}
	out := *log
	return &out, nil
}

func (m *memLogs) FindRecentSuccess(ctx context.Context, tx *gorm.DB, materialID uint, difficulty models.DifficultyLevel, since time.Time) (*models.GenerationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.GenerationLog
	for _, log := range m.logs {
		if log.MaterialID != materialID || log.Difficulty != difficulty || log.Status != models.GenerationSuccess {
			continue
		}
		if log.CreatedAt.Before(since) {
			continue
		}
		if best == nil || log.CreatedAt.After(best.CreatedAt) {
			best = log
		}
	}
	if best == nil {
		return nil, nil
	}
	out := *best
	return &out, nil
}

func (m *memLogs) CountSince(ctx context.Context, tx *gorm.DB, organizationID string, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, log := range m.logs {
		if log.OrganizationID == organizationID && !log.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memLogs) ListByMaterial(ctx context.Context, tx *gorm.DB, materialID uint, filters models.GenerationLogFilters) ([]*models.GenerationLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GenerationLog
	for _, log := range m.logs {
		if log.MaterialID != materialID {
			continue
		}
		if filters.Status != nil && log.Status != *filters.Status {
			continue
		}
		copied := *log
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

type memDirectory memStore

func (m *memDirectory) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	course, ok := m.courses[id]
	if !ok {
		return nil, fmt.Errorf("course %d: %w", id, repositories.ErrNotFound)
	}
	out := *course
	return &out, nil
}

func (m *memDirectory) GetTopic(ctx context.Context, id uint) (*models.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	topic, ok := m.topics[id]
	if !ok {
		return nil, fmt.Errorf("topic %d: %w", id, repositories.ErrNotFound)
	}
	out := *topic
	return &out, nil
}

// ===== PROVIDERS AND EXTRACTION =====

type fakeProvider struct {
	name      string
	available bool
	calls     atomic.Int32

	mu       sync.Mutex
	requests []providers.Request
	respond  func(ctx context.Context, req providers.Request, call int) ([]models.CandidateQuestion, error)
}

func newFakeProvider(name string, respond func(ctx context.Context, req providers.Request, call int) ([]models.CandidateQuestion, error)) *fakeProvider {
	return &fakeProvider{name: name, available: true, respond: respond}
}

func (p *fakeProvider) Name() string    { return p.name }
func (p *fakeProvider) Available() bool { return p.available }

func (p *fakeProvider) Generate(ctx context.Context, req providers.Request) ([]models.CandidateQuestion, error) {
	call := int(p.calls.Add(1))
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	return p.respond(ctx, req, call)
}

func (p *fakeProvider) Requests() []providers.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]providers.Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// succeedWith returns req.Count fresh questions whose stems start with prefix.
func succeedWith(prefix string) func(context.Context, providers.Request, int) ([]models.CandidateQuestion, error) {
	return func(ctx context.Context, req providers.Request, call int) ([]models.CandidateQuestion, error) {
		return makeCandidates(fmt.Sprintf("%s call %d", prefix, call), req.Count), nil
	}
}

func failWith(err error) func(context.Context, providers.Request, int) ([]models.CandidateQuestion, error) {
	return func(ctx context.Context, req providers.Request, call int) ([]models.CandidateQuestion, error) {
		return nil, err
	}
}

// blockUntilCancelled never answers before the caller gives up.
func blockUntilCancelled(ctx context.Context, req providers.Request, call int) ([]models.CandidateQuestion, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func makeCandidates(prefix string, n int) []models.CandidateQuestion {
	out := make([]models.CandidateQuestion, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, models.CandidateQuestion{
			Text: fmt.Sprintf("%s question %d about cells?", prefix, i),
			Options: map[string]string{
				"A": "Option one",
				"B": "Option two",
				"C": "Option three",
				"D": "Option four",
			},
			Answer:     "A",
			Difficulty: models.DifficultyMedium,
		})
	}
	return out
}

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (e *fakeExtractor) Extract(ctx context.Context, material *models.SourceMaterial) (string, error) {
	e.calls++
	return e.text, e.err
}

// ===== SERVICE SETUP =====

var testCaller = models.Caller{UserID: "teacher-1", OrganizationID: "org-1", Role: models.RoleTeacher}

func testGenerationConfig() config.GenerationConfig {
	return config.GenerationConfig{
		Enabled:          true,
		Providers:        []string{"primary", "fallback"},
		DailyLimitPerOrg: 10,
		CacheFreshness:   24 * time.Hour,
		AttemptTimeout:   2 * time.Second,
		TotalTimeout:     10 * time.Second,
		TargetCount:      20,
		MaxAttempts:      3,
		MaxSourceChars:   1000,
	}
}

type testHarness struct {
	clock     *testClock
	store     *memStore
	extractor *fakeExtractor
	publisher *events.MockEventPublisher
	service   *generationService
}

func newTestHarness(cfg config.GenerationConfig, providerList ...providers.Provider) *testHarness {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := newTestClock()
	store := newMemStore(clock)
	extractor := &fakeExtractor{}
	publisher := events.NewMockEventPublisher(logger)

	svc := NewGenerationService(&memRepository{store: store}, extractor, providerList, publisher, cfg, logger, validator.New()).(*generationService)
	svc.now = clock.Now

	return &testHarness{
		clock:     clock,
		store:     store,
		extractor: extractor,
		publisher: publisher,
		service:   svc,
	}
}

func (h *testHarness) eventTypes() []string {
	var types []string
	for _, e := range h.publisher.GetPublishedEvents() {
		types = append(types, e.Type)
	}
	return types
}

func strPtr(s string) *string {
	return &s
}
