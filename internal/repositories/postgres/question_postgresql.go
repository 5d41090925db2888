package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/material-question-service/internal/cache"
	"github.com/SAP-F-2025/material-question-service/internal/models"
	"github.com/SAP-F-2025/material-question-service/internal/repositories"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager

	// Set when bound to a transaction
	afterCommit *commitHooks
}

func NewQuestionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

// ListTextsByScope retrieves stored stems with caching
func (q *QuestionPostgreSQL) ListTextsByScope(ctx context.Context, tx *gorm.DB, organizationID string, courseID uint, topicID *uint) ([]string, error) {
	db := getDB(q.db, tx)
	fetch := func() (interface{}, error) {
		query := db.WithContext(ctx).
			Model(&models.Question{}).
			Where("organization_id = ? AND course_id = ? AND status IN ?", organizationID, courseID, liveQuestionStatuses())
		if topicID != nil {
			query = query.Where("topic_id = ?", *topicID)
		}

		texts := []string{}
		if err := query.Order("id").Pluck("text", &texts).Error; err != nil {
			return nil, fmt.Errorf("failed to list question texts: %w", err)
		}
		return texts, nil
	}

	// Inside a transaction the cache could serve stems the transaction cannot see
	if tx != nil || q.afterCommit != nil {
		value, err := fetch()
		if err != nil {
			return nil, err
		}
		return value.([]string), nil
	}

	var texts []string
	key := cache.ScopeKey(organizationID, courseID, topicID)
	if err := q.cacheManager.Question.CacheOrExecute(ctx, key, &texts, cache.QuestionCacheConfig.TTL, fetch); err != nil {
		return nil, err
	}
	return texts, nil
}

// CreateBatch inserts questions in one statement and invalidates the course
// scope. Inside WithTransaction the invalidation waits for the commit.
func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	if err := getDB(q.db, tx).WithContext(ctx).Create(questions).Error; err != nil {
		return fmt.Errorf("failed to create questions: %w", err)
	}

	seen := make(map[string]bool)
	for _, question := range questions {
		key := fmt.Sprintf("%s:%d", question.OrganizationID, question.CourseID)
		if seen[key] {
			continue
		}
		seen[key] = true

		organizationID, courseID := question.OrganizationID, question.CourseID
		invalidate := func(ctx context.Context) {
			cache.InvalidateQuestionScopeCache(ctx, q.cacheManager, organizationID, courseID)
		}
		if q.afterCommit != nil {
			q.afterCommit.add(invalidate)
			continue
		}
		invalidate(ctx)
	}
	return nil
}

func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error) {
	if len(ids) == 0 {
		return []*models.Question{}, nil
	}

	var found []*models.Question
	if err := getDB(q.db, tx).WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions by ids: %w", err)
	}

	byID := make(map[uint]*models.Question, len(found))
	for _, question := range found {
		byID[question.ID] = question
	}

	ordered := make([]*models.Question, 0, len(found))
	for _, id := range ids {
		if question, ok := byID[id]; ok {
			ordered = append(ordered, question)
		}
	}
	return ordered, nil
}
