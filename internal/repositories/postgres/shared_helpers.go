package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/SAP-F-2025/material-question-service/internal/models"
	"github.com/SAP-F-2025/material-question-service/internal/repositories"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func getDB(base, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return base
}

// notFoundOr maps gorm.ErrRecordNotFound to repositories.ErrNotFound.
func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), repositories.ErrNotFound)
	}
	return fmt.Errorf("failed to %s: %w", fmt.Sprintf(format, args...), err)
}

func applyLogFilters(query *gorm.DB, filters models.GenerationLogFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	return query
}

func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}

func liveQuestionStatuses() []models.QuestionStatus {
	return []models.QuestionStatus{models.QuestionPending, models.QuestionActive}
}

// commitHooks holds work that must only run once a transaction committed.
type commitHooks struct {
	mu    sync.Mutex
	hooks []func(ctx context.Context)
}

func (h *commitHooks) add(fn func(ctx context.Context)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, fn)
}

func (h *commitHooks) run(ctx context.Context) {
	h.mu.Lock()
	hooks := h.hooks
	h.hooks = nil
	h.mu.Unlock()

	for _, fn := range hooks {
		fn(ctx)
	}
}
