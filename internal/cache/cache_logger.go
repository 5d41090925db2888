package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// ScopeKey identifies the stored stems of one organization/course/topic scope.
func ScopeKey(organizationID string, courseID uint, topicID *uint) string {
	if topicID == nil {
		return fmt.Sprintf("scope:%s:%d:all", organizationID, courseID)
	}
	return fmt.Sprintf("scope:%s:%d:%d", organizationID, courseID, *topicID)
}

// InvalidateQuestionScopeCache drops cached stems after questions were added to a course.
func InvalidateQuestionScopeCache(ctx context.Context, cm *CacheManager, organizationID string, courseID uint) {
	SafeInvalidatePattern(ctx, cm.Question, fmt.Sprintf("scope:%s:%d:*", organizationID, courseID))
}
