package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/material-question-service/internal/cache"
	"github.com/SAP-F-2025/material-question-service/internal/models"
	"github.com/SAP-F-2025/material-question-service/internal/repositories"
	"gorm.io/gorm"
)

// DirectoryPostgreSQL reads the course tables shared with the resource service.
type DirectoryPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewDirectoryPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.DirectoryRepository {
	return &DirectoryPostgreSQL{db: db, cacheManager: cacheManager}
}

func (d *DirectoryPostgreSQL) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	var course models.Course
	err := d.cacheManager.Directory.CacheOrExecute(ctx, fmt.Sprintf("course:%d", id), &course, cache.DirectoryCacheConfig.TTL, func() (interface{}, error) {
		var dbCourse models.Course
		if err := d.db.WithContext(ctx).First(&dbCourse, id).Error; err != nil {
			return nil, notFoundOr(err, "get course %d", id)
		}
		return &dbCourse, nil
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (d *DirectoryPostgreSQL) GetTopic(ctx context.Context, id uint) (*models.Topic, error) {
	var topic models.Topic
	err := d.cacheManager.Directory.CacheOrExecute(ctx, fmt.Sprintf("topic:%d", id), &topic, cache.DirectoryCacheConfig.TTL, func() (interface{}, error) {
		var dbTopic models.Topic
		if err := d.db.WithContext(ctx).First(&dbTopic, id).Error; err != nil {
			return nil, notFoundOr(err, "get topic %d", id)
		}
		return &dbTopic, nil
	})
	if err != nil {
		return nil, err
	}
	return &topic, nil
}
