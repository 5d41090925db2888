package repositories

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidTransition = errors.New("invalid processing status transition")
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Repository aggregates all repository interfaces
type Repository interface {
	Material() MaterialRepository
	Question() QuestionRepository
	GenerationLog() GenerationLogRepository
	Directory() DirectoryRepository

	// User domain (read-only, backed by Casdoor)
	User() UserRepository

	// WithTransaction runs fn with repositories bound to one transaction
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
