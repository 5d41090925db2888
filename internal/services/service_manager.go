package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/SAP-F-2025/material-question-service/internal/config"
	"github.com/SAP-F-2025/material-question-service/internal/events"
	"github.com/SAP-F-2025/material-question-service/internal/extraction"
	"github.com/SAP-F-2025/material-question-service/internal/providers"
	"github.com/SAP-F-2025/material-question-service/internal/repositories"
	"github.com/SAP-F-2025/material-question-service/internal/validator"
)

// ServiceDependencies are the collaborators built in main and shared by services.
type ServiceDependencies struct {
	Extractor extraction.Extractor
	Providers []providers.Provider
	Publisher events.EventPublisher
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repoManager repositories.RepositoryManager
	deps        ServiceDependencies
	logger      *slog.Logger
	validator   *validator.Validator
	config      config.GenerationConfig

	// Service instances
	generationService GenerationService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(repoManager repositories.RepositoryManager, deps ServiceDependencies, logger *slog.Logger, validator *validator.Validator, cfg config.GenerationConfig) ServiceManager {
	return &serviceManager{
		repoManager: repoManager,
		deps:        deps,
		logger:      logger,
		validator:   validator,
		config:      cfg,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	repo := sm.repoManager.GetRepository()
	if repo == nil {
		return fmt.Errorf("failed to initialize services: repository not initialized")
	}

	sm.generationService = NewGenerationService(
		repo,
		sm.deps.Extractor,
		sm.deps.Providers,
		sm.deps.Publisher,
		sm.config,
		sm.logger,
		sm.validator,
	)

	available := make([]string, 0, len(sm.deps.Providers))
	for _, p := range sm.deps.Providers {
		if p.Available() {
			available = append(available, p.Name())
		}
	}
	sm.logger.Info("Generation service initialized",
		"ai_enabled", sm.config.Enabled,
		"providers", available,
		"target_count", sm.config.TargetCount,
		"daily_limit", sm.config.DailyLimitPerOrg)

	sm.initialized = true
	return nil
}

func (sm *serviceManager) Generation() GenerationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.generationService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repoManager.HealthCheck(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

// Shutdown closes the event publisher, provider clients and repositories.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	for _, p := range sm.deps.Providers {
		if closer, ok := p.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				sm.logger.Error("Failed to close provider", "provider", p.Name(), "error", err)
			}
		}
	}

	if err := sm.repoManager.Shutdown(ctx); err != nil {
		sm.logger.Error("Failed to shutdown repository manager", "error", err)
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")
	return nil
}
