package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/SAP-F-2025/material-question-service/internal/events"
	"github.com/SAP-F-2025/material-question-service/internal/providers"
	"github.com/SAP-F-2025/material-question-service/internal/repositories"
	"github.com/SAP-F-2025/material-question-service/internal/validator"
)

type fakeRepoManager struct {
	repo        repositories.Repository
	healthErr   error
	shutdownRan bool
}

func (m *fakeRepoManager) Initialize() error                      { return nil }
func (m *fakeRepoManager) GetRepository() repositories.Repository { return m.repo }
func (m *fakeRepoManager) HealthCheck(ctx context.Context) error  { return m.healthErr }

func (m *fakeRepoManager) Shutdown(ctx context.Context) error {
	m.shutdownRan = true
	return nil
}

type closingProvider struct {
	*fakeProvider
	closed bool
}

func (p *closingProvider) Close() error {
	p.closed = true
	return nil
}

func TestServiceManagerLifecycle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repoManager := &fakeRepoManager{repo: &memRepository{store: newMemStore(newTestClock())}}
	provider := &closingProvider{fakeProvider: newFakeProvider("gemini", succeedWith("gemini"))}

	sm := NewServiceManager(repoManager, ServiceDependencies{
		Extractor: &fakeExtractor{},
		Providers: []providers.Provider{provider},
		Publisher: events.NewMockEventPublisher(logger),
	}, logger, validator.New(), testGenerationConfig())

	if err := sm.HealthCheck(context.Background()); err == nil {
		t.Error("expected health check to fail before Initialize")
	}

	if err := sm.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if sm.Generation() == nil {
		t.Fatal("expected generation service")
	}
	if err := sm.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	repoManager.healthErr = errors.New("db down")
	if err := sm.HealthCheck(context.Background()); err == nil {
		t.Error("expected repository failure to surface")
	}

	if err := sm.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !provider.closed || !repoManager.shutdownRan {
		t.Error("expected providers and repositories to be closed")
	}
}

func TestServiceManagerRequiresRepository(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sm := NewServiceManager(&fakeRepoManager{}, ServiceDependencies{}, logger, validator.New(), testGenerationConfig())

	if err := sm.Initialize(context.Background()); err == nil {
		t.Error("expected Initialize to fail without a repository")
	}
}
